package imagerender

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/local/casebinder/internal/layout"
)

// Load decodes an image file, applying EXIF orientation. Any failure is
// returned as a *layout.DecodeError carrying the path.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &layout.DecodeError{Path: path, Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &layout.DecodeError{Path: path, Err: errEmptyImage}
	}
	return img, nil
}

// Loader loads collage and break images. FileLoader is the production one.
type Loader interface {
	Load(path string) (image.Image, error)
}

// FileLoader loads images from the local filesystem.
type FileLoader struct{}

func (FileLoader) Load(path string) (image.Image, error) { return Load(path) }

// Dimensions returns the native width and height of img.
func Dimensions(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

// FitSize computes the size of a w x h image scaled by the single factor
// min(tw/w, th/h). The result never exceeds either bound.
func FitSize(w, h, tw, th int) (int, int) {
	f := math.Min(float64(tw)/float64(w), float64(th)/float64(h))
	return atLeastOne(int(float64(w) * f)), atLeastOne(int(float64(h) * f))
}

// WidthLockedSize computes the size of a w x h image scaled to exactly width.
func WidthLockedSize(w, h, width int) (int, int) {
	return width, atLeastOne(int(float64(h) * float64(width) / float64(w)))
}

// Normalize scales img uniformly to fit inside targetW x targetH.
func Normalize(img image.Image, targetW, targetH int) (*image.NRGBA, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, layout.Layoutf("normalize", "target %dx%d is not positive", targetW, targetH)
	}
	w, h := Dimensions(img)
	nw, nh := FitSize(w, h, targetW, targetH)
	return Resize(img, nw, nh)
}

// ScaleToWidth scales img to exactly width, whatever height results.
func ScaleToWidth(img image.Image, width int) (*image.NRGBA, error) {
	if width <= 0 {
		return nil, layout.Layoutf("scale_to_width", "width %d is not positive", width)
	}
	w, h := Dimensions(img)
	nw, nh := WidthLockedSize(w, h, width)
	return Resize(img, nw, nh)
}

// Resize resamples img to exactly w x h with a Lanczos filter. The source is
// never modified.
func Resize(img image.Image, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, layout.Layoutf("resize", "size %dx%d is not positive", w, h)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
