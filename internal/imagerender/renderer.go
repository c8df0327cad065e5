package imagerender

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/layout"
)

var errEmptyImage = errors.New("image has no pixels")

// Document abstracts an opened primary document.
type Document interface {
	NumPage() int
	// Render rasterizes a 0-based page at scale x 72 DPI.
	Render(page int, scale float64) (image.Image, error)
	Close() error
}

// Opener abstracts opening a primary document path.
type Opener interface {
	Open(path string) (Document, error)
}

// FitzOpener opens documents with go-fitz (MuPDF).
type FitzOpener struct{}

func (FitzOpener) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &layout.DecodeError{Path: path, Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	return &fitzDoc{doc: doc, path: path}, nil
}

type fitzDoc struct {
	doc  *fitz.Document
	path string
}

func (d *fitzDoc) NumPage() int { return d.doc.NumPage() }

func (d *fitzDoc) Render(page int, scale float64) (image.Image, error) {
	// go-fitz uses 0-based indexing
	img, err := d.doc.ImageDPI(page, 72*scale)
	if err != nil {
		return nil, &layout.DecodeError{Path: d.path, Err: fmt.Errorf("failed to render page %d: %w", page+1, err)}
	}

	bounds := img.Bounds()
	log.Debug().
		Str("pdf", d.path).
		Int("page", page+1).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Float64("scale", scale).
		Msg("rendered page")

	return img, nil
}

func (d *fitzDoc) Close() error { return d.doc.Close() }

// RenderPrimary renders the first page of doc at layout.RenderScale and locks
// it to the content width.
func RenderPrimary(doc Document) (*image.NRGBA, error) {
	img, err := doc.Render(0, layout.RenderScale)
	if err != nil {
		return nil, err
	}
	return ScaleToWidth(img, layout.ContentWidth)
}

// EncodePage writes a frozen page canvas as JPEG.
func EncodePage(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}
