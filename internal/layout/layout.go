package layout

import "image"

// A4 at 300 DPI, 1 cm margins.
const (
	PageWidth  = 2480
	PageHeight = 3508
	Margin     = 118

	ContentWidth  = PageWidth - 2*Margin  // 2244
	ContentHeight = PageHeight - 2*Margin // 3272

	// SplitRatio of ContentHeight above which the collage moves to its own page.
	SplitRatio = 0.7

	// RenderScale applied to the primary document's first page (72 DPI base).
	RenderScale = 5.0

	// GridColumns used by the grid collage strategy.
	GridColumns = 4
)

// SplitThreshold is SplitRatio * ContentHeight (≈2290.4 px).
const SplitThreshold = SplitRatio * ContentHeight

// Size is a width/height pair in page pixels.
type Size struct {
	W int
	H int
}

// A4 is the fixed page size used for every output page.
var A4 = Size{W: PageWidth, H: PageHeight}

// Rect is a computed placement in page-pixel coordinates.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// In reports whether r lies entirely inside a w x h canvas.
func (r Rect) In(w, h int) bool {
	return r.W > 0 && r.H > 0 && r.X >= 0 && r.Y >= 0 && r.X+r.W <= w && r.Y+r.H <= h
}

// Overlaps reports whether r and o share at least one pixel.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Point returns the top-left corner.
func (r Rect) Point() image.Point { return image.Pt(r.X, r.Y) }

// Bounds converts r to an image.Rectangle.
func (r Rect) Bounds() image.Rectangle { return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H) }
