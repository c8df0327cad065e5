// Package compositor paints foreground rasters onto fresh A4 page canvases.
package compositor

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/local/casebinder/internal/layout"
)

// Background of every page.
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// AnchorKind selects how a raster is positioned on the page.
type AnchorKind int

const (
	// AnchorTopLeft pastes at (margin, margin).
	AnchorTopLeft AnchorKind = iota
	// AnchorBand pastes at x = margin, vertically centered in [Y0, Y0+Band).
	AnchorBand
	// AnchorCenter centers on the whole canvas.
	AnchorCenter
)

func (k AnchorKind) String() string {
	switch k {
	case AnchorTopLeft:
		return "top-left-margined"
	case AnchorBand:
		return "vertical-center-in-band"
	case AnchorCenter:
		return "full-center"
	}
	return "unknown"
}

// Anchor is a positioning rule. Y0 and Band are only used by AnchorBand.
type Anchor struct {
	Kind AnchorKind
	Y0   int
	Band int
}

func TopLeftMargined() Anchor { return Anchor{Kind: AnchorTopLeft} }

func VerticalCenterInBand(y0, band int) Anchor {
	return Anchor{Kind: AnchorBand, Y0: y0, Band: band}
}

func FullCenter() Anchor { return Anchor{Kind: AnchorCenter} }

// Placement is a raster and where it goes.
type Placement struct {
	Image  image.Image
	Anchor Anchor
}

// Place computes where a w x h raster lands on a canvas of the given size.
// Bounds are not checked here; callers size their rasters upstream.
func Place(size layout.Size, w, h int, a Anchor) layout.Rect {
	r := layout.Rect{W: w, H: h}
	switch a.Kind {
	case AnchorTopLeft:
		r.X, r.Y = layout.Margin, layout.Margin
	case AnchorBand:
		r.X = layout.Margin
		r.Y = a.Y0 + (a.Band-h)/2
	case AnchorCenter:
		r.X = (size.W - w) / 2
		r.Y = (size.H - h) / 2
	}
	return r
}

// Layout returns the rectangles the placements would occupy, in order.
func Layout(size layout.Size, placements []Placement) []layout.Rect {
	rects := make([]layout.Rect, len(placements))
	for i, p := range placements {
		b := p.Image.Bounds()
		rects[i] = Place(size, b.Dx(), b.Dy(), p.Anchor)
	}
	return rects
}

// Compose creates a fresh canvas and pastes each placement onto it. The
// rasters are copied; the canvas shares no memory with them afterwards.
func Compose(size layout.Size, placements []Placement) (*image.NRGBA, []layout.Rect) {
	canvas := imaging.New(size.W, size.H, Background)
	rects := Layout(size, placements)
	for i, p := range placements {
		draw.Draw(canvas, rects[i].Bounds(), p.Image, p.Image.Bounds().Min, draw.Over)
	}
	return canvas, rects
}
