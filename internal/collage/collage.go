// Package collage packs auxiliary images into one raster that fills a target
// rectangle without distortion, clipping or overlap.
package collage

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/imagerender"
	"github.com/local/casebinder/internal/layout"
)

// Strategy names a packing strategy.
type Strategy string

const (
	StrategyRow  Strategy = "row"
	StrategyGrid Strategy = "grid"
)

// Background of the collage raster.
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Plan is the geometry of a collage before any pixel is touched. Cells are in
// input order and give the final size and offset of each image.
type Plan struct {
	Strategy Strategy
	Width    int
	Height   int
	Rows     int
	Cells    []layout.Rect
}

// Choose returns the strategy used for n images: a row for 2–4, a grid
// otherwise (including the single-image case).
func Choose(n int) Strategy {
	if n >= 2 && n <= 4 {
		return StrategyRow
	}
	return StrategyGrid
}

// PlanFor dispatches to PlanRow or PlanGrid.
func PlanFor(sizes []layout.Size, maxWidth, cellHeight int) (Plan, error) {
	if Choose(len(sizes)) == StrategyRow {
		return PlanRow(sizes, maxWidth, cellHeight)
	}
	return PlanGrid(sizes, maxWidth, cellHeight)
}

// Pack composes images into a single raster at most maxWidth wide and
// cellHeight tall. It returns nil, nil when there is nothing to pack.
func Pack(images []image.Image, maxWidth, cellHeight int) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, nil
	}

	sizes := make([]layout.Size, len(images))
	for i, img := range images {
		w, h := imagerender.Dimensions(img)
		sizes[i] = layout.Size{W: w, H: h}
	}

	plan, err := PlanFor(sizes, maxWidth, cellHeight)
	if err != nil {
		return nil, err
	}

	canvas := imaging.New(plan.Width, plan.Height, Background)
	for i, img := range images {
		cell := plan.Cells[i]
		scaled, err := imagerender.Resize(img, cell.W, cell.H)
		if err != nil {
			return nil, err
		}
		draw.Draw(canvas, cell.Bounds(), scaled, image.Point{}, draw.Over)
	}

	log.Debug().
		Str("strategy", string(plan.Strategy)).
		Int("images", len(images)).
		Int("rows", plan.Rows).
		Int("width", plan.Width).
		Int("height", plan.Height).
		Int("max_width", maxWidth).
		Int("cell_height", cellHeight).
		Msg("packed collage")

	return canvas, nil
}

func checkSizes(op string, sizes []layout.Size, maxWidth, cellHeight int) error {
	if maxWidth <= 0 || cellHeight <= 0 {
		return layout.Layoutf(op, "target %dx%d is not positive", maxWidth, cellHeight)
	}
	for i, s := range sizes {
		if s.W <= 0 || s.H <= 0 {
			return layout.Layoutf(op, "image %d has size %dx%d", i, s.W, s.H)
		}
	}
	return nil
}
