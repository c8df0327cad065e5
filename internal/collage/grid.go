package collage

import "github.com/local/casebinder/internal/layout"

// PlanGrid lays images out row-major on a grid of layout.GridColumns columns
// and ceil(n/columns) rows, each image centered in its cell. A single image
// gets a one-cell grid spanning the full width.
func PlanGrid(sizes []layout.Size, maxWidth, cellHeight int) (Plan, error) {
	if err := checkSizes("grid", sizes, maxWidth, cellHeight); err != nil {
		return Plan{}, err
	}
	n := len(sizes)
	if n == 0 {
		return Plan{Strategy: StrategyGrid}, nil
	}

	cols := layout.GridColumns
	if n == 1 {
		cols = 1
	}
	rows := (n + cols - 1) / cols
	rowHeight := cellHeight / rows
	colWidth := maxWidth / cols
	if rowHeight < 1 || colWidth < 1 {
		return Plan{}, layout.Layoutf("grid", "cell %dx%d for %d images is empty", colWidth, rowHeight, n)
	}

	plan := Plan{
		Strategy: StrategyGrid,
		Width:    maxWidth,
		Height:   rows * rowHeight,
		Rows:     rows,
		Cells:    make([]layout.Rect, n),
	}
	for i, s := range sizes {
		w := s.W * rowHeight / s.H
		h := rowHeight
		if w > colWidth {
			w = colWidth
			h = s.H * colWidth / s.W
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}

		row, col := i/cols, i%cols
		plan.Cells[i] = layout.Rect{
			X: col*colWidth + (colWidth-w)/2,
			Y: row*rowHeight + (rowHeight-h)/2,
			W: w,
			H: h,
		}
	}
	return plan, nil
}
