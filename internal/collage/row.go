package collage

import "github.com/local/casebinder/internal/layout"

// PlanRow scales every image to cellHeight, then applies one uniform shrink
// maxWidth/sum when the row is too wide. All images end with the same height
// and are vertically centered in a cellHeight tall strip with no gaps.
func PlanRow(sizes []layout.Size, maxWidth, cellHeight int) (Plan, error) {
	if err := checkSizes("row", sizes, maxWidth, cellHeight); err != nil {
		return Plan{}, err
	}

	widths := make([]int, len(sizes))
	total := 0
	for i, s := range sizes {
		widths[i] = s.W * cellHeight / s.H
		if widths[i] < 1 {
			widths[i] = 1
		}
		total += widths[i]
	}

	height := cellHeight
	if total > maxWidth {
		// integer division keeps sum(widths) <= maxWidth
		height = cellHeight * maxWidth / total
		for i := range widths {
			widths[i] = widths[i] * maxWidth / total
			if widths[i] < 1 {
				return Plan{}, layout.Layoutf("row", "image %d collapsed to zero width (row of %d px into %d px)", i, total, maxWidth)
			}
		}
		if height < 1 {
			return Plan{}, layout.Layoutf("row", "row height collapsed to zero")
		}
	}

	plan := Plan{Strategy: StrategyRow, Height: cellHeight, Rows: 1, Cells: make([]layout.Rect, len(sizes))}
	y := (cellHeight - height) / 2
	x := 0
	for i, w := range widths {
		plan.Cells[i] = layout.Rect{X: x, Y: y, W: w, H: height}
		x += w
	}
	plan.Width = x
	return plan, nil
}
