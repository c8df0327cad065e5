package planner

import (
	"fmt"

	"github.com/local/casebinder/internal/layout"
)

// Case is one folder's worth of resolved input paths.
type Case struct {
	ID           string
	Primaries    []string
	Collage      []string
	InlineBreaks []string
	PageBreaks   []string

	// ReadErr is set when the folder itself could not be listed.
	ReadErr error
}

// MinCollageImages is the smallest collage a valid case may have.
const MinCollageImages = 2

// Validate checks the one-primary-plus-images shape. Break images do not count
// towards the collage minimum.
func (c Case) Validate() error {
	if c.ReadErr != nil {
		return &layout.DecodeError{Path: c.ID, Err: c.ReadErr}
	}
	if len(c.Primaries) != 1 || len(c.Collage) < MinCollageImages {
		return &layout.ValidationError{
			PrimaryCount: len(c.Primaries),
			ImageCount:   len(c.Collage),
			Message:      fmt.Sprintf("found %d primary documents and %d collage images, need exactly 1 and at least %d", len(c.Primaries), len(c.Collage), MinCollageImages),
		}
	}
	return nil
}

// State is a step of the per-case state machine.
type State int

const (
	StateScanning State = iota
	StateValidating
	StateSkipped
	StateRendering
	StateOnePage
	StateTwoPage
	StateEmittingBreaks
	StateDone
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateValidating:
		return "validating"
	case StateSkipped:
		return "skipped"
	case StateRendering:
		return "rendering"
	case StateOnePage:
		return "one_page"
	case StateTwoPage:
		return "two_page"
	case StateEmittingBreaks:
		return "emitting_breaks"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LayoutDecision is the page-split decision for a single-page primary.
type LayoutDecision struct {
	PrimaryHeight   int
	NeedsSecondPage bool
	// CollageRect is the area the collage is packed into: the band under the
	// primary, or the whole content rectangle of a dedicated page.
	CollageRect layout.Rect
}

// Decide computes the LayoutDecision for a primary rendered primaryHeight
// pixels tall at content width.
func Decide(primaryHeight int) LayoutDecision {
	d := LayoutDecision{PrimaryHeight: primaryHeight}
	if float64(primaryHeight) > layout.SplitThreshold {
		d.NeedsSecondPage = true
		d.CollageRect = layout.Rect{X: layout.Margin, Y: layout.Margin, W: layout.ContentWidth, H: layout.ContentHeight}
		return d
	}
	d.CollageRect = layout.Rect{
		X: layout.Margin,
		Y: layout.Margin + primaryHeight,
		W: layout.ContentWidth,
		H: layout.ContentHeight - primaryHeight,
	}
	return d
}
