// Package planner decides and renders the pages contributed by one case.
package planner

import (
	"bytes"
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/collage"
	"github.com/local/casebinder/internal/compositor"
	"github.com/local/casebinder/internal/imagerender"
	"github.com/local/casebinder/internal/layout"
)

// Planner turns a Case into its ordered output pages.
type Planner struct {
	// JPEGQuality is used when a finished page is frozen; 0 means 90.
	JPEGQuality int

	opener imagerender.Opener
	loader imagerender.Loader
}

// New creates a Planner. Nil collaborators fall back to go-fitz and the
// filesystem image loader.
func New(opener imagerender.Opener, loader imagerender.Loader) *Planner {
	if opener == nil {
		opener = imagerender.FitzOpener{}
	}
	if loader == nil {
		loader = imagerender.FileLoader{}
	}
	return &Planner{opener: opener, loader: loader}
}

// run carries the state of one Plan call.
type run struct {
	c       Case
	state   State
	quality int
	pages   []layout.Page
	log     zerolog.Logger
}

func (r *run) enter(s State) {
	r.log.Debug().Str("from", r.state.String()).Str("to", s.String()).Msg("case state")
	r.state = s
}

// Plan validates and lays out c. It returns pages only when the whole case
// succeeded; on any error the case contributes nothing.
func (p *Planner) Plan(c Case) ([]layout.Page, error) {
	r := &run{c: c, state: StateScanning, quality: p.JPEGQuality, log: log.With().Str("case", c.ID).Logger()}

	r.enter(StateValidating)
	if err := c.Validate(); err != nil {
		r.enter(StateSkipped)
		return nil, err
	}

	r.enter(StateRendering)
	images, err := p.loadAll(c.Collage)
	if err != nil {
		return nil, err
	}
	if err := p.renderPrimary(r, c.Primaries[0], images); err != nil {
		return nil, err
	}

	r.enter(StateEmittingBreaks)
	if err := p.emitBreaks(r, c.InlineBreaks, layout.KindInlineBreak); err != nil {
		return nil, err
	}
	if err := p.emitBreaks(r, c.PageBreaks, layout.KindPageBreak); err != nil {
		return nil, err
	}

	r.enter(StateDone)
	r.log.Info().Int("pages", len(r.pages)).Msg("case laid out")
	return r.pages, nil
}

func (p *Planner) loadAll(paths []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		img, err := p.loader.Load(path)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (p *Planner) renderPrimary(r *run, path string, images []image.Image) error {
	doc, err := p.opener.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	total := doc.NumPage()
	if total < 1 {
		return &layout.DecodeError{Path: path, Err: fmt.Errorf("document has no pages")}
	}
	if total > 1 {
		return p.layoutMultiPage(r, path, total, images)
	}

	primary, err := imagerender.RenderPrimary(doc)
	if err != nil {
		return err
	}
	decision := Decide(primary.Bounds().Dy())
	r.log.Debug().
		Int("primary_height", decision.PrimaryHeight).
		Bool("second_page", decision.NeedsSecondPage).
		Float64("threshold", layout.SplitThreshold).
		Msg("page split decision")

	if decision.NeedsSecondPage {
		return p.layoutTwoPage(r, primary, images)
	}
	return p.layoutOnePage(r, primary, decision, images)
}

// layoutMultiPage copies every page of the primary verbatim and gives the
// collage a dedicated page.
func (p *Planner) layoutMultiPage(r *run, path string, total int, images []image.Image) error {
	r.log.Debug().Int("primary_pages", total).Msg("multi-page primary inserted verbatim")
	for n := 1; n <= total; n++ {
		r.pages = append(r.pages, layout.Page{
			Kind:   layout.KindImported,
			CaseID: r.c.ID,
			Source: &layout.SourcePage{Path: path, Number: n, Total: total},
		})
	}

	packed, err := collage.Pack(images, layout.ContentWidth, layout.ContentHeight)
	if err != nil {
		return err
	}
	if packed == nil {
		r.log.Debug().Msg("no collage images; collage page omitted")
		return nil
	}
	return r.compose(layout.KindCollage, compositor.Placement{Image: packed, Anchor: compositor.FullCenter()})
}

func (p *Planner) layoutTwoPage(r *run, primary image.Image, images []image.Image) error {
	r.enter(StateTwoPage)
	packed, err := collage.Pack(images, layout.ContentWidth, layout.ContentHeight)
	if err != nil {
		return err
	}
	if packed == nil {
		return &layout.ValidationError{Message: "no collage images to pack"}
	}
	if err := r.compose(layout.KindPrimary, compositor.Placement{Image: primary, Anchor: compositor.TopLeftMargined()}); err != nil {
		return err
	}
	return r.compose(layout.KindCollage, compositor.Placement{Image: packed, Anchor: compositor.FullCenter()})
}

func (p *Planner) layoutOnePage(r *run, primary image.Image, d LayoutDecision, images []image.Image) error {
	r.enter(StateOnePage)
	packed, err := collage.Pack(images, d.CollageRect.W, d.CollageRect.H)
	if err != nil {
		return err
	}
	if packed == nil {
		return &layout.ValidationError{Message: "no collage images to pack"}
	}
	return r.compose(layout.KindCombined,
		compositor.Placement{Image: primary, Anchor: compositor.TopLeftMargined()},
		compositor.Placement{Image: packed, Anchor: compositor.VerticalCenterInBand(d.CollageRect.Y, d.CollageRect.H)},
	)
}

// emitBreaks gives each image its own page, width-locked to the content
// width, left-margined and vertically centered on the page.
func (p *Planner) emitBreaks(r *run, paths []string, kind layout.PageKind) error {
	for _, path := range paths {
		img, err := p.loader.Load(path)
		if err != nil {
			return err
		}
		scaled, err := imagerender.ScaleToWidth(img, layout.ContentWidth)
		if err != nil {
			return err
		}
		anchor := compositor.VerticalCenterInBand(0, layout.PageHeight)
		if err := r.compose(kind, compositor.Placement{Image: scaled, Anchor: anchor}); err != nil {
			return fmt.Errorf("%s %s: %w", kind, path, err)
		}
	}
	return nil
}

// compose checks that every placement fits the canvas, then paints a new page
// and freezes it as JPEG so the raw canvas can be released right away.
func (r *run) compose(kind layout.PageKind, placements ...compositor.Placement) error {
	for i, rect := range compositor.Layout(layout.A4, placements) {
		if !rect.In(layout.A4.W, layout.A4.H) {
			return layout.Layoutf(string(kind), "placement %d at %+v overflows %dx%d canvas", i, rect, layout.A4.W, layout.A4.H)
		}
	}
	canvas, rects := compositor.Compose(layout.A4, placements)
	var buf bytes.Buffer
	if err := imagerender.EncodePage(&buf, canvas, r.quality); err != nil {
		return fmt.Errorf("%s page: %w", kind, err)
	}
	r.pages = append(r.pages, layout.Page{Kind: kind, CaseID: r.c.ID, JPEG: buf.Bytes(), Placements: rects})
	return nil
}
