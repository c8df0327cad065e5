// Package assembler runs the planner over an ordered list of cases and
// collects the pages and the run report.
package assembler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/layout"
	"github.com/local/casebinder/internal/metrics"
	"github.com/local/casebinder/internal/planner"
)

// CasePlanner lays out one case. *planner.Planner satisfies it.
type CasePlanner interface {
	Plan(c planner.Case) ([]layout.Page, error)
}

// Skip records a case that contributed no pages.
type Skip struct {
	CaseID       string `json:"case_id"`
	PrimaryCount int    `json:"primary_count"`
	ImageCount   int    `json:"image_count"`
	Reason       string `json:"reason"`
	Kind         string `json:"kind"`
}

// Report is the machine-readable run summary.
type Report struct {
	SuccessCount int      `json:"success_count"`
	Pages        int      `json:"pages"`
	Succeeded    []string `json:"succeeded"`
	Skipped      []Skip   `json:"skipped"`
}

// Progress is reported after every case.
type Progress struct {
	Done   int
	Total  int
	CaseID string
	OK     bool
}

// Options configures Assemble.
type Options struct {
	// Planner defaults to planner.New(nil, nil).
	Planner CasePlanner
	// Progress, when set, is called after each case finishes.
	Progress func(Progress)
}

// Assemble processes cases strictly in the given order. A failing case is
// recorded in the report and contributes zero pages; it never stops the run.
// Cancellation is observed between cases only: the pages and report gathered
// so far are returned together with ctx.Err().
func Assemble(ctx context.Context, cases []planner.Case, opts Options) (*layout.Document, Report, error) {
	p := opts.Planner
	if p == nil {
		p = planner.New(nil, nil)
	}

	doc := &layout.Document{}
	report := Report{Succeeded: []string{}, Skipped: []Skip{}}

	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("done", i).Int("total", len(cases)).Msg("assembly cancelled at case boundary")
			return doc, report, err
		}

		start := time.Now()
		pages, err := p.Plan(c)
		if err != nil {
			skip := skipFor(c, err)
			report.Skipped = append(report.Skipped, skip)
			metrics.ObserveCase(skip.Kind, time.Since(start))
			log.Warn().Str("case", c.ID).Str("kind", skip.Kind).Err(err).Msg("case skipped")
		} else {
			doc.Append(pages...)
			report.SuccessCount++
			report.Pages += len(pages)
			report.Succeeded = append(report.Succeeded, c.ID)
			metrics.ObserveCase("ok", time.Since(start))
			for _, pg := range pages {
				metrics.AddPages(string(pg.Kind), 1)
			}
		}

		if opts.Progress != nil {
			opts.Progress(Progress{Done: i + 1, Total: len(cases), CaseID: c.ID, OK: err == nil})
		}
	}

	log.Info().
		Int("cases", len(cases)).
		Int("succeeded", report.SuccessCount).
		Int("skipped", len(report.Skipped)).
		Int("pages", report.Pages).
		Msg("assembly finished")
	return doc, report, nil
}

func skipFor(c planner.Case, err error) Skip {
	s := Skip{
		CaseID:       c.ID,
		PrimaryCount: len(c.Primaries),
		ImageCount:   len(c.Collage),
		Reason:       err.Error(),
		Kind:         layout.Classify(err),
	}
	var valErr *layout.ValidationError
	if errors.As(err, &valErr) && valErr.Message != "" {
		s.Reason = valErr.Message
	}
	return s
}
