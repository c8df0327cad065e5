// Package jobs runs the scan, assemble and write pipeline, either inline for
// the CLI or on a single background worker for the HTTP API.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/assembler"
	"github.com/local/casebinder/internal/pdfout"
	"github.com/local/casebinder/internal/scan"
)

// ErrNoCases is returned when no case produced pages, so no file is written.
var ErrNoCases = errors.New("no case produced any pages")

// Request describes one assembly run.
type Request struct {
	Input    string          `json:"input"`
	Output   string          `json:"output,omitempty"`
	OnExists pdfout.OnExists `json:"on_exists,omitempty"`
}

// Result is what a finished run produced.
type Result struct {
	Output string           `json:"output,omitempty"`
	Cases  int              `json:"cases"`
	Report assembler.Report `json:"report"`
}

// Runner executes a Request. *Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req Request, progress func(assembler.Progress)) (Result, error)
}

// Pipeline wires the collaborators of a run.
type Pipeline struct {
	Scan       scan.Options
	Planner    assembler.CasePlanner
	Writer     *pdfout.Writer
	TempMaxAge time.Duration
	// Now is the clock used for default output names.
	Now func() time.Time
}

// Run scans req.Input, assembles every case and writes the PDF. The report
// is returned even when the run fails after assembly.
func (p *Pipeline) Run(ctx context.Context, req Request, progress func(assembler.Progress)) (Result, error) {
	var res Result
	cases, err := scan.Scan(req.Input, p.Scan)
	if err != nil {
		return res, err
	}
	res.Cases = len(cases)

	doc, report, err := assembler.Assemble(ctx, cases, assembler.Options{Planner: p.Planner, Progress: progress})
	res.Report = report
	if err != nil {
		return res, err
	}
	if report.SuccessCount == 0 {
		return res, ErrNoCases
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	dest := pdfout.ResolveOutput(req.Output, req.Input, report.SuccessCount, now())
	out, err := p.Writer.Write(ctx, doc, dest, req.OnExists)
	if err != nil {
		return res, fmt.Errorf("failed to write output: %w", err)
	}
	res.Output = out

	if !pdfout.IsRemote(out) && p.TempMaxAge > 0 {
		pdfout.CleanupTemps(filepath.Dir(out), p.TempMaxAge)
	}
	log.Info().
		Str("input", req.Input).
		Str("output", out).
		Int("cases", res.Cases).
		Int("succeeded", report.SuccessCount).
		Int("pages", report.Pages).
		Msg("run complete")
	return res, nil
}
