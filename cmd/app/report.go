package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/local/casebinder/internal/assembler"
	"github.com/local/casebinder/internal/layout"
	"github.com/local/casebinder/internal/planner"
)

// printSkipTable lists skipped cases. Shape problems show which count was
// wrong; other failures show the error.
func printSkipTable(w io.Writer, report assembler.Report) {
	if len(report.Skipped) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSkipped cases:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tPDF\tIMAGES")
	for _, s := range report.Skipped {
		if s.Kind != layout.KindValidation {
			fmt.Fprintf(tw, "%s\terror\t%s\n", s.CaseID, s.Reason)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.CaseID,
			countStatus(s.PrimaryCount, s.PrimaryCount == 1),
			countStatus(s.ImageCount, s.ImageCount >= planner.MinCollageImages))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nEach case folder needs exactly 1 PDF and at least %d images.\n", planner.MinCollageImages)
}

func countStatus(n int, ok bool) string {
	if ok {
		return "✓"
	}
	return fmt.Sprintf("X(%d)", n)
}

// progressPrinter writes one line per finished case.
type progressPrinter struct {
	w     io.Writer
	lines int
}

func newProgressPrinter(w io.Writer) *progressPrinter { return &progressPrinter{w: w} }

func (p *progressPrinter) update(pr assembler.Progress) {
	mark := "ok"
	if !pr.OK {
		mark = "skipped"
	}
	fmt.Fprintf(p.w, "[%d/%d] %s: %s\n", pr.Done, pr.Total, pr.CaseID, mark)
	p.lines++
}

func (p *progressPrinter) finish() {
	if p.lines == 0 {
		fmt.Fprintln(p.w, "No case folders found.")
	}
}
