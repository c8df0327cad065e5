package pdfout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/layout"
)

// ErrNoPages is returned when there is nothing to write.
var ErrNoPages = errors.New("document has no pages")

// Sink stores finished PDFs at remote destinations such as s3://bucket/key.
type Sink interface {
	Exists(ctx context.Context, dest string) (bool, error)
	Put(ctx context.Context, dest string, r io.Reader, size int64) error
}

// Writer turns a layout.Document into a PDF.
type Writer struct {
	// Remote handles s3:// destinations; nil disables them.
	Remote Sink
}

// NewWriter returns a Writer with an optional remote sink.
func NewWriter(remote Sink) *Writer {
	return &Writer{Remote: remote}
}

// Write encodes doc and stores it at dest after applying policy. It returns
// the destination actually written.
func (w *Writer) Write(ctx context.Context, doc *layout.Document, dest string, policy OnExists) (string, error) {
	if doc == nil || doc.Len() == 0 {
		return "", ErrNoPages
	}
	if IsRemote(dest) {
		return w.writeRemote(ctx, doc, dest, policy)
	}
	return w.writeLocal(ctx, doc, dest, policy)
}

func (w *Writer) writeLocal(ctx context.Context, doc *layout.Document, dest string, policy OnExists) (string, error) {
	if isTempName(filepath.Base(dest)) {
		return "", fmt.Errorf("output name %q is reserved for partial writes", filepath.Base(dest))
	}
	target, err := claim(ctx, dest, policy, localExists)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := w.Encode(ctx, doc, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}

	log.Info().Str("output", target).Int("pages", doc.Len()).Msg("PDF written")
	return target, nil
}

func (w *Writer) writeRemote(ctx context.Context, doc *layout.Document, dest string, policy OnExists) (string, error) {
	if w.Remote == nil {
		return "", fmt.Errorf("no remote storage configured for %s", dest)
	}
	target, err := claim(ctx, dest, policy, w.Remote.Exists)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := w.Encode(ctx, doc, &buf); err != nil {
		return "", err
	}
	if err := w.Remote.Put(ctx, target, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", fmt.Errorf("failed to upload output: %w", err)
	}

	log.Info().Str("output", target).Int("pages", doc.Len()).Int("bytes", buf.Len()).Msg("PDF uploaded")
	return target, nil
}

// Encode writes doc as a single PDF to out. Runs of rendered pages become
// image-only A4 pages; imported pages are copied from their source file.
func (w *Writer) Encode(ctx context.Context, doc *layout.Document, out io.Writer) error {
	if doc == nil || doc.Len() == 0 {
		return ErrNoPages
	}
	segments, err := w.segments(ctx, doc.Pages)
	if err != nil {
		return err
	}

	if len(segments) == 1 {
		if _, err := out.Write(segments[0]); err != nil {
			return fmt.Errorf("failed to write PDF: %w", err)
		}
		return nil
	}

	readers := make([]io.ReadSeeker, len(segments))
	for i, data := range segments {
		readers[i] = bytes.NewReader(data)
	}
	if err := api.MergeRaw(readers, out, false, pdfConfig()); err != nil {
		return fmt.Errorf("failed to merge PDF segments: %w", err)
	}
	return nil
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// segments splits pages into PDF byte blobs in output order.
func (w *Writer) segments(ctx context.Context, pages []layout.Page) ([][]byte, error) {
	var segments [][]byte
	for i := 0; i < len(pages); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		j := i + 1
		if pages[i].Imported() {
			for j < len(pages) && pages[j].Imported() && pages[j].Source.Path == pages[i].Source.Path && pages[j].Source.Number == pages[j-1].Source.Number+1 {
				j++
			}
			data, err := importSource(pages[i:j])
			if err != nil {
				return nil, err
			}
			segments = append(segments, data)
		} else {
			for j < len(pages) && !pages[j].Imported() {
				j++
			}
			data, err := w.renderCanvases(pages[i:j])
			if err != nil {
				return nil, err
			}
			segments = append(segments, data)
		}
		i = j
	}
	return segments, nil
}

// importSource returns the bytes of the source PDF behind a run of imported
// pages. Only whole documents are supported.
func importSource(run []layout.Page) ([]byte, error) {
	src := run[0].Source
	if src.Number != 1 || len(run) != src.Total {
		return nil, fmt.Errorf("partial import of %s (pages %d..%d of %d) is not supported", src.Path, src.Number, src.Number+len(run)-1, src.Total)
	}
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Path, err)
	}
	n, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return nil, fmt.Errorf("pdf page count failed for %s: %w", src.Path, err)
	}
	if n != src.Total {
		return nil, fmt.Errorf("%s has %d pages, expected %d", src.Path, n, src.Total)
	}
	log.Debug().Str("pdf", src.Path).Int("pages", n).Msg("imported primary verbatim")
	return data, nil
}

// renderCanvases lays every frozen page full-bleed on its own A4 page.
func (w *Writer) renderCanvases(run []layout.Page) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pageW, pageH := pdf.GetPageSize()

	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: "JPG"}
	for i, page := range run {
		if len(page.JPEG) == 0 {
			return nil, fmt.Errorf("%s page of case %s has no image", page.Kind, page.CaseID)
		}

		imageName := fmt.Sprintf("page%d", i)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(page.JPEG))
		pdf.ImageOptions(imageName, 0, 0, pageW, pageH, false, opts, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return out.Bytes(), nil
}
