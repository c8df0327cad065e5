package pdfout

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/local/casebinder/internal/imagerender"
	"github.com/local/casebinder/internal/layout"
)

func canvasPage(t *testing.T, caseID string) layout.Page {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 62, 88))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := imagerender.EncodePage(&buf, img, 80); err != nil {
		t.Fatal(err)
	}
	return layout.Page{Kind: layout.KindCombined, CaseID: caseID, JPEG: buf.Bytes()}
}

// writeSourcePDF creates a plain n-page PDF to stand in for a primary document.
func writeSourcePDF(t *testing.T, path string, n int) {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	for i := 0; i < n; i++ {
		pdf.AddPage()
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	return n
}

func TestEncodeRenderedPages(t *testing.T) {
	doc := &layout.Document{}
	doc.Append(canvasPage(t, "a"), canvasPage(t, "a"), canvasPage(t, "b"))

	var buf bytes.Buffer
	if err := NewWriter(nil).Encode(context.Background(), doc, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	if n := pageCount(t, buf.Bytes()); n != 3 {
		t.Fatalf("pages = %d, want 3", n)
	}
}

func TestEncodeMergesImportedPages(t *testing.T) {
	src := filepath.Join(t.TempDir(), "primary.pdf")
	writeSourcePDF(t, src, 2)

	doc := &layout.Document{}
	doc.Append(
		canvasPage(t, "a"),
		layout.Page{Kind: layout.KindImported, CaseID: "b", Source: &layout.SourcePage{Path: src, Number: 1, Total: 2}},
		layout.Page{Kind: layout.KindImported, CaseID: "b", Source: &layout.SourcePage{Path: src, Number: 2, Total: 2}},
		canvasPage(t, "b"),
	)
	var buf bytes.Buffer
	if err := NewWriter(nil).Encode(context.Background(), doc, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n := pageCount(t, buf.Bytes()); n != 4 {
		t.Fatalf("pages = %d, want 4", n)
	}
}

func TestEncodeRejectsPartialImport(t *testing.T) {
	src := filepath.Join(t.TempDir(), "primary.pdf")
	writeSourcePDF(t, src, 3)
	doc := &layout.Document{}
	doc.Append(layout.Page{Kind: layout.KindImported, Source: &layout.SourcePage{Path: src, Number: 1, Total: 3}})
	if err := NewWriter(nil).Encode(context.Background(), doc, io.Discard); err == nil {
		t.Fatal("expected error for partial import")
	}
}

func TestWriteLocalPolicies(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.pdf")
	doc := &layout.Document{}
	doc.Append(canvasPage(t, "a"))
	w := NewWriter(nil)
	ctx := context.Background()

	got, err := w.Write(ctx, doc, dest, OnExistsFail)
	if err != nil || got != dest {
		t.Fatalf("first write: %q %v", got, err)
	}
	if _, err := w.Write(ctx, doc, dest, OnExistsFail); !errors.Is(err, ErrExists) {
		t.Fatalf("second write with fail: %v", err)
	}
	got, err = w.Write(ctx, doc, dest, OnExistsRename)
	if err != nil || got != filepath.Join(dir, "out_1.pdf") {
		t.Fatalf("rename write: %q %v", got, err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, tempPattern))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}

	if _, err := w.Write(ctx, doc, filepath.Join(dir, ".casebinder-x.part"), OnExistsOverwrite); err == nil {
		t.Error("write to a temp-shaped name should fail")
	}
}

func TestWriteEmptyDocument(t *testing.T) {
	_, err := NewWriter(nil).Write(context.Background(), &layout.Document{}, filepath.Join(t.TempDir(), "x.pdf"), OnExistsFail)
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("err = %v, want ErrNoPages", err)
	}
}

type memSink struct {
	objects map[string][]byte
}

func (m *memSink) Exists(_ context.Context, dest string) (bool, error) {
	_, ok := m.objects[dest]
	return ok, nil
}

func (m *memSink) Put(_ context.Context, dest string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[dest] = data
	return nil
}

func TestWriteRemote(t *testing.T) {
	sink := &memSink{objects: map[string][]byte{"s3://b/out.pdf": nil}}
	doc := &layout.Document{}
	doc.Append(canvasPage(t, "a"))

	got, err := NewWriter(sink).Write(context.Background(), doc, "s3://b/out.pdf", OnExistsRename)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got != "s3://b/out_1.pdf" || !bytes.HasPrefix(sink.objects[got], []byte("%PDF")) {
		t.Fatalf("uploaded to %q", got)
	}

	if _, err := NewWriter(nil).Write(context.Background(), doc, "s3://b/x.pdf", OnExistsFail); err == nil {
		t.Fatal("expected error without a remote sink")
	}
}
