package scan

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatal(err)
	}
}

func writePDF(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	dir := filepath.Join(parts...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestSortNames(t *testing.T) {
	names := []string{"张三", "a10", "B1", "李四", "a2"}
	SortNames(names)
	want := []string{"a2", "a10", "B1", "李四", "张三"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("SortNames = %v, want %v", names, want)
	}
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "photo.jpg") // content wins over extension
	writePNG(t, pngPath)
	pdfPath := filepath.Join(dir, "invoice")
	writePDF(t, pdfPath)
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	if k := Detect(pngPath); k != KindImage {
		t.Errorf("png: %s", k)
	}
	if k := Detect(pdfPath); k != KindPrimary {
		t.Errorf("pdf without extension: %s", k)
	}
	if k := Detect(txt); k != KindOther {
		t.Errorf("txt: %s", k)
	}
	if k := Detect(filepath.Join(dir, "gone.png")); k != KindImage {
		t.Errorf("unreadable file should fall back to extension, got %s", k)
	}
}

func TestFolderUnreadable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	c, err := Folder(dir, Options{})
	if err == nil || c.ReadErr == nil {
		t.Fatalf("err = %v, ReadErr = %v", err, c.ReadErr)
	}
	if c.ID != dir {
		t.Errorf("case id %q, want %q", c.ID, dir)
	}
}

func TestScanClassifiesCases(t *testing.T) {
	root := t.TempDir()
	c10 := mkdir(t, root, "case10")
	c2 := mkdir(t, root, "case2")

	writePDF(t, filepath.Join(c2, "invoice.pdf"))
	writePNG(t, filepath.Join(c2, "b.png"))
	writePNG(t, filepath.Join(c2, "a.png"))
	writePNG(t, filepath.Join(c2, "NEWLINE_2.png"))
	writePNG(t, filepath.Join(c2, "NEWLINE_1.png"))
	writePNG(t, filepath.Join(c2, "NEWPAGE.png"))
	if err := os.WriteFile(filepath.Join(c2, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(c10, "only.png"))

	cases, err := Scan(root, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(cases) != 2 || cases[0].ID != c2 || cases[1].ID != c10 {
		t.Fatalf("cases = %+v", cases)
	}

	c := cases[0]
	join := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(c2, n)
		}
		return out
	}
	if !reflect.DeepEqual(c.Primaries, join("invoice.pdf")) {
		t.Errorf("primaries %v", c.Primaries)
	}
	if !reflect.DeepEqual(c.Collage, join("a.png", "b.png")) {
		t.Errorf("collage %v", c.Collage)
	}
	if !reflect.DeepEqual(c.InlineBreaks, join("NEWLINE_1.png", "NEWLINE_2.png")) {
		t.Errorf("inline breaks %v", c.InlineBreaks)
	}
	if !reflect.DeepEqual(c.PageBreaks, join("NEWPAGE.png")) {
		t.Errorf("page breaks %v", c.PageBreaks)
	}
	if len(cases[1].Primaries) != 0 || len(cases[1].Collage) != 1 {
		t.Errorf("second case %+v", cases[1])
	}
}

func TestScanCustomPrefixes(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, root, "c")
	writePNG(t, filepath.Join(dir, "BR_x.png"))
	writePNG(t, filepath.Join(dir, "NEWLINE.png"))

	cases, err := Scan(root, Options{InlinePrefix: "BR_", PagePrefix: "PG_"})
	if err != nil {
		t.Fatal(err)
	}
	c := cases[0]
	if len(c.InlineBreaks) != 1 || len(c.Collage) != 1 || filepath.Base(c.Collage[0]) != "NEWLINE.png" {
		t.Errorf("custom prefixes: %+v", c)
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope"), Options{}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestRenamePrimaries(t *testing.T) {
	root := t.TempDir()
	one := mkdir(t, root, "alpha")
	writePDF(t, filepath.Join(one, "scan001.pdf"))
	two := mkdir(t, root, "beta")
	writePDF(t, filepath.Join(two, "x.pdf"))
	writePDF(t, filepath.Join(two, "y.pdf"))
	mkdir(t, root, "empty")

	res, err := RenamePrimaries(root)
	if err != nil {
		t.Fatalf("RenamePrimaries: %v", err)
	}
	if res.Renamed != 1 || res.Skipped != 2 {
		t.Errorf("result %+v, want 1 renamed 2 skipped", res)
	}
	if _, err := os.Stat(filepath.Join(one, "alpha.pdf")); err != nil {
		t.Errorf("alpha.pdf missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(two, "x.pdf")); err != nil {
		t.Errorf("beta was touched: %v", err)
	}
}
