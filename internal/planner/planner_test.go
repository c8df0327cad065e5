package planner

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"github.com/local/casebinder/internal/imagerender"
	"github.com/local/casebinder/internal/layout"
)

func solid(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+1], img.Pix[i+3] = 128, 255
	}
	return img
}

type fakeDoc struct {
	pages  int
	img    image.Image
	closed *bool
}

func (d fakeDoc) NumPage() int { return d.pages }

func (d fakeDoc) Render(int, float64) (image.Image, error) { return d.img, nil }

func (d fakeDoc) Close() error {
	*d.closed = true
	return nil
}

type fakeOpener struct {
	docs   map[string]fakeDoc
	closed bool
}

func (o *fakeOpener) Open(path string) (imagerender.Document, error) {
	d, ok := o.docs[path]
	if !ok {
		return nil, &layout.DecodeError{Path: path, Err: errors.New("no such document")}
	}
	d.closed = &o.closed
	return d, nil
}

type fakeLoader map[string]image.Image

func (l fakeLoader) Load(path string) (image.Image, error) {
	img, ok := l[path]
	if !ok {
		return nil, &layout.DecodeError{Path: path, Err: errors.New("cannot decode")}
	}
	return img, nil
}

// primary of the given rendered height at content width
func newPlanner(primaryHeight, pages int) (*Planner, *fakeOpener) {
	opener := &fakeOpener{docs: map[string]fakeDoc{
		"case/doc.pdf": {pages: pages, img: solid(layout.ContentWidth/2, primaryHeight/2)},
	}}
	loader := fakeLoader{
		"case/a.jpg":       solid(300, 400),
		"case/b.jpg":       solid(300, 400),
		"case/c.jpg":       solid(400, 300),
		"case/NEWLINE.png": solid(400, 300),
		"case/NEWPAGE.png": solid(800, 600),
		"case/tall.png":    solid(100, 200),
	}
	return New(opener, loader), opener
}

func baseCase() Case {
	return Case{ID: "case", Primaries: []string{"case/doc.pdf"}, Collage: []string{"case/a.jpg", "case/b.jpg"}}
}

func TestDecide(t *testing.T) {
	one := Decide(2000)
	if one.NeedsSecondPage {
		t.Fatal("2000 px primary should share its page")
	}
	want := layout.Rect{X: 118, Y: 2118, W: 2244, H: 1272}
	if one.CollageRect != want {
		t.Errorf("collage rect %+v, want %+v", one.CollageRect, want)
	}
	if !Decide(2291).NeedsSecondPage || Decide(2290).NeedsSecondPage {
		t.Error("threshold should sit between 2290 and 2291")
	}
	two := Decide(2800)
	if !two.NeedsSecondPage || two.CollageRect.H != layout.ContentHeight {
		t.Errorf("2800 px decision %+v", two)
	}
}

func TestPlanOnePage(t *testing.T) {
	p, opener := newPlanner(2000, 1)
	pages, err := p.Plan(baseCase())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(pages) != 1 || pages[0].Kind != layout.KindCombined {
		t.Fatalf("got %d pages, want one combined page", len(pages))
	}
	pl := pages[0].Placements
	if pl[0] != (layout.Rect{X: 118, Y: 118, W: 2244, H: 2000}) {
		t.Errorf("primary at %+v", pl[0])
	}
	// two 3:4 images fit the 1272 px band at full height
	if pl[1].H != 1272 || pl[1].Y != 2118 || pl[1].X != 118 {
		t.Errorf("collage at %+v, want row height 1272 at y=2118", pl[1])
	}
	if !opener.closed {
		t.Error("primary document was not closed")
	}
}

func TestPlannedPagesAreFrozenAsJPEG(t *testing.T) {
	p, _ := newPlanner(2800, 1)
	p.JPEGQuality = 60
	pages, err := p.Plan(baseCase())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	raw := 4 * layout.PageWidth * layout.PageHeight
	for i, pg := range pages {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(pg.JPEG))
		if err != nil {
			t.Fatalf("page %d is not a JPEG: %v", i, err)
		}
		if cfg.Width != layout.PageWidth || cfg.Height != layout.PageHeight {
			t.Errorf("page %d is %dx%d", i, cfg.Width, cfg.Height)
		}
		if len(pg.JPEG) >= raw/10 {
			t.Errorf("page %d holds %d bytes, close to the raw canvas size %d", i, len(pg.JPEG), raw)
		}
	}
}

func TestPlanTwoPage(t *testing.T) {
	p, _ := newPlanner(2800, 1)
	pages, err := p.Plan(baseCase())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(pages) != 2 || pages[0].Kind != layout.KindPrimary || pages[1].Kind != layout.KindCollage {
		t.Fatalf("unexpected pages: %d", len(pages))
	}
	if got := pages[0].Placements[0]; got.Y != layout.Margin || got.H != 2800 {
		t.Errorf("primary at %+v", got)
	}
	c := pages[1].Placements[0]
	if c.X != (layout.PageWidth-c.W)/2 || c.Y != (layout.PageHeight-c.H)/2 {
		t.Errorf("collage not full-centered: %+v", c)
	}
}

func TestPlanMultiPagePrimary(t *testing.T) {
	p, _ := newPlanner(1000, 3)
	pages, err := p.Plan(baseCase())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(pages) != 4 {
		t.Fatalf("got %d pages, want 3 imported + 1 collage", len(pages))
	}
	for i := 0; i < 3; i++ {
		src := pages[i].Source
		if !pages[i].Imported() || src.Number != i+1 || src.Total != 3 || src.Path != "case/doc.pdf" {
			t.Errorf("page %d = %+v", i, pages[i])
		}
	}
	if pages[3].Kind != layout.KindCollage || len(pages[3].JPEG) == 0 {
		t.Errorf("last page %+v", pages[3].Kind)
	}
}

func TestPlanBreaksFollowContentInOrder(t *testing.T) {
	p, _ := newPlanner(2000, 1)
	c := baseCase()
	c.InlineBreaks = []string{"case/NEWLINE.png"}
	c.PageBreaks = []string{"case/NEWPAGE.png"}
	pages, err := p.Plan(c)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	kinds := []layout.PageKind{layout.KindCombined, layout.KindInlineBreak, layout.KindPageBreak}
	if len(pages) != len(kinds) {
		t.Fatalf("got %d pages, want %d", len(pages), len(kinds))
	}
	for i, k := range kinds {
		if pages[i].Kind != k {
			t.Errorf("page %d kind %s, want %s", i, pages[i].Kind, k)
		}
	}
	// 4:3 break image at content width is 1683 px tall
	want := layout.Rect{X: 118, Y: (layout.PageHeight - 1683) / 2, W: 2244, H: 1683}
	if got := pages[1].Placements[0]; got != want {
		t.Errorf("break placed at %+v, want %+v", got, want)
	}
}

func TestPlanSkipsInvalidShape(t *testing.T) {
	p, _ := newPlanner(2000, 1)
	tests := []struct {
		name string
		c    Case
	}{
		{"no primary", Case{ID: "x", Collage: []string{"case/a.jpg", "case/b.jpg"}}},
		{"two primaries", Case{ID: "x", Primaries: []string{"a.pdf", "b.pdf"}, Collage: []string{"case/a.jpg", "case/b.jpg"}}},
		{"one image", Case{ID: "x", Primaries: []string{"case/doc.pdf"}, Collage: []string{"case/a.jpg"}, PageBreaks: []string{"case/NEWPAGE.png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := p.Plan(tt.c)
			var valErr *layout.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if valErr.PrimaryCount != len(tt.c.Primaries) || valErr.ImageCount != len(tt.c.Collage) {
				t.Errorf("counts %d/%d", valErr.PrimaryCount, valErr.ImageCount)
			}
			if pages != nil {
				t.Errorf("skipped case produced %d pages", len(pages))
			}
		})
	}
}

func TestPlanUnreadableFolderKeepsReadError(t *testing.T) {
	p, _ := newPlanner(2000, 1)
	readErr := errors.New("permission denied")
	pages, err := p.Plan(Case{ID: "locked", ReadErr: readErr})
	if !errors.Is(err, readErr) || layout.Classify(err) != layout.KindDecode {
		t.Fatalf("err = %v (%s), want the read error", err, layout.Classify(err))
	}
	if pages != nil {
		t.Errorf("unreadable case produced %d pages", len(pages))
	}
}

func TestPlanDecodeFailureAbortsCase(t *testing.T) {
	p, _ := newPlanner(2000, 1)
	c := baseCase()
	c.Collage = append(c.Collage, "case/corrupt.png")
	pages, err := p.Plan(c)
	if layout.Classify(err) != layout.KindDecode || pages != nil {
		t.Fatalf("Plan = %d pages, %v; want decode error and no pages", len(pages), err)
	}

	c = baseCase()
	c.Primaries = []string{"case/missing.pdf"}
	if _, err := p.Plan(c); layout.Classify(err) != layout.KindDecode {
		t.Fatalf("missing primary: %v", err)
	}
}

func TestPlanTallBreakIsLayoutError(t *testing.T) {
	p, _ := newPlanner(2000, 1)
	c := baseCase()
	c.PageBreaks = []string{"case/tall.png"}
	pages, err := p.Plan(c)
	if layout.Classify(err) != layout.KindLayout || pages != nil {
		t.Fatalf("Plan = %d pages, %v; want layout error", len(pages), err)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	p, _ := newPlanner(2000, 1)
	c := baseCase()
	c.Collage = append(c.Collage, "case/c.jpg")
	first, err := p.Plan(c)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Plan(c)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		a, b := first[i].Placements, second[i].Placements
		if len(a) != len(b) {
			t.Fatalf("page %d placement count differs", i)
		}
		for j := range a {
			if a[j] != b[j] {
				t.Errorf("page %d placement %d: %+v vs %+v", i, j, a[j], b[j])
			}
		}
	}
}

func TestStateString(t *testing.T) {
	if StateTwoPage.String() != "two_page" || State(99).String() != "state(99)" {
		t.Error("unexpected state names")
	}
}
