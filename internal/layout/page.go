package layout

// PageKind tells what a page of the output document carries.
type PageKind string

const (
	KindCombined    PageKind = "combined"     // primary + collage on one page
	KindPrimary     PageKind = "primary"      // primary alone (two-page layout)
	KindCollage     PageKind = "collage"      // collage alone
	KindInlineBreak PageKind = "inline_break" // NEWLINE image
	KindPageBreak   PageKind = "page_break"   // NEWPAGE image
	KindImported    PageKind = "imported"     // verbatim page of a multi-page primary
)

// SourcePage points at one page of an existing PDF that is copied verbatim.
type SourcePage struct {
	Path   string
	Number int // 1-based
	Total  int // page count of Path
}

// Page is one output page. Rendered pages carry the frozen A4 canvas as
// JPEG bytes and the rectangles that were painted onto it; imported pages
// carry only Source.
type Page struct {
	Kind       PageKind
	CaseID     string
	JPEG       []byte
	Placements []Rect
	Source     *SourcePage
}

// Imported reports whether the page is copied verbatim from a source PDF.
func (p Page) Imported() bool { return p.Source != nil }

// Document is the append-only ordered page sequence handed to persistence.
type Document struct {
	Pages []Page
}

// Append adds pages in order.
func (d *Document) Append(pages ...Page) { d.Pages = append(d.Pages, pages...) }

// Len returns the number of pages.
func (d *Document) Len() int { return len(d.Pages) }
