// Package segmenter locates the boundary between invoice pages and
// shipping statement pages inside a merged billing PDF.
package segmenter

import (
	"fmt"

	"github.com/yamabiko/billsplit/internal/models"
	"github.com/yamabiko/billsplit/internal/pagetext"
)

// Segmentation describes how a document splits at the shipping statement
// boundary. Page indices are 0-based; the page-selection strings handed to
// the PDF writer are 1-based.
type Segmentation struct {
	// ShippingPage is the index of the first page whose first line
	// carries the shipping statement marker; 0 when no page matches.
	ShippingPage int
	// PageCount is the total number of pages in the source document.
	PageCount int
}

// FindShippingPage scans pages in order and returns the index of the first
// page opening with the shipping statement marker. Falls back to 0 when no
// page matches, making the whole document the detail segment.
func FindShippingPage(pages []pagetext.Page) int {
	for i, p := range pages {
		if p.HasShippingMarker() {
			return i
		}
	}
	return 0
}

// Segment partitions a document's pages at the shipping statement
// boundary. A zero-page document cannot be segmented.
func Segment(pages []pagetext.Page) (Segmentation, error) {
	if len(pages) == 0 {
		return Segmentation{}, models.ErrEmptyDocument
	}
	return Segmentation{
		ShippingPage: FindShippingPage(pages),
		PageCount:    len(pages),
	}, nil
}

// InvoicePageCount returns the number of pages in the invoice output.
// When the shipping statement starts on page 0 the partition leaves no
// invoice pages, but the legacy tool still emitted the boundary page
// itself as a one-page invoice; that quirk is kept so downstream filing
// always receives an invoice file. Page 0 then appears in both outputs.
func (s Segmentation) InvoicePageCount() int {
	if s.ShippingPage == 0 {
		return 1
	}
	return s.ShippingPage
}

// DetailPageCount returns the number of pages in the detail output.
func (s Segmentation) DetailPageCount() int {
	return s.PageCount - s.ShippingPage
}

// InvoiceSelection returns the 1-based page selection for the invoice
// output, in the form the PDF trimmer accepts.
func (s Segmentation) InvoiceSelection() string {
	if s.ShippingPage == 0 {
		return "1"
	}
	return fmt.Sprintf("1-%d", s.ShippingPage)
}

// DetailSelection returns the 1-based page selection for the detail
// output.
func (s Segmentation) DetailSelection() string {
	return fmt.Sprintf("%d-%d", s.ShippingPage+1, s.PageCount)
}
