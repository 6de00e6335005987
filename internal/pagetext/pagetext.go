// Package pagetext models the extracted text of a single PDF page as an
// ordered sequence of lines. All boundary detection and name heuristics
// index lines by position, so empty lines are kept.
package pagetext

import (
	"regexp"
	"strings"
)

const (
	// ShippingMarker labels the first page of a shipping/delivery
	// statement segment inside a merged billing PDF.
	ShippingMarker = "出荷明細書"
	// BusinessLabel precedes (or follows) the business name on the
	// structured line of a shipping statement page.
	BusinessLabel = "事業者名"
)

// Annotation runs like 【前月繰越】that vendors append after names.
var bracketRe = regexp.MustCompile(`【[^】]*】`)

// Page wraps one page's raw extracted text.
type Page struct {
	lines []string
}

// New builds a Page from raw page text. Line breaks are normalised to \n;
// content is otherwise untouched.
func New(raw string) Page {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return Page{lines: strings.Split(raw, "\n")}
}

// Pages converts per-page extracted text into Page values.
func Pages(texts []string) []Page {
	pages := make([]Page, len(texts))
	for i, t := range texts {
		pages[i] = New(t)
	}
	return pages
}

// Lines returns the ordered lines of the page, empty lines included.
func (p Page) Lines() []string {
	return p.lines
}

// Line returns the line at index i, or "" when out of range.
func (p Page) Line(i int) string {
	if i < 0 || i >= len(p.lines) {
		return ""
	}
	return p.lines[i]
}

// LineCount returns the number of lines on the page.
func (p Page) LineCount() int {
	return len(p.lines)
}

// FirstLine returns the first line of the page, or "" for an empty page.
func (p Page) FirstLine() string {
	return p.Line(0)
}

// HasShippingMarker reports whether the first line carries the shipping
// statement marker. Only the first line counts: the marker appears in the
// body of later pages too, but only as a heading does it start a segment.
func (p Page) HasShippingMarker() bool {
	return strings.Contains(p.FirstLine(), ShippingMarker)
}

// Text returns the page text rejoined with \n.
func (p Page) Text() string {
	return strings.Join(p.lines, "\n")
}

// StripBrackets removes 【...】annotation runs and trims whitespace.
func StripBrackets(s string) string {
	return strings.TrimSpace(bracketRe.ReplaceAllString(s, ""))
}

// SplitOnLabel splits a line at the first business-name label token.
// ok is false when the line does not contain the label.
func SplitOnLabel(line string) (before, after string, ok bool) {
	idx := strings.Index(line, BusinessLabel)
	if idx < 0 {
		return "", "", false
	}
	return line[:idx], line[idx+len(BusinessLabel):], true
}
