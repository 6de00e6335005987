// Package extractor pulls per-page plain text out of billing PDFs.
//
// Vendor billing packages mix well-formed PDFs with ones using CID fonts
// and broken ToUnicode tables, so extraction is layered: the structured
// library first, then raw content-stream decoding, then the external
// pdftotext tool. Each tier's output is quality-checked before being
// accepted; garbage is never returned as text.
package extractor

import (
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ExtractPages reads a PDF and returns the text of each page, in order.
// Pages that yield no text are returned as empty strings so that page
// indices stay aligned with the source document; the segmenter depends
// on that alignment.
func ExtractPages(path string) ([]string, error) {
	pages, libErr := extractWithLibrary(path)
	if libErr == nil && isReadable(pages) {
		return pages, nil
	}

	rawPages, rawErr := ExtractRaw(path)
	if rawErr == nil && isReadable(rawPages) {
		return rawPages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(path)
	if popplerErr == nil && isReadable(popplerPages) {
		return popplerPages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %w", libErr)
	}
	return nil, fmt.Errorf("no readable text could be extracted from %s: the file may be image-only or use font encodings that cannot be decoded", path)
}

// billingWords are tokens that appear in effectively every billing
// document this tool processes. Extracted text containing none of them is
// treated as garbage from a misdecoded font.
var billingWords = []string{
	"請求", "明細", "出荷", "事業者", "合計", "金額", "送料",
	"株式会社", "有限会社", "様",
	"invoice", "total", "statement",
}

func containsBillingWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, w := range billingWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}

// readableRune reports whether r is plausible billing-document content:
// CJK ideographs and kana, fullwidth forms, CJK punctuation, or printable
// ASCII. Control bytes and unmapped glyph codes fall outside all of these.
func readableRune(r rune) bool {
	switch {
	case unicode.IsSpace(r):
		return true
	case r >= 0x20 && r < 0x7F:
		return true
	case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK punctuation, 【】 included
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // fullwidth forms
		return true
	case r == '¥' || r == '£' || r == '€':
		return true
	}
	return false
}

func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if readableRune(r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}

// isReadable accepts extracted text only when there is enough of it, when
// most runes are plausible content, and when at least one billing word
// survived decoding.
func isReadable(pages []string) bool {
	if totalTextLen(pages) <= 20 {
		return false
	}
	if textQuality(pages) <= 0.5 {
		return false
	}
	return containsBillingWords(pages)
}

// extractWithLibrary runs the ledongthuc/pdf extraction methods in order
// of layout fidelity. The library panics on some malformed files, hence
// the recover.
func extractWithLibrary(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages = extractByRow(r, numPages)
	if isReadable(pages) {
		return pages, nil
	}

	pages = extractByContent(r, numPages)
	if isReadable(pages) {
		return pages, nil
	}

	pages = extractByPlainText(r, numPages)
	if isReadable(pages) {
		return pages, nil
	}

	whole := extractWholeDocument(r)
	if isReadable([]string{whole}) {
		return []string{whole}, nil
	}

	return pages, nil
}

// extractByRow uses GetTextByRow, the method with the best layout
// preservation. Failed pages become empty strings, never gaps.
func extractByRow(r *pdf.Reader, numPages int) []string {
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent reconstructs rows from raw text objects by grouping on
// the Y coordinate and ordering by X. Handles PDFs whose row metadata is
// missing or wrong.
func extractByContent(r *pdf.Reader, numPages int) []string {
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			pages = append(pages, "")
			continue
		}

		type textItem struct {
			x float64
			s string
		}
		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
		}

		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		// PDF Y runs bottom-to-top
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool { return items[a].x < items[b].x })

			var parts []string
			var prevX float64
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					parts = append(parts, "  ")
				}
				parts = append(parts, item.s)
				prevX = item.x
			}
			line := strings.TrimSpace(strings.Join(parts, ""))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByPlainText uses GetPlainText with a per-page font map.
func extractByPlainText(r *pdf.Reader, numPages int) []string {
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages
}

// extractWholeDocument is the library's document-level extraction path.
// Page boundaries are lost, so this only helps name heuristics, not
// segmentation.
func extractWholeDocument(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// extractWithPdftotext shells out to poppler's pdftotext, which decodes
// CID-keyed Japanese fonts the Go paths sometimes cannot. Pages are
// extracted one at a time to keep boundaries.
func extractWithPdftotext(path string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	numPages := pdfinfoPageCount(path)
	if numPages < 1 {
		numPages = 1
	}

	pages := make([]string, 0, numPages)
	any := false
	for i := 1; i <= numPages; i++ {
		n := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", n, "-l", n, path, "-").Output()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		text := strings.TrimSpace(string(out))
		if text != "" {
			any = true
		}
		pages = append(pages, text)
	}

	if !any {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

func pdfinfoPageCount(path string) int {
	out, err := exec.Command("pdfinfo", path).Output()
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
			if err == nil {
				return n
			}
		}
	}
	return 0
}
