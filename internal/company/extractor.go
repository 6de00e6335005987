// Package company resolves a business name for a billing package by
// trying an ordered chain of heuristics over extracted page text, falling
// back to the folder identifier and finally to a fixed sentinel.
package company

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yamabiko/billsplit/internal/pagetext"
)

// Unknown is the sentinel business name used when every heuristic fails.
// It is only a naming token; output files still get written under it.
const Unknown = "不明な会社"

// Input carries everything the heuristics may consult. Page text is
// extracted once by the caller; strategies never touch the filesystem.
type Input struct {
	// FolderID is the raw business subfolder name.
	FolderID string
	// ShippingPages is the per-page text of the shipping bill document.
	ShippingPages []pagetext.Page
	// PostagePages is the per-page text of the postage statement.
	PostagePages []pagetext.Page
}

// Strategy is one independently testable extraction heuristic. An empty
// result means "no opinion"; an error is absorbed by the chain and never
// changes the run outcome.
type Strategy struct {
	Name string
	Fn   func(Input) (string, error)
}

// Chain returns the heuristics in strict priority order.
func Chain() []Strategy {
	return []Strategy{
		{Name: "shipping-statement", Fn: fromShippingStatement},
		{Name: "corporate-suffix", Fn: fromCorporateSuffix},
		{Name: "folder-identifier", Fn: fromFolderID},
	}
}

// Resolve runs the chain and returns the first non-empty name, or the
// Unknown sentinel. The result is never empty.
func Resolve(log *slog.Logger, in Input) string {
	if log == nil {
		log = slog.Default()
	}
	for _, s := range Chain() {
		name, err := s.Fn(in)
		if err != nil {
			log.Debug("name heuristic failed", "strategy", s.Name, "folder", in.FolderID, "error", err)
			continue
		}
		if name != "" {
			log.Debug("business name resolved", "strategy", s.Name, "name", name)
			return name
		}
	}
	log.Debug("business name unresolved, using sentinel", "folder", in.FolderID)
	return Unknown
}

// fromShippingStatement reads the structured header of the shipping
// statement page: the marker on line 0, the business-name label on line 2,
// and a bare name on line 3 when the label is missing.
//
// Only the first marker page is inspected, even when it yields nothing.
// Documents with several shipping-statement-like pages can therefore lose
// a valid name to a later tier; the legacy tool behaved the same way and
// downstream filing depends on its output, so the behaviour is kept.
func fromShippingStatement(in Input) (string, error) {
	for _, p := range in.ShippingPages {
		if !p.HasShippingMarker() {
			continue
		}
		if before, after, ok := pagetext.SplitOnLabel(p.Line(2)); ok {
			choice := ""
			switch {
			case strings.TrimSpace(after) != "":
				choice = after
			case strings.TrimSpace(before) != "":
				choice = before
			}
			return pagetext.StripBrackets(choice), nil
		}
		if p.LineCount() > 3 {
			line := strings.TrimSpace(p.Line(3))
			if utf8.RuneCountInString(line) > 2 {
				return pagetext.StripBrackets(line), nil
			}
		}
		return "", nil
	}
	return "", nil
}

// Corporate entity suffixes that close a Japanese company name.
var corporatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}株式会社`),
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}有限会社`),
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}合資会社`),
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}合名会社`),
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}協同組合`),
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}協会`),
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}財団`),
	regexp.MustCompile(`[一-龯ァ-ヶー]{2,}法人`),
}

// Pages to scan per document before giving up; names live in headers.
const corporateScanPages = 3

// fromCorporateSuffix scans leading pages for company-name patterns ending
// in a corporate suffix, longest match first. The shipping bill is
// consulted before the postage statement.
func fromCorporateSuffix(in Input) (string, error) {
	for _, doc := range [][]pagetext.Page{in.ShippingPages, in.PostagePages} {
		n := len(doc)
		if n > corporateScanPages {
			n = corporateScanPages
		}
		for i := 0; i < n; i++ {
			text := doc[i].Text()
			best := ""
			for _, re := range corporatePatterns {
				for _, m := range re.FindAllString(text, -1) {
					if utf8.RuneCountInString(m) > utf8.RuneCountInString(best) {
						best = m
					}
				}
			}
			best = strings.TrimSpace(best)
			if rc := utf8.RuneCountInString(best); rc > 3 && rc < 50 {
				return best, nil
			}
		}
	}
	return "", nil
}

// fromFolderID splits the folder identifier on its first underscore and
// returns the remainder verbatim, e.g. "001_ACME" -> "ACME".
func fromFolderID(in Input) (string, error) {
	idx := strings.Index(in.FolderID, "_")
	if idx < 0 {
		return "", nil
	}
	return in.FolderID[idx+1:], nil
}
