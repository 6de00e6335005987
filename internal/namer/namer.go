// Package namer builds output filenames from the billing period, the
// business name and the document kind. The template is fixed:
//
//	{yyyy}{mm}_{business}様_{suffix}.pdf
package namer

import (
	"fmt"

	"github.com/yamabiko/billsplit/internal/models"
)

var suffixes = map[models.DocumentKind]string{
	models.KindInvoice: "ご請求書",
	models.KindDetail:  "ご請求明細書",
	models.KindPostage: "ご請求送料明細書",
}

// Filename returns the output filename for one document. It is a pure
// function: identical inputs always produce identical names, and two
// businesses resolving to the same name therefore overwrite each other.
// That collision hazard is accepted; the operator reviews the output
// folder after every run.
func Filename(p models.Period, business string, kind models.DocumentKind) (string, error) {
	suffix, ok := suffixes[kind]
	if !ok {
		return "", fmt.Errorf("unsupported document kind: %q", kind)
	}
	return fmt.Sprintf("%04d%02d_%s様_%s.pdf", p.Year, p.Month, business, suffix), nil
}
