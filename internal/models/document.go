package models

import (
	"errors"
	"fmt"
)

// ErrEmptyDocument is returned when a source PDF has no pages.
// It is fatal for that single document, not for the whole batch.
var ErrEmptyDocument = errors.New("document has no pages")

// DocumentKind identifies the kind of output file produced for a business.
type DocumentKind string

const (
	KindInvoice DocumentKind = "invoice"
	KindDetail  DocumentKind = "detail"
	KindPostage DocumentKind = "postage"
)

// SourceKind classifies a file discovered inside a business subfolder.
// Classification happens once, at intake, so the rest of the pipeline
// never repeats filename string matching.
type SourceKind string

const (
	SourcePostage      SourceKind = "postage"
	SourceShippingBill SourceKind = "shipping_bill"
	SourceOther        SourceKind = "other"
)

// Period is the billing year-month stamped into output filenames.
// It is supplied by the caller; the pipeline only consumes it.
type Period struct {
	Year  int
	Month int
}

// Validate checks that the period describes a real year-month.
func (p Period) Validate() error {
	if p.Year < 1 {
		return fmt.Errorf("invalid year %d", p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("invalid month %d: must be in [1,12]", p.Month)
	}
	return nil
}

// BusinessRecord describes one business subfolder found in an extracted
// archive: the folder identifier plus the classified source documents.
// A record is consumed once and never mutated.
type BusinessRecord struct {
	// FolderID is the raw subfolder name, e.g. "001_ACME".
	FolderID string
	// PostagePath is the postage statement PDF, empty when absent.
	PostagePath string
	// ShippingBillPath is the merged invoice + shipping statement PDF,
	// empty when absent.
	ShippingBillPath string
}

// SplitResult holds the output files written for one shipping-billing
// document. DetailPath is always set when the source had at least one
// page; InvoicePath is empty only if no invoice file was written.
type SplitResult struct {
	InvoicePath string
	DetailPath  string
}
