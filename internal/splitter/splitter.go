// Package splitter turns one merged billing PDF into the invoice and
// detail output files, and copies postage statements through under their
// output name. Planning (segmentation + naming) is pure; only the write
// step touches the filesystem.
package splitter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/yamabiko/billsplit/internal/models"
	"github.com/yamabiko/billsplit/internal/namer"
	"github.com/yamabiko/billsplit/internal/pagetext"
	"github.com/yamabiko/billsplit/internal/segmenter"
)

// Plan is the fully determined outcome of a split before any file is
// written: which pages go where, under which names.
type Plan struct {
	Seg         segmenter.Segmentation
	InvoiceName string
	DetailName  string
}

// BuildPlan segments the document and fixes the output filenames.
// pageCount is the authoritative page count of the source PDF; pages is
// the extracted text, which fallback extraction paths may return shorter
// (or empty). When the two disagree the PDF wins: the boundary index is
// clamped and the whole document becomes the detail segment if the text
// gave no usable boundary. Returns models.ErrEmptyDocument when the
// source has zero pages.
func BuildPlan(pages []pagetext.Page, pageCount int, business string, period models.Period) (Plan, error) {
	if pageCount == 0 {
		return Plan{}, models.ErrEmptyDocument
	}
	seg, err := segmenter.Segment(pages)
	if err != nil || seg.PageCount != pageCount {
		idx := 0
		if err == nil && seg.ShippingPage < pageCount {
			idx = seg.ShippingPage
		}
		seg = segmenter.Segmentation{ShippingPage: idx, PageCount: pageCount}
	}
	invoiceName, err := namer.Filename(period, business, models.KindInvoice)
	if err != nil {
		return Plan{}, err
	}
	detailName, err := namer.Filename(period, business, models.KindDetail)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Seg: seg, InvoiceName: invoiceName, DetailName: detailName}, nil
}

// Splitter writes split outputs into a flat output directory. Name
// collisions overwrite: last writer wins.
type Splitter struct {
	OutputDir string
	Log       *slog.Logger
}

func New(outputDir string, log *slog.Logger) *Splitter {
	if log == nil {
		log = slog.Default()
	}
	return &Splitter{OutputDir: outputDir, Log: log}
}

// Split writes the invoice and detail files for one shipping bill.
// pages is the per-page text already extracted from srcPath. Any write
// failure aborts the operation and surfaces the underlying error; files
// already written stay where they are (the caller's workspace lifecycle
// owns cleanup).
func (s *Splitter) Split(srcPath string, pages []pagetext.Page, business string, period models.Period) (models.SplitResult, error) {
	count, err := api.PageCountFile(srcPath)
	if err != nil {
		return models.SplitResult{}, fmt.Errorf("reading page count of %s: %w", srcPath, err)
	}
	plan, err := BuildPlan(pages, count, business, period)
	if err != nil {
		return models.SplitResult{}, err
	}

	invoicePath := filepath.Join(s.OutputDir, plan.InvoiceName)
	if err := api.TrimFile(srcPath, invoicePath, []string{plan.Seg.InvoiceSelection()}, nil); err != nil {
		return models.SplitResult{}, fmt.Errorf("writing invoice %s: %w", plan.InvoiceName, err)
	}
	s.Log.Info("invoice written", "file", plan.InvoiceName, "pages", plan.Seg.InvoicePageCount())

	detailPath := filepath.Join(s.OutputDir, plan.DetailName)
	if err := api.TrimFile(srcPath, detailPath, []string{plan.Seg.DetailSelection()}, nil); err != nil {
		return models.SplitResult{}, fmt.Errorf("writing detail %s: %w", plan.DetailName, err)
	}
	s.Log.Info("detail written", "file", plan.DetailName, "pages", plan.Seg.DetailPageCount())

	return models.SplitResult{InvoicePath: invoicePath, DetailPath: detailPath}, nil
}

// CopyPostage copies a postage statement verbatim under its output name.
// Postage files are never split.
func (s *Splitter) CopyPostage(srcPath, business string, period models.Period) (string, error) {
	name, err := namer.Filename(period, business, models.KindPostage)
	if err != nil {
		return "", err
	}
	dstPath := filepath.Join(s.OutputDir, name)

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening postage source %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("creating postage output %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copying postage to %s: %w", name, err)
	}
	s.Log.Info("postage copied", "file", name)
	return dstPath, nil
}
