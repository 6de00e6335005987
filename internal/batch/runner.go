// Package batch orchestrates one monthly run: every archive in the input
// directory is extracted into a scoped workspace, each business subfolder
// is processed sequentially, and the workspace is released whatever
// happens. Failures are recorded per business; the batch never aborts on
// the first error.
package batch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yamabiko/billsplit/internal/archive"
	"github.com/yamabiko/billsplit/internal/company"
	"github.com/yamabiko/billsplit/internal/extractor"
	"github.com/yamabiko/billsplit/internal/models"
	"github.com/yamabiko/billsplit/internal/pagetext"
)

// TextSource extracts per-page text from a PDF file.
type TextSource interface {
	ExtractPages(path string) ([]string, error)
}

// DocumentWriter persists the output files for one business.
type DocumentWriter interface {
	Split(srcPath string, pages []pagetext.Page, business string, period models.Period) (models.SplitResult, error)
	CopyPostage(srcPath, business string, period models.Period) (string, error)
}

// PDFSource is the production TextSource backed by the extractor package.
type PDFSource struct{}

func (PDFSource) ExtractPages(path string) ([]string, error) {
	return extractor.ExtractPages(path)
}

// BusinessResult records what happened for one business subfolder.
type BusinessResult struct {
	Folder   string
	Business string
	Written  []string
	Err      error
}

// ArchiveResult groups the business results of one archive.
type ArchiveResult struct {
	Archive    string
	Businesses []BusinessResult
	Err        error
}

// Summary aggregates a whole run.
type Summary struct {
	Period       models.Period
	Archives     int
	Businesses   int
	FilesWritten int
	Failures     int
}

// Runner executes a batch run. All processing is sequential; the output
// directory is the only state shared between businesses.
type Runner struct {
	InputDir string
	Source   TextSource
	Writer   DocumentWriter
	Log      *slog.Logger
}

// Run processes every archive in the input directory. override pins the
// billing period; when nil it is inferred from the archive filenames,
// with now's month as last resort.
func (r *Runner) Run(override *models.Period, now time.Time) (Summary, []ArchiveResult, error) {
	log := r.logger()

	archives, err := archive.FindArchives(r.InputDir)
	if err != nil {
		return Summary{}, nil, err
	}
	if len(archives) == 0 {
		return Summary{}, nil, fmt.Errorf("no zip archives found in %s", r.InputDir)
	}

	var period models.Period
	if override != nil {
		period = *override
	} else {
		period = archive.PeriodFromNames(archives, now)
	}
	if err := period.Validate(); err != nil {
		return Summary{}, nil, fmt.Errorf("billing period: %w", err)
	}
	log.Info("batch run starting", "archives", len(archives), "year", period.Year, "month", period.Month)

	summary := Summary{Period: period}
	var results []ArchiveResult
	for _, zipPath := range archives {
		res := r.ProcessArchive(zipPath, period)
		results = append(results, res)

		summary.Archives++
		if res.Err != nil {
			summary.Failures++
			continue
		}
		for _, b := range res.Businesses {
			summary.Businesses++
			summary.FilesWritten += len(b.Written)
			if b.Err != nil {
				summary.Failures++
			}
		}
	}

	log.Info("batch run finished",
		"archives", summary.Archives,
		"businesses", summary.Businesses,
		"filesWritten", summary.FilesWritten,
		"failures", summary.Failures)
	return summary, results, nil
}

// ProcessArchive extracts one archive into a fresh workspace and
// processes each business subfolder in it. The workspace is released on
// every exit path.
func (r *Runner) ProcessArchive(zipPath string, period models.Period) ArchiveResult {
	log := r.logger()
	res := ArchiveResult{Archive: zipPath}
	log.Info("processing archive", "archive", zipPath)

	ws, err := archive.NewWorkspace(log)
	if err != nil {
		res.Err = err
		return res
	}
	defer ws.Release()

	if err := archive.Extract(zipPath, ws.Root); err != nil {
		res.Err = err
		return res
	}

	records, err := archive.ScanBusinesses(ws.Root)
	if err != nil {
		res.Err = err
		return res
	}
	if len(records) == 0 {
		log.Warn("archive contains no business folders", "archive", zipPath)
	}

	for _, rec := range records {
		res.Businesses = append(res.Businesses, r.processBusiness(rec, period))
	}
	return res
}

// processBusiness resolves the business name, splits the shipping bill
// and copies the postage statement. Text-extraction failures are
// absorbed (the name chain falls through to its later tiers); write
// failures are recorded on the result and the batch moves on.
func (r *Runner) processBusiness(rec models.BusinessRecord, period models.Period) BusinessResult {
	log := r.logger()
	res := BusinessResult{Folder: rec.FolderID}
	log.Info("processing business", "folder", rec.FolderID)

	shippingPages := r.extractPages(rec.ShippingBillPath)
	postagePages := r.extractPages(rec.PostagePath)

	res.Business = company.Resolve(log, company.Input{
		FolderID:      rec.FolderID,
		ShippingPages: shippingPages,
		PostagePages:  postagePages,
	})
	log.Info("business name resolved", "folder", rec.FolderID, "business", res.Business)

	var errs []error
	if rec.ShippingBillPath != "" {
		split, err := r.Writer.Split(rec.ShippingBillPath, shippingPages, res.Business, period)
		if err != nil {
			errs = append(errs, fmt.Errorf("splitting shipping bill: %w", err))
		} else {
			if split.InvoicePath != "" {
				res.Written = append(res.Written, split.InvoicePath)
			}
			res.Written = append(res.Written, split.DetailPath)
		}
	}
	if rec.PostagePath != "" {
		written, err := r.Writer.CopyPostage(rec.PostagePath, res.Business, period)
		if err != nil {
			errs = append(errs, fmt.Errorf("copying postage statement: %w", err))
		} else {
			res.Written = append(res.Written, written)
		}
	}

	res.Err = errors.Join(errs...)
	if res.Err != nil {
		log.Error("business processing failed", "folder", rec.FolderID, "error", res.Err)
	}
	return res
}

// extractPages reads per-page text, absorbing every failure: a document
// that cannot be read simply contributes no text to the name heuristics,
// exactly as if extraction had yielded nothing.
func (r *Runner) extractPages(path string) []pagetext.Page {
	if path == "" {
		return nil
	}
	texts, err := r.Source.ExtractPages(path)
	if err != nil {
		r.logger().Warn("text extraction failed", "file", path, "error", err)
		return nil
	}
	return pagetext.Pages(texts)
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}
