// Package archive handles the intake side of a batch run: finding zip
// archives, extracting them into a scoped workspace, classifying the
// files of each business subfolder, and inferring the billing period
// from archive names.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yamabiko/billsplit/internal/models"
)

// FindArchives lists the zip files directly inside dir, sorted by name.
func FindArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}
	var archives []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			archives = append(archives, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(archives)
	return archives, nil
}

// Archive names carry the billing range, e.g.
// 請求書・出荷明細_2025-08-01～2025-08-31_202509031219.zip
var periodRe = regexp.MustCompile(`(\d{4})-(\d{2})`)

// PeriodFromNames infers the billing period from the first YYYY-MM match
// across the archive filenames, falling back to the month of now.
func PeriodFromNames(paths []string, now time.Time) models.Period {
	for _, p := range paths {
		m := periodRe.FindStringSubmatch(filepath.Base(p))
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		period := models.Period{Year: year, Month: month}
		if period.Validate() == nil {
			return period
		}
	}
	return models.Period{Year: now.Year(), Month: int(now.Month())}
}

// Extract unpacks a zip archive into dest, preserving its directory
// structure. Entries escaping dest are rejected.
func Extract(zipPath, dest string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", zipPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractEntry(f, dest); err != nil {
			return fmt.Errorf("extracting %s from %s: %w", f.Name, filepath.Base(zipPath), err)
		}
	}
	return nil
}

func extractEntry(f *zip.File, dest string) error {
	if !filepath.IsLocal(filepath.FromSlash(f.Name)) {
		return fmt.Errorf("entry path escapes destination")
	}
	target := filepath.Join(dest, filepath.FromSlash(f.Name))

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

const (
	postagePrefix      = "postage_"
	shippingBillPrefix = "bill_shipping_"
	pdfSuffix          = ".pdf"
)

// ClassifyFile tags a filename as one of the known source kinds. The tag
// is assigned exactly once at intake; nothing downstream re-checks
// filename strings.
func ClassifyFile(name string) models.SourceKind {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, pdfSuffix) {
		return models.SourceOther
	}
	switch {
	case strings.HasPrefix(name, postagePrefix):
		return models.SourcePostage
	case strings.HasPrefix(name, shippingBillPrefix):
		return models.SourceShippingBill
	}
	return models.SourceOther
}

// ScanBusinesses builds one BusinessRecord per subfolder of root. A
// subfolder holds at most one postage and one shipping bill PDF; when
// duplicates appear the first in directory order wins.
func ScanBusinesses(root string) ([]models.BusinessRecord, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading workspace %s: %w", root, err)
	}

	var records []models.BusinessRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folder := filepath.Join(root, e.Name())
		files, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("reading business folder %s: %w", e.Name(), err)
		}

		rec := models.BusinessRecord{FolderID: e.Name()}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			switch ClassifyFile(f.Name()) {
			case models.SourcePostage:
				if rec.PostagePath == "" {
					rec.PostagePath = filepath.Join(folder, f.Name())
				}
			case models.SourceShippingBill:
				if rec.ShippingBillPath == "" {
					rec.ShippingBillPath = filepath.Join(folder, f.Name())
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
