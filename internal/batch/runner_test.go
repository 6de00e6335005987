package batch

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamabiko/billsplit/internal/models"
	"github.com/yamabiko/billsplit/internal/pagetext"
)

// fakeSource serves canned page text by filename, keyed on base name so
// workspace paths don't matter.
type fakeSource struct {
	pages map[string][]string
	errs  map[string]error
}

func (f *fakeSource) ExtractPages(path string) ([]string, error) {
	base := filepath.Base(path)
	if err, ok := f.errs[base]; ok {
		return nil, err
	}
	if pages, ok := f.pages[base]; ok {
		return pages, nil
	}
	return nil, fmt.Errorf("no text for %s", base)
}

// fakeWriter records writes instead of producing PDFs.
type fakeWriter struct {
	splitErr   error
	postageErr error
	splits     []string
	postages   []string
}

func (f *fakeWriter) Split(srcPath string, _ []pagetext.Page, business string, p models.Period) (models.SplitResult, error) {
	if f.splitErr != nil {
		return models.SplitResult{}, f.splitErr
	}
	f.splits = append(f.splits, business)
	prefix := fmt.Sprintf("%04d%02d_%s", p.Year, p.Month, business)
	return models.SplitResult{
		InvoicePath: prefix + "_invoice.pdf",
		DetailPath:  prefix + "_detail.pdf",
	}, nil
}

func (f *fakeWriter) CopyPostage(srcPath, business string, p models.Period) (string, error) {
	if f.postageErr != nil {
		return "", f.postageErr
	}
	f.postages = append(f.postages, business)
	return fmt.Sprintf("%04d%02d_%s_postage.pdf", p.Year, p.Month, business), nil
}

func writeBatchZip(t *testing.T, dir, name string, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for entry, content := range entries {
		ew, err := w.Create(entry)
		require.NoError(t, err)
		_, err = ew.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

var testNow = time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

func TestRunProcessesArchive(t *testing.T) {
	inputDir := t.TempDir()
	writeBatchZip(t, inputDir, "bills_2025-08-01.zip", map[string][]byte{
		"001_ACME/bill_shipping_1.pdf": []byte("pdf"),
		"001_ACME/postage_1.pdf":       []byte("pdf"),
	})

	source := &fakeSource{pages: map[string][]string{
		"bill_shipping_1.pdf": {
			"ご請求書\n合計",
			"出荷明細書\nヘッダ\n事業者名ACME Corp",
		},
	}}
	writer := &fakeWriter{}
	runner := &Runner{InputDir: inputDir, Source: source, Writer: writer}

	summary, results, err := runner.Run(nil, testNow)
	require.NoError(t, err)

	// Period inferred from the archive name, not from now.
	assert.Equal(t, models.Period{Year: 2025, Month: 8}, summary.Period)
	assert.Equal(t, 1, summary.Archives)
	assert.Equal(t, 1, summary.Businesses)
	assert.Equal(t, 3, summary.FilesWritten)
	assert.Equal(t, 0, summary.Failures)

	require.Len(t, results, 1)
	require.Len(t, results[0].Businesses, 1)
	b := results[0].Businesses[0]
	require.NoError(t, b.Err)
	assert.Equal(t, "ACME Corp", b.Business)
	assert.Len(t, b.Written, 3)

	assert.Equal(t, []string{"ACME Corp"}, writer.splits)
	assert.Equal(t, []string{"ACME Corp"}, writer.postages)
}

func TestRunPeriodOverrideWins(t *testing.T) {
	inputDir := t.TempDir()
	writeBatchZip(t, inputDir, "bills_2025-08-01.zip", map[string][]byte{
		"001_ACME/postage_1.pdf": []byte("pdf"),
	})

	runner := &Runner{
		InputDir: inputDir,
		Source:   &fakeSource{},
		Writer:   &fakeWriter{},
	}
	override := &models.Period{Year: 2024, Month: 12}

	summary, _, err := runner.Run(override, testNow)
	require.NoError(t, err)
	assert.Equal(t, *override, summary.Period)
}

func TestRunExtractionFailureFallsBackToFolderName(t *testing.T) {
	inputDir := t.TempDir()
	writeBatchZip(t, inputDir, "bills_2025-08-01.zip", map[string][]byte{
		"001_ACME/bill_shipping_1.pdf": []byte("pdf"),
	})

	source := &fakeSource{errs: map[string]error{
		"bill_shipping_1.pdf": errors.New("corrupt xref"),
	}}
	writer := &fakeWriter{}
	runner := &Runner{InputDir: inputDir, Source: source, Writer: writer}

	summary, results, err := runner.Run(nil, testNow)
	require.NoError(t, err)

	// The extraction failure is absorbed; the folder token names the
	// business and the split still runs.
	require.Len(t, results[0].Businesses, 1)
	assert.Equal(t, "ACME", results[0].Businesses[0].Business)
	require.NoError(t, results[0].Businesses[0].Err)
	assert.Equal(t, 0, summary.Failures)
	assert.Equal(t, []string{"ACME"}, writer.splits)
}

func TestRunWriteFailureRecordedPerBusiness(t *testing.T) {
	inputDir := t.TempDir()
	writeBatchZip(t, inputDir, "bills_2025-08-01.zip", map[string][]byte{
		"001_ACME/bill_shipping_1.pdf":  []byte("pdf"),
		"001_ACME/postage_1.pdf":        []byte("pdf"),
		"002_OTHER/bill_shipping_2.pdf": []byte("pdf"),
	})

	writer := &fakeWriter{splitErr: errors.New("disk full")}
	runner := &Runner{InputDir: inputDir, Source: &fakeSource{}, Writer: writer}

	summary, results, err := runner.Run(nil, testNow)
	require.NoError(t, err)

	require.Len(t, results[0].Businesses, 2)
	first, second := results[0].Businesses[0], results[0].Businesses[1]

	// The split failed but the postage copy of the same business still
	// ran, and the second business was still processed.
	require.Error(t, first.Err)
	assert.Contains(t, first.Err.Error(), "disk full")
	assert.Equal(t, []string{"ACME"}, writer.postages)
	require.Error(t, second.Err)

	assert.Equal(t, 2, summary.Failures)
	assert.Equal(t, 2, summary.Businesses)
}

func TestRunNoArchives(t *testing.T) {
	runner := &Runner{InputDir: t.TempDir(), Source: &fakeSource{}, Writer: &fakeWriter{}}
	_, _, err := runner.Run(nil, testNow)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no zip archives"))
}

func TestProcessArchiveBadZip(t *testing.T) {
	inputDir := t.TempDir()
	badZip := filepath.Join(inputDir, "broken.zip")
	require.NoError(t, os.WriteFile(badZip, []byte("not a zip"), 0o644))

	runner := &Runner{InputDir: inputDir, Source: &fakeSource{}, Writer: &fakeWriter{}}
	res := runner.ProcessArchive(badZip, models.Period{Year: 2025, Month: 8})
	assert.Error(t, res.Err)
}
