package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yamabiko/billsplit/internal/batch"
	"github.com/yamabiko/billsplit/internal/config"
	"github.com/yamabiko/billsplit/internal/logging"
	"github.com/yamabiko/billsplit/internal/models"
	"github.com/yamabiko/billsplit/internal/splitter"
)

type runOptions struct {
	configPath string
	inputDir   string
	outputDir  string
	year       int
	month      int
	verbose    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every billing archive in the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVarP(&opts.inputDir, "input", "i", "", "directory containing billing zip archives (default \"dl\")")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "directory for renamed output PDFs (default \"output\")")
	cmd.Flags().IntVar(&opts.year, "year", 0, "billing year (default: inferred from archive names)")
	cmd.Flags().IntVar(&opts.month, "month", 0, "billing month 1-12 (default: inferred from archive names)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func runBatch(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.inputDir != "" {
		cfg.InputDir = opts.inputDir
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	log := logging.New(cfg.LogLevel)

	period, err := resolvePeriod(opts, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", cfg.OutputDir, err)
	}

	runner := &batch.Runner{
		InputDir: cfg.InputDir,
		Source:   batch.PDFSource{},
		Writer:   splitter.New(cfg.OutputDir, log),
		Log:      log,
	}

	summary, results, err := runner.Run(period, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, ar := range results {
		if ar.Err != nil {
			fmt.Fprintf(out, "FAILED  %s: %v\n", filepath.Base(ar.Archive), ar.Err)
			continue
		}
		for _, b := range ar.Businesses {
			if b.Err != nil {
				fmt.Fprintf(out, "FAILED  %s (%s): %v\n", b.Folder, b.Business, b.Err)
				continue
			}
			fmt.Fprintf(out, "OK      %s (%s): %d file(s)\n", b.Folder, b.Business, len(b.Written))
		}
	}
	fmt.Fprintf(out, "\n%04d-%02d: %d archive(s), %d business(es), %d file(s) written, %d failure(s)\n",
		summary.Period.Year, summary.Period.Month,
		summary.Archives, summary.Businesses, summary.FilesWritten, summary.Failures)
	fmt.Fprintf(out, "Output: %s\n", cfg.OutputDir)

	if summary.Failures > 0 {
		return fmt.Errorf("%d item(s) failed", summary.Failures)
	}
	return nil
}

// resolvePeriod applies the precedence: flags, then config file, then
// inference from archive names inside the runner (nil return).
func resolvePeriod(opts *runOptions, cfg config.Config) (*models.Period, error) {
	if opts.year != 0 || opts.month != 0 {
		if opts.year == 0 || opts.month == 0 {
			return nil, fmt.Errorf("--year and --month must be given together")
		}
		p := models.Period{Year: opts.year, Month: opts.month}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	}
	if cfg.Period != nil {
		p := models.Period{Year: cfg.Period.Year, Month: cfg.Period.Month}
		return &p, nil
	}
	return nil, nil
}
