// Package config loads the optional YAML run configuration. Flags on the
// CLI override anything set here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yamabiko/billsplit/internal/models"
)

// Config holds the settings of one batch run.
type Config struct {
	// InputDir is scanned (non-recursively) for zip archives.
	InputDir string `yaml:"inputDir"`
	// OutputDir receives the renamed output PDFs, flat.
	OutputDir string `yaml:"outputDir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// Period pins the billing year-month; when absent it is inferred
	// from the archive filenames.
	Period *PeriodConfig `yaml:"period,omitempty"`
}

// PeriodConfig is the fixed billing period, when configured.
type PeriodConfig struct {
	Year  int `yaml:"year"`
	Month int `yaml:"month"`
}

// Default returns the configuration matching the legacy tool's layout:
// archives in ./dl, output in ./output.
func Default() Config {
	return Config{
		InputDir:  "dl",
		OutputDir: "output",
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Period != nil {
		p := models.Period{Year: cfg.Period.Year, Month: cfg.Period.Month}
		if err := p.Validate(); err != nil {
			return cfg, fmt.Errorf("config period: %w", err)
		}
	}
	return cfg, nil
}
