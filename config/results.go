package config

import (
	"fmt"
	"strings"

	"github.com/quarree100/q100opt/pkg/export"
)

// ResultsConfig controls the export of result sets.
type ResultsConfig struct {
	// Dir receives one subdirectory per run.
	Dir     string   `json:"dir"`
	Formats []string `json:"formats"`
}

func (c *ResultsConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{export.FormatCSV}
	}
}

func (c ResultsConfig) Validate() error {
	for _, f := range c.Formats {
		switch strings.ToLower(f) {
		case export.FormatCSV, export.FormatJSON, export.FormatXLSX, export.FormatHTML:
		default:
			return fmt.Errorf("unknown format %q", f)
		}
	}
	return nil
}
