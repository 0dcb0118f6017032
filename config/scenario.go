package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/quarree100/q100opt/infra/tables"
)

// ScenarioConfig locates the scenario tables.
type ScenarioConfig struct {
	// Path is a workbook, a CSV directory or a YAML file.
	Path string `json:"path"`
	// Format is xlsx, csv or yaml. Empty means detect from Path.
	Format string `json:"format"`
	// Separator is the CSV field separator.
	Separator string `json:"separator"`
}

func (c *ScenarioConfig) SetDefaults() {
	if c.Separator == "" {
		c.Separator = ","
	}
}

func (c ScenarioConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "", tables.FormatXLSX, tables.FormatCSV, tables.FormatYAML, "yml":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if utf8.RuneCountInString(c.Separator) != 1 {
		return fmt.Errorf("separator must be a single character, got %q", c.Separator)
	}
	return nil
}

// TableOptions converts the section into reader options.
func (c ScenarioConfig) TableOptions() tables.Options {
	sep, _ := utf8.DecodeRuneInString(c.Separator)
	return tables.Options{Format: c.Format, Separator: sep}
}
