// Package tables reads scenario tables from workbooks, CSV directories and
// YAML files.
package tables

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quarree100/q100opt/core/scenario"
)

// Formats accepted by Read.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// Options control how a scenario source is read.
type Options struct {
	// Format is one of xlsx, csv or yaml. Empty means detect from the path.
	Format string
	// Separator is the CSV field separator. Zero means ','.
	Separator rune
}

// Read loads the scenario tables at path.
func Read(path string, opts Options) (scenario.Tables, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		var err error
		if format, err = Detect(path); err != nil {
			return nil, err
		}
	}
	switch format {
	case FormatXLSX:
		return ReadWorkbook(path)
	case FormatCSV:
		return ReadCSVDir(path, opts.Separator)
	case FormatYAML, "yml":
		return ReadYAML(path)
	default:
		return nil, fmt.Errorf("tables: unknown format %q", opts.Format)
	}
}

// Detect guesses the format of path: directories are CSV, files go by
// extension.
func Detect(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return FormatCSV, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("tables: cannot detect format of %s", path)
}

// cell converts a raw text cell: empty text is an empty cell.
func cell(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}
