// Package export writes result sets as CSV, JSON, XLSX and HTML files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quarree100/q100opt/core/results"
	"github.com/quarree100/q100opt/pkg/plot"
)

// Formats written by Write.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatHTML = "html"
)

// Document is the JSON form of a result set.
type Document struct {
	RunID         string               `json:"run_id,omitempty"`
	Status        string               `json:"status"`
	Objective     float64              `json:"objective"`
	TotalEmission float64              `json:"total_emission"`
	Index         []time.Time          `json:"index"`
	Nodes         []results.NodeResult `json:"nodes"`
	Investments   []results.Investment `json:"investments"`
}

// NewDocument copies the exported parts of res.
func NewDocument(runID string, res *results.ResultSet) Document {
	return Document{
		RunID:         runID,
		Status:        res.StatusText,
		Objective:     res.Objective,
		TotalEmission: res.TotalEmission,
		Index:         res.Index,
		Nodes:         res.Nodes,
		Investments:   res.Investments(),
	}
}

// WriteJSON writes the result set to w in JSON format.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteNodeCSV writes the sequences of one node, one row per time step.
func WriteNodeCSV(w io.Writer, index []time.Time, n results.NodeResult) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp"}
	for _, c := range n.Sequences {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for t, ts := range index {
		rec := []string{ts.Format(time.RFC3339)}
		for _, c := range n.Sequences {
			v := ""
			if t < len(c.Values) {
				v = formatFloat(c.Values[t])
			}
			rec = append(rec, v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInvestCSV writes the invested capacities.
func WriteInvestCSV(w io.Writer, invs []results.Investment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "flow", "invest", "existing", "total"}); err != nil {
		return err
	}
	for _, inv := range invs {
		rec := []string{
			inv.Label,
			inv.Flow,
			formatFloat(inv.Invest),
			formatFloat(inv.Existing),
			formatFloat(inv.Total()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write exports res into dir in the given format and returns the written
// paths. CSV produces one file per node plus invest.csv.
func Write(dir, format, runID string, res *results.ResultSet) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return writeCSVDir(dir, res)
	case FormatJSON:
		path := filepath.Join(dir, "results.json")
		return []string{path}, writeFile(path, func(w io.Writer) error {
			return WriteJSON(w, NewDocument(runID, res))
		})
	case FormatXLSX:
		path := filepath.Join(dir, "results.xlsx")
		return []string{path}, WriteWorkbook(path, res)
	case FormatHTML:
		path := filepath.Join(dir, "results.html")
		return []string{path}, plot.WriteHTML(path, plot.Title(runID, time.Now()), res)
	default:
		return nil, fmt.Errorf("export: unknown format %q", format)
	}
}

func writeCSVDir(dir string, res *results.ResultSet) ([]string, error) {
	var paths []string
	for _, n := range res.Nodes {
		if len(n.Sequences) == 0 {
			continue
		}
		path := filepath.Join(dir, fileName(n.Label)+".csv")
		if err := writeFile(path, func(w io.Writer) error { return WriteNodeCSV(w, res.Index, n) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	path := filepath.Join(dir, "invest.csv")
	if err := writeFile(path, func(w io.Writer) error { return WriteInvestCSV(w, res.Investments()) }); err != nil {
		return paths, err
	}
	return append(paths, path), nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("export: %s: %w", path, err)
	}
	return f.Close()
}

// fileName replaces path separators in labels.
func fileName(label string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(label)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
