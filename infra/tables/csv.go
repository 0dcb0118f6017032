package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quarree100/q100opt/core/scenario"
)

// ReadCSVDir reads one <Table>.csv file per scenario table from dir.
// Tables without a file are left out.
func ReadCSVDir(dir string, sep rune) (scenario.Tables, error) {
	if sep == 0 {
		sep = ','
	}
	ts := scenario.Tables{}
	for _, name := range scenario.TableNames {
		path := filepath.Join(dir, name+".csv")
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		t, err := readCSV(f, name, sep)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("tables: %s: %w", path, err)
		}
		ts.Add(t)
	}
	return ts, nil
}

func readCSV(r io.Reader, name string, sep rune) (*scenario.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return scenario.NewTable(name), nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	t := scenario.NewTable(name, header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		cells := make([]any, 0, len(rec))
		blank := true
		for _, v := range rec {
			c := cell(v)
			if c != nil {
				blank = false
			}
			cells = append(cells, c)
		}
		if !blank {
			t.Append(cells...)
		}
	}
}
