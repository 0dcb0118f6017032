package tables

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quarree100/q100opt/core/scenario"
)

// ReadYAML reads a scenario document mapping each table name to a list of
// rows:
//
//	Buses:
//	  - {label: b_el, active: true, excess: true, excess costs: 0}
//	General:
//	  - {timesteps: 24, interest rate: 0.05}
//
// Columns are ordered by first appearance.
func ReadYAML(path string) (scenario.Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("tables: %s: %w", path, err)
	}
	ts := scenario.Tables{}
	if len(doc.Content) == 0 {
		return ts, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("tables: %s: expected a mapping of tables", path)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, rows := root.Content[i].Value, root.Content[i+1]
		t, err := yamlTable(name, rows)
		if err != nil {
			return nil, fmt.Errorf("tables: %s: %w", path, err)
		}
		ts.Add(t)
	}
	return ts, nil
}

func yamlTable(name string, rows *yaml.Node) (*scenario.Table, error) {
	if rows.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("table %s: expected a list of rows (line %d)", name, rows.Line)
	}
	var header []string
	index := map[string]int{}
	var records []map[string]any
	for _, r := range rows.Content {
		if r.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("table %s: expected a mapping (line %d)", name, r.Line)
		}
		rec := make(map[string]any, len(r.Content)/2)
		for j := 0; j+1 < len(r.Content); j += 2 {
			key := r.Content[j].Value
			var v any
			if err := r.Content[j+1].Decode(&v); err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", name, key, err)
			}
			if _, ok := index[key]; !ok {
				index[key] = len(header)
				header = append(header, key)
			}
			rec[key] = v
		}
		records = append(records, rec)
	}
	t := scenario.NewTable(name, header...)
	for _, rec := range records {
		cells := make([]any, len(header))
		for k, v := range rec {
			cells[index[k]] = v
		}
		t.Append(cells...)
	}
	return t, nil
}
