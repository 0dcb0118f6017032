// Package scenario turns scenario tables into a topology. Tables are read
// by the infra/tables readers; this package only interprets them.
package scenario

// Names of the scenario tables.
const (
	TableBuses         = "Buses"
	TableSources       = "Sources"
	TableSourcesSeries = "Sources_series"
	TableDemand        = "Demand"
	TableSISO          = "Transformer_siso"
	TableSIDO          = "Transformer_sido"
	TableStorages      = "Storages"
	TableTimeseries    = "Timeseries"
	TableGeneral       = "General"
)

// TableNames lists the tables in load order.
var TableNames = []string{
	TableBuses, TableSources, TableSourcesSeries, TableDemand,
	TableSISO, TableSIDO, TableStorages, TableTimeseries, TableGeneral,
}

// Table is one sheet of a scenario. Cells hold raw values as read: strings,
// numbers, booleans, times or nil for empty cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any

	cols map[string]int
}

// NewTable returns an empty table with the given header.
func NewTable(name string, header ...string) *Table {
	t := &Table{Name: name, Header: header, cols: make(map[string]int, len(header))}
	for i, h := range header {
		if _, dup := t.cols[h]; !dup {
			t.cols[h] = i
		}
	}
	return t
}

// Append adds a row. Missing trailing cells are empty.
func (t *Table) Append(cells ...any) {
	row := make([]any, len(t.Header))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table has the column.
func (t *Table) Has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// Cell returns the raw value at row and col. It returns false when the
// column does not exist.
func (t *Table) Cell(row int, col string) (any, bool) {
	i, ok := t.cols[col]
	if !ok || row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	if i >= len(t.Rows[row]) {
		return nil, true
	}
	return t.Rows[row][i], true
}

// Tables is a scenario keyed by table name.
type Tables map[string]*Table

// Add stores t under its name.
func (ts Tables) Add(t *Table) { ts[t.Name] = t }

// Get returns the named table.
func (ts Tables) Get(name string) (*Table, bool) {
	t, ok := ts[name]
	return t, ok
}
