package tables

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/quarree100/q100opt/core/model"
	"github.com/quarree100/q100opt/core/scenario"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func assertDemo(t *testing.T, ts scenario.Tables) {
	t.Helper()
	topo, err := scenario.Load(ts)
	require.NoError(t, err)
	assert.Equal(t, 2, topo.Index().Len())
	assert.WithinDuration(t, time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), topo.Index().Start, time.Millisecond)
	// Excel serial dates are not exact to the nanosecond.
	assert.InDelta(t, time.Hour.Seconds(), topo.Index().Step.Seconds(), 1e-3)

	n, ok := topo.Node("demand_el")
	require.True(t, ok)
	assert.Equal(t, model.Sequence{1, 2}, n.(*model.Sink).Input.Profile)
	_, ok = topo.Node("b_el_shortage")
	assert.True(t, ok)
	_, ok = topo.Node("old_boiler")
	assert.False(t, ok)
}

func TestReadCSVDir(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "Buses.csv"), "label;active;excess;shortage;excess costs;shortage costs\nb_el;1;0;1;;1000\nb_gas;1;0;0;;\n")
	write(t, filepath.Join(dir, "Sources.csv"), "label;active;to;variable costs;emissions\ngas;1;b_gas;0,05;0.2\n")
	write(t, filepath.Join(dir, "Demand.csv"), "label;active;from;scalingfactor;fixed\ndemand_el;1;b_el;1;1\n")
	write(t, filepath.Join(dir, "Transformer_siso.csv"), "label;active;from;to;efficiency;capex;n\nold_boiler;0;b_gas;b_el;0.3;10;10\n;;;;;;\n")
	write(t, filepath.Join(dir, "Timeseries.csv"), "timestamp;demand_el.actual_value\n2016-01-01 00:00:00;1\n2016-01-01 01:00:00;2\n")
	write(t, filepath.Join(dir, "General.csv"), "timesteps;interest rate;emission limit\n2;0.05;\n")

	ts, err := Read(dir, Options{Separator: ';'})
	require.NoError(t, err)
	assert.Len(t, ts, 6)
	siso, ok := ts.Get(scenario.TableSISO)
	require.True(t, ok)
	assert.Equal(t, 1, siso.Len(), "blank rows are dropped")

	// "0,05" is not a number with a ';' separated file.
	_, err = scenario.Load(ts)
	var se *scenario.ScenarioError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "variable costs", se.Column)

	write(t, filepath.Join(dir, "Sources.csv"), "label;active;to;variable costs;emissions\ngas;1;b_gas;0.05;0.2\n")
	ts, err = Read(dir, Options{Format: "csv", Separator: ';'})
	require.NoError(t, err)
	assertDemo(t, ts)
}

const demoYAML = `
Buses:
  - {label: b_el, active: true, excess: false, shortage: true, shortage costs: 1000}
  - {label: b_gas, active: true}
Sources:
  - {label: gas, active: true, to: b_gas, variable costs: 0.05, emissions: 0.2}
Demand:
  - {label: demand_el, active: 1, from: b_el, scalingfactor: 1, fixed: true}
Transformer_siso:
  - {label: old_boiler, active: false, from: b_gas, to: b_el, efficiency: 0.3, capex: 10, n: 10}
Timeseries:
  - {timestamp: "2016-01-01 00:00:00", demand_el.actual_value: 1}
  - {timestamp: "2016-01-01 01:00:00", demand_el.actual_value: 2}
General:
  - {timesteps: 2, interest rate: 0.05}
`

func TestReadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	write(t, path, demoYAML)

	ts, err := Read(path, Options{})
	require.NoError(t, err)
	buses, ok := ts.Get(scenario.TableBuses)
	require.True(t, ok)
	assert.Equal(t, []string{"label", "active", "excess", "shortage", "shortage costs"}, buses.Header)
	v, ok := buses.Cell(1, "shortage")
	assert.True(t, ok)
	assert.Nil(t, v)
	assertDemo(t, ts)
}

func TestReadYAMLRejectsMalformedDocuments(t *testing.T) {
	dir := t.TempDir()
	for name, doc := range map[string]string{
		"list.yaml":   "- a\n- b\n",
		"scalar.yaml": "Buses: 3\n",
		"rows.yaml":   "Buses:\n  - 3\n",
	} {
		path := filepath.Join(dir, name)
		write(t, path, doc)
		_, err := ReadYAML(path)
		assert.Error(t, err, name)
	}
}

func TestReadWorkbook(t *testing.T) {
	f := xlsx.NewFile()
	addSheet := func(name string, header []string, rows ...[]any) {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		hr := sheet.AddRow()
		for _, h := range header {
			hr.AddCell().SetString(h)
		}
		for _, r := range rows {
			xr := sheet.AddRow()
			for _, v := range r {
				c := xr.AddCell()
				switch x := v.(type) {
				case string:
					c.SetString(x)
				case float64:
					c.SetFloat(x)
				case int:
					c.SetInt(x)
				}
			}
		}
	}
	addSheet("Buses", []string{"label", "active", "excess", "shortage", "excess costs", "shortage costs"},
		[]any{"b_el", 1, 0, 1, "", 1000.0}, []any{"b_gas", 1, 0, 0})
	addSheet("Sources", []string{"label", "active", "to", "variable costs", "emissions"},
		[]any{"gas", 1, "b_gas", 0.05, 0.2})
	addSheet("Demand", []string{"label", "active", "from", "scalingfactor", "fixed"},
		[]any{"demand_el", 1, "b_el", 1, 1})
	addSheet("Transformer_siso", []string{"label", "active", "from", "to", "efficiency", "capex", "n"},
		[]any{"old_boiler", 0, "b_gas", "b_el", 0.3, 10, 10})
	// 42370 is 2016-01-01 as Excel serial date.
	addSheet("Timeseries", []string{"timestamp", "demand_el.actual_value"},
		[]any{42370.0, 1.0}, []any{42370.0 + 1.0/24, 2.0})
	addSheet("General", []string{"timesteps", "interest rate"}, []any{2, 0.05})

	path := filepath.Join(t.TempDir(), "scenario.xlsx")
	require.NoError(t, f.Save(path))

	ts, err := Read(path, Options{})
	require.NoError(t, err)
	series, ok := ts.Get(scenario.TableTimeseries)
	require.True(t, ok)
	v, _ := series.Cell(0, "timestamp")
	assert.IsType(t, time.Time{}, v)
	assertDemo(t, ts)
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	format, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	path := filepath.Join(dir, "s.yml")
	write(t, path, "")
	format, err = Detect(path)
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, format)

	path = filepath.Join(dir, "s.txt")
	write(t, path, "")
	_, err = Detect(path)
	assert.Error(t, err)

	_, err = Read(path, Options{Format: "ods"})
	assert.Error(t, err)
}
