package scenario

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarree100/q100opt/core/model"
)

// demoTables is a small district: electricity, heat and gas buses with a
// gas import, a pv profile, an electric demand, a boiler, a CHP and a heat
// storage.
func demoTables() Tables {
	ts := Tables{}

	buses := NewTable(TableBuses, "label", "active", "excess", "shortage", "excess costs", "shortage costs")
	buses.Append("b_el", 1, 1, 1, 0.0, 1000.0)
	buses.Append("b_heat", "true", "0", "false", "", "")
	buses.Append("b_gas", true, false, false, nil, nil)
	buses.Append("b_h2", false, false, false, nil, nil)
	ts.Add(buses)

	sources := NewTable(TableSources, "label", "active", "to", "variable costs", "emissions")
	sources.Append("gas_import", 1, "b_gas", "0.05", "0.2")
	sources.Append("h2_import", 0, "b_h2", 0.1, 0)
	ts.Add(sources)

	series := NewTable(TableSourcesSeries, "label", "active", "to", "scalingfactor")
	series.Append("pv", 1, "b_el", 10.0)
	ts.Add(series)

	demand := NewTable(TableDemand, "label", "active", "from", "scalingfactor", "fixed")
	demand.Append("demand_el", 1, "b_el", 2.0, 1)
	demand.Append("demand_heat", 1, "b_heat", 1.0, 1)
	ts.Add(demand)

	siso := NewTable(TableSISO, "label", "active", "from", "to", "efficiency", "capex", "n", "variable costs", "emissions")
	siso.Append("boiler", 1, "b_gas", "b_heat", 0.9, 100.0, 20.0, 0.01, nil)
	ts.Add(siso)

	sido := NewTable(TableSIDO, "label", "active", "from", "to_1", "to_2", "efficiency_1", "efficiency_2", "capex", "n")
	sido.Append("chp", 1, "b_gas", "b_el", "b_heat", 0.35, 0.5, 1000.0, 15.0)
	ts.Add(sido)

	storages := NewTable(TableStorages, "label", "active", "bus", "capacity_loss",
		"invest_relation_input_capacity", "invest_relation_output_capacity",
		"inflow_conversion_factor", "outflow_conversion_factor", "capex", "n", "initial_capacity")
	storages.Append("heat_storage", 1, "b_heat", 0.01, 0.2, 0.2, 0.95, 0.95, 30.0, 25.0, 0.5)
	ts.Add(storages)

	timeseries := NewTable(TableTimeseries, "timestamp", "pv.actual_value", "demand_el.actual_value",
		"demand_heat.actual_value", "gas_import.variable_costs", "h2_import.actual_value")
	timeseries.Append("2018-03-01 00:00:00", 0.0, 1.0, 5.0, 0.05, 1)
	timeseries.Append("2018-03-01 00:15:00", 0.2, 1.5, 4.0, 0.06, 1)
	timeseries.Append("2018-03-01 00:30:00", 0.4, 2.0, 3.0, 0.07, 1)
	ts.Add(timeseries)

	general := NewTable(TableGeneral, "timesteps", "interest rate", "emission limit")
	general.Append(3, 0.05, 1000)
	ts.Add(general)
	return ts
}

func TestLoadDemo(t *testing.T) {
	topo, err := Load(demoTables())
	require.NoError(t, err)

	idx := topo.Index()
	assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), idx.Start)
	assert.Equal(t, 15*time.Minute, idx.Step)
	assert.Equal(t, 3, idx.Len())

	limit, ok := topo.EmissionLimit()
	require.True(t, ok)
	assert.Equal(t, 1000.0, limit)

	var labels []string
	for _, n := range topo.Nodes() {
		labels = append(labels, n.Name())
	}
	assert.Equal(t, []string{
		"b_el", "b_el_excess", "b_el_shortage", "b_heat", "b_gas",
		"gas_import", "pv", "demand_el", "demand_heat", "boiler", "chp", "heat_storage",
	}, labels)

	n, ok := topo.Node("b_el_shortage")
	require.True(t, ok)
	assert.Equal(t, model.Sequence{1000}, n.(*model.Source).Output.VariableCost)

	n, _ = topo.Node("gas_import")
	gas := n.(*model.Source)
	assert.Equal(t, model.Sequence{0.05, 0.06, 0.07}, gas.Output.VariableCost)
	assert.Equal(t, model.Sequence{0.2}, gas.Output.Emission)

	n, _ = topo.Node("pv")
	pv := n.(*model.Source)
	assert.True(t, pv.Output.Fixed)
	assert.Equal(t, 10.0, *pv.Output.NominalValue)
	assert.Equal(t, model.Sequence{0, 0.2, 0.4}, pv.Output.Profile)

	n, _ = topo.Node("chp")
	chp := n.(*model.Converter)
	assert.Equal(t, model.OneInTwoOut, chp.Arity())
	inv, ok := chp.InvestedOutput()
	require.True(t, ok)
	assert.Equal(t, "b_el", inv.To)
	assert.Equal(t, model.Investment{Capex: 1000, Lifetime: 15, Rate: 0.05}, *inv.Investment)

	storages := topo.Storages()
	require.Len(t, storages, 1)
	s := storages[0]
	assert.True(t, s.Investable())
	assert.Equal(t, 0.5, *s.InitialLevel)
	assert.Equal(t, 0.2, *s.InvestRelationInput)
	assert.Nil(t, s.NominalCapacity)
}

func TestLoadSkipsInactiveRows(t *testing.T) {
	topo, err := Load(demoTables())
	require.NoError(t, err)
	_, ok := topo.Node("b_h2")
	assert.False(t, ok)
	_, ok = topo.Node("h2_import")
	assert.False(t, ok)
}

func scenarioErr(t *testing.T, err error) *ScenarioError {
	t.Helper()
	var se *ScenarioError
	require.True(t, errors.As(err, &se), "got %v", err)
	return se
}

func TestLoadUnknownBus(t *testing.T) {
	ts := demoTables()
	ts[TableSISO].Rows[0][3] = "b_cold"
	_, err := Load(ts)
	se := scenarioErr(t, err)
	assert.Equal(t, TableSISO, se.Table)
	assert.Equal(t, 1, se.Row)
	assert.Contains(t, err.Error(), "Transformer_siso row 1 ")
	assert.Equal(t, "to", se.Column)
	assert.Contains(t, err.Error(), `unknown bus "b_cold"`)
}

func TestLoadReferenceToInactiveBus(t *testing.T) {
	ts := demoTables()
	ts[TableSources].Rows[1][1] = 1
	_, err := Load(ts)
	se := scenarioErr(t, err)
	assert.Equal(t, TableSources, se.Table)
	assert.Equal(t, 2, se.Row)
	assert.Contains(t, err.Error(), "Sources row 2 ")
}

func TestLoadMissingTimeseriesColumn(t *testing.T) {
	ts := demoTables()
	ts[TableDemand].Append("demand_cold", 1, "b_heat", 1.0, 1)
	_, err := Load(ts)
	se := scenarioErr(t, err)
	assert.Equal(t, TableTimeseries, se.Table)
	assert.Equal(t, "demand_cold.actual_value", se.Column)
}

func TestLoadNamedTimeseriesColumn(t *testing.T) {
	ts := demoTables()
	d := NewTable(TableDemand, "label", "active", "from", "scalingfactor", "fixed", "timeseries")
	d.Append("demand_el", 1, "b_el", 1.0, 1, "demand_heat.actual_value")
	d.Append("demand_heat", 1, "b_heat", 1.0, 1, "")
	ts.Add(d)
	topo, err := Load(ts)
	require.NoError(t, err)
	n, _ := topo.Node("demand_el")
	assert.Equal(t, model.Sequence{5, 4, 3}, n.(*model.Sink).Input.Profile)

	d.Rows[0][5] = "nope"
	_, err = Load(ts)
	se := scenarioErr(t, err)
	assert.Equal(t, "timeseries", se.Column)
}

func TestLoadShortTimeseries(t *testing.T) {
	ts := demoTables()
	ts[TableGeneral].Rows[0][0] = 4
	_, err := Load(ts)
	se := scenarioErr(t, err)
	assert.Equal(t, TableTimeseries, se.Table)
	assert.Contains(t, se.Reason, "need 4")
}

func TestLoadMissingRequiredTables(t *testing.T) {
	for _, name := range []string{TableBuses, TableGeneral} {
		ts := demoTables()
		delete(ts, name)
		_, err := Load(ts)
		se := scenarioErr(t, err)
		assert.Equal(t, name, se.Table)
		assert.Zero(t, se.Row)
	}
}

func TestLoadMalformedCell(t *testing.T) {
	ts := demoTables()
	ts[TableSISO].Rows[0][4] = "ninety percent"
	_, err := Load(ts)
	se := scenarioErr(t, err)
	assert.Equal(t, "efficiency", se.Column)
}

func TestLoadUnsupportedAttribute(t *testing.T) {
	ts := demoTables()
	old := ts[TableTimeseries]
	tsCols := append(append([]string{}, old.Header...), "pv.max")
	nt := NewTable(TableTimeseries, tsCols...)
	for _, r := range old.Rows {
		nt.Append(append(append([]any{}, r...), 1.0)...)
	}
	ts.Add(nt)
	_, err := Load(ts)
	se := scenarioErr(t, err)
	assert.Equal(t, "pv.max", se.Column)
}

func TestLoadConfigurationErrorsPassThrough(t *testing.T) {
	ts := demoTables()
	ts[TableStorages].Rows[0][3] = 1.5 // capacity loss outside [0,1]
	_, err := Load(ts)
	var cfg *model.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, "heat_storage", cfg.Label)
	assert.Contains(t, err.Error(), "Storages row 1")
}

func TestLoadDefaultIndex(t *testing.T) {
	ts := Tables{}
	b := NewTable(TableBuses, "label", "active")
	b.Append("b", 1)
	ts.Add(b)
	g := NewTable(TableGeneral, "timesteps", "interest rate")
	g.Append("24", "0")
	ts.Add(g)

	topo, err := Load(ts)
	require.NoError(t, err)
	assert.Equal(t, model.Hourly(DefaultStart, 24), topo.Index())
	_, ok := topo.EmissionLimit()
	assert.False(t, ok)
}

func TestReadGeneralValidation(t *testing.T) {
	ts := Tables{}
	g := NewTable(TableGeneral, "timesteps", "interest rate")
	g.Append(2.5, 0.05)
	ts.Add(g)
	_, err := ReadGeneral(ts)
	assert.Equal(t, "timesteps", scenarioErr(t, err).Column)

	g.Rows[0][0] = 0
	_, err = ReadGeneral(ts)
	assert.Equal(t, "timesteps", scenarioErr(t, err).Column)

	g.Rows[0][0] = 1
	g.Rows[0][1] = nil
	_, err = ReadGeneral(ts)
	assert.Equal(t, "interest rate", scenarioErr(t, err).Column)
}

func TestScenarioErrorMessage(t *testing.T) {
	err := &ScenarioError{Table: "Buses", Row: 3, Column: "label", Reason: "empty cell"}
	assert.Equal(t, `scenario error: Buses row 3 column "label": empty cell`, err.Error())
	err = &ScenarioError{Table: "General", Reason: "missing required table"}
	assert.Equal(t, "scenario error: General: missing required table", err.Error())
}
