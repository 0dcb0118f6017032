package compiler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarree100/q100opt/core/economics"
	"github.com/quarree100/q100opt/core/lp"
	"github.com/quarree100/q100opt/core/model"
)

var start = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

// singleBus is one bus with a source at cost 1 and a fixed demand of 10.
func singleBus(t *testing.T) *model.Topology {
	t.Helper()
	topo := model.NewTopology(model.Hourly(start, 3))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b_el"},
		&model.Source{Label: "grid", Bus: "b_el", Output: model.Flow{VariableCost: model.Constant(1)}},
		&model.Sink{Label: "demand", Bus: "b_el", Input: model.Flow{
			Fixed: true, Profile: model.Sequence{10, 10, 10}, NominalValue: model.Float(1),
		}},
	))
	return topo
}

func values(t *testing.T, prog *Program, set map[string]float64) []float64 {
	t.Helper()
	x := make([]float64, prog.Problem.NumVariables())
	for name, v := range set {
		id, ok := prog.Problem.Lookup(name)
		require.True(t, ok, name)
		x[id] = v
	}
	return x
}

func TestBuildSingleBus(t *testing.T) {
	topo := singleBus(t)
	prog, err := Build(topo, topo.Index())
	require.NoError(t, err)

	assert.Equal(t, Stats{Variables: 6, Constraints: 3, NonZeros: 6}, prog.Stats())

	demand, ok := prog.FlowVars(model.FlowKey{From: "b_el", To: "demand"})
	require.True(t, ok)
	for _, id := range demand {
		v := prog.Problem.Variable(id)
		assert.Equal(t, 10.0, v.Lower)
		assert.Equal(t, 10.0, v.Upper)
	}

	x := values(t, prog, map[string]float64{
		"flow(grid->b_el,0)": 10, "flow(grid->b_el,1)": 10, "flow(grid->b_el,2)": 10,
		"flow(b_el->demand,0)": 10, "flow(b_el->demand,1)": 10, "flow(b_el->demand,2)": 10,
	})
	require.NoError(t, prog.Problem.Check(x, 1e-9))
	assert.InDelta(t, 30.0, prog.Problem.Evaluate(x), 1e-9)

	// An unbalanced bus violates its balance row.
	x[0] = 9
	assert.Error(t, prog.Problem.Check(x, 1e-9))
}

func TestBuildSubHorizon(t *testing.T) {
	topo := singleBus(t)
	prog, err := Build(topo, topo.Index().Truncate(2))
	require.NoError(t, err)
	assert.Equal(t, 4, prog.Stats().Variables)

	_, err = Build(topo, model.Hourly(start, 4))
	var cfg *model.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestBuildFixedInvestmentRejected(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 2))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b"},
		&model.Source{Label: "pv", Bus: "b", Output: model.Flow{
			Fixed: true, Profile: model.Sequence{0.5, 1}, NominalValue: model.Float(1),
			Investment: &model.Investment{Capex: 100, Lifetime: 20},
		}},
	))
	prog, err := Build(topo, topo.Index())
	assert.Nil(t, prog)
	var cfg *model.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, "pv", cfg.Label)
}

func TestBuildFixedWithoutNominalRejected(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 1))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b"},
		&model.Sink{Label: "d", Bus: "b", Input: model.Flow{Fixed: true, Profile: model.Sequence{1}}},
	))
	_, err := Build(topo, topo.Index())
	var cfg *model.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestBuildDomainError(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 1))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b"},
		&model.Source{Label: "s", Bus: "b", Output: model.Flow{
			Investment: &model.Investment{Capex: 100, Lifetime: 0},
		}},
	))
	prog, err := Build(topo, topo.Index())
	assert.Nil(t, prog)
	var dom *economics.DomainError
	assert.True(t, errors.As(err, &dom))
}

func TestBuildConversion(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 1))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "gas"}, &model.Bus{Label: "el"}, &model.Bus{Label: "heat"},
		&model.Source{Label: "gas_import", Bus: "gas", Output: model.Flow{VariableCost: model.Constant(0.05)}},
		&model.Converter{
			Label: "chp", InputBus: "gas",
			Outputs: []model.ConverterOutput{
				{Bus: "el", Flow: model.Flow{Investment: &model.Investment{Capex: 1000, Lifetime: 20, Rate: 0.05}}},
				{Bus: "heat"},
			},
			Efficiency: map[string]float64{"el": 0.35, "heat": 0.5},
		},
		&model.Sink{Label: "el_demand", Bus: "el", Input: model.Flow{Fixed: true, Profile: model.Sequence{35}, NominalValue: model.Float(1)}},
		&model.Sink{Label: "heat_excess", Bus: "heat"},
	))
	prog, err := Build(topo, topo.Index())
	require.NoError(t, err)

	capVar, ok := prog.FlowInvestVar(model.FlowKey{From: "chp", To: "el"})
	require.True(t, ok)
	ep, err := economics.EPCosts(1000, 20, 0.05, 1.0/8760)
	require.NoError(t, err)
	assert.InDelta(t, ep, prog.Problem.Objective()[capVar], 1e-12)

	x := values(t, prog, map[string]float64{
		"flow(gas_import->gas,0)":   100,
		"flow(gas->chp,0)":          100,
		"flow(chp->el,0)":           35,
		"flow(chp->heat,0)":         50,
		"flow(el->el_demand,0)":     35,
		"flow(heat->heat_excess,0)": 50,
		"invest(chp->el)":           35,
	})
	require.NoError(t, prog.Problem.Check(x, 1e-9))

	// The second output is tied to the first exactly.
	x[mustLookup(t, prog, "flow(chp->heat,0)")] = 50.0001
	x[mustLookup(t, prog, "flow(heat->heat_excess,0)")] = 50.0001
	assert.Error(t, prog.Problem.Check(x, 1e-9))

	// Without capacity the electrical output is bounded to zero.
	x = values(t, prog, map[string]float64{
		"flow(gas_import->gas,0)": 100, "flow(gas->chp,0)": 100, "flow(chp->el,0)": 35,
		"flow(chp->heat,0)": 50, "flow(el->el_demand,0)": 35, "flow(heat->heat_excess,0)": 50,
	})
	assert.Error(t, prog.Problem.Check(x, 1e-9))
}

func mustLookup(t *testing.T, prog *Program, name string) lp.VarID {
	t.Helper()
	id, ok := prog.Problem.Lookup(name)
	require.True(t, ok, name)
	return id
}

func TestBuildStorageRecursion(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 2))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b"},
		&model.Source{Label: "grid", Bus: "b", Output: model.Flow{VariableCost: model.Sequence{1, 5}}},
		&model.Sink{Label: "d", Bus: "b", Input: model.Flow{Fixed: true, Profile: model.Sequence{0, 10}, NominalValue: model.Float(1)}},
		&model.Storage{
			Label: "battery", Bus: "b", NominalCapacity: model.Float(20), InitialLevel: model.Float(0.5),
			CapacityLoss: 0.1, InflowEfficiency: 0.9, OutflowEfficiency: 0.8,
			InvestRelationOutput: model.Float(0.5),
		},
	))
	prog, err := Build(topo, topo.Index())
	require.NoError(t, err)

	soc, ok := prog.SocVars("battery")
	require.True(t, ok)
	require.Len(t, soc, 2)
	assert.Equal(t, 20.0, prog.Problem.Variable(soc[0]).Upper)

	out, _ := prog.FlowVars(model.FlowKey{From: "battery", To: "b"})
	assert.Equal(t, 10.0, prog.Problem.Variable(out[0]).Upper)

	// soc(0) = 0.9*10 + 0.9*10 = 18, soc(1) = 0.9*18 - 8/0.8 = 6.2
	x := values(t, prog, map[string]float64{
		"flow(grid->b,0)":    10,
		"flow(b->battery,0)": 10,
		"soc(battery,0)":     18,
		"flow(grid->b,1)":    2,
		"flow(battery->b,1)": 8,
		"soc(battery,1)":     6.2,
		"flow(b->d,1)":       10,
	})
	require.NoError(t, prog.Problem.Check(x, 1e-9))
	assert.InDelta(t, 20.0, prog.Problem.Evaluate(x), 1e-9)

	x[mustLookup(t, prog, "soc(battery,1)")] = 6.3
	assert.Error(t, prog.Problem.Check(x, 1e-9))
}

func TestBuildStorageInvestment(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 1))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b"},
		&model.Storage{
			Label: "tank", Bus: "b", InflowEfficiency: 1, OutflowEfficiency: 1,
			Investment:          &model.Investment{Capex: 876, Lifetime: 1, Existing: 2},
			InvestRelationInput: model.Float(0.25),
		},
	))
	prog, err := Build(topo, topo.Index())
	require.NoError(t, err)

	capVar, ok := prog.StorageInvestVar("tank")
	require.True(t, ok)
	assert.InDelta(t, 0.1, prog.Problem.Objective()[capVar], 1e-12)

	_, ok = prog.Problem.Constraint("storage_capacity(tank,0)")
	assert.True(t, ok)
	rel, ok := prog.Problem.Constraint("storage_input_relation(tank,0)")
	require.True(t, ok)
	assert.Equal(t, 0.5, rel.RHS)
	_, ok = prog.Problem.Constraint("storage_output_relation(tank,0)")
	assert.False(t, ok)
}

func TestBuildUnlimitedStorageWithInitialLevel(t *testing.T) {
	topo := model.NewTopology(model.Hourly(start, 1))
	require.NoError(t, topo.Add(
		&model.Bus{Label: "b"},
		&model.Storage{Label: "s", Bus: "b", InflowEfficiency: 1, OutflowEfficiency: 1, InitialLevel: model.Float(0.5)},
	))
	_, err := Build(topo, topo.Index())
	var cfg *model.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}

func TestBuildEmissionLimit(t *testing.T) {
	t.Run("omitted without emitting flows", func(t *testing.T) {
		topo := singleBus(t)
		topo.SetEmissionLimit(0)
		prog, err := Build(topo, topo.Index())
		require.NoError(t, err)
		assert.False(t, prog.HasEmissionRow())
		_, ok := prog.Problem.Constraint(EmissionRow)
		assert.False(t, ok)
	})

	t.Run("sums weighted flows", func(t *testing.T) {
		topo := model.NewTopology(model.Hourly(start, 2))
		require.NoError(t, topo.Add(
			&model.Bus{Label: "b"},
			&model.Source{Label: "gas", Bus: "b", Output: model.Flow{Emission: model.Sequence{0.2, 0.3}}},
			&model.Source{Label: "pv", Bus: "b"},
		))
		topo.SetEmissionLimit(5)
		prog, err := Build(topo, topo.Index())
		require.NoError(t, err)
		require.True(t, prog.HasEmissionRow())
		row, ok := prog.Problem.Constraint(EmissionRow)
		require.True(t, ok)
		assert.Equal(t, lp.LE, row.Sense)
		assert.Equal(t, 5.0, row.RHS)
		require.Len(t, row.Terms, 2)
		assert.Equal(t, 0.2, row.Terms[0].Coef)
		assert.Equal(t, 0.3, row.Terms[1].Coef)
	})
}

func TestBuildDeterministic(t *testing.T) {
	topo := singleBus(t)
	a, err := Build(topo, topo.Index())
	require.NoError(t, err)
	b, err := Build(topo, topo.Index())
	require.NoError(t, err)
	assert.Equal(t, a.Problem.Variables(), b.Problem.Variables())
	assert.Equal(t, a.Problem.Constraints(), b.Problem.Constraints())
}
