package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func index3() TimeIndex {
	return Hourly(time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), 3)
}

func requireConfigError(t *testing.T, err error) *ConfigurationError {
	t.Helper()
	var ce *ConfigurationError
	require.Error(t, err)
	require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %T: %v", err, err)
	return ce
}

func TestTopology_AddWiresFlows(t *testing.T) {
	topo := NewTopology(index3())
	require.NoError(t, topo.Add(&Bus{Label: "bel"}, &Bus{Label: "bheat"}, &Bus{Label: "bgas"}))
	src := &Source{Label: "gas", Bus: "bgas", Output: Flow{VariableCost: Constant(3)}}
	dem := &Sink{Label: "demand", Bus: "bheat", Input: Flow{Fixed: true, Profile: Sequence{1, 2, 3}, NominalValue: Float(10)}}
	chp := &Converter{
		Label:    "chp",
		InputBus: "bgas",
		Outputs: []ConverterOutput{
			{Bus: "bel", Flow: Flow{Investment: &Investment{Capex: 100, Lifetime: 20}}},
			{Bus: "bheat"},
		},
		Efficiency: map[string]float64{"bel": 0.3, "bheat": 0.5},
	}
	require.NoError(t, topo.Add(src, dem, chp))

	assert.Equal(t, FlowKey{From: "gas", To: "bgas"}, src.Output.Key())
	assert.Equal(t, FlowKey{From: "bheat", To: "demand"}, dem.Input.Key())
	assert.Equal(t, FlowKey{From: "bgas", To: "chp"}, chp.Input.Key())
	assert.Equal(t, "chp->bel", chp.Outputs[0].Flow.Key().String())
	assert.Equal(t, OneInTwoOut, chp.Arity())

	assert.Len(t, topo.Buses(), 3)
	assert.Len(t, topo.Converters(), 1)
	assert.Len(t, topo.Flows(), 5)
	assert.Len(t, topo.Inflows("bheat"), 1)
	assert.Len(t, topo.Outflows("bgas"), 1)

	f, ok := chp.InvestedOutput()
	require.True(t, ok)
	assert.Equal(t, "bel", f.To)
}

func TestTopology_UnknownBus(t *testing.T) {
	topo := NewTopology(index3())
	require.NoError(t, topo.Add(&Bus{Label: "bel"}))
	ce := requireConfigError(t, topo.Add(&Sink{Label: "d", Bus: "bheat"}))
	assert.Equal(t, "d", ce.Label)
	assert.Empty(t, topo.Sinks())
}

func TestTopology_BusReferenceMustBeBus(t *testing.T) {
	topo := NewTopology(index3())
	require.NoError(t, topo.Add(&Bus{Label: "bel"}, &Source{Label: "grid", Bus: "bel"}))
	requireConfigError(t, topo.Add(&Sink{Label: "d", Bus: "grid"}))
}

func TestTopology_DuplicateLabel(t *testing.T) {
	topo := NewTopology(index3())
	requireConfigError(t, topo.Add(&Bus{Label: "bel"}, &Source{Label: "bel", Bus: "bel"}))
	assert.Empty(t, topo.Nodes(), "failed add must not leave partial state")
}

func TestTopology_MissingConversionFactor(t *testing.T) {
	topo := NewTopology(index3())
	require.NoError(t, topo.Add(&Bus{Label: "bgas"}, &Bus{Label: "bel"}, &Bus{Label: "bheat"}))
	err := topo.Add(&Converter{
		Label:      "chp",
		InputBus:   "bgas",
		Outputs:    []ConverterOutput{{Bus: "bel"}, {Bus: "bheat"}},
		Efficiency: map[string]float64{"bel": 0.3},
	})
	ce := requireConfigError(t, err)
	assert.Contains(t, ce.Reason, "bheat")
}

func TestTopology_ConverterChecks(t *testing.T) {
	inv := &Investment{Capex: 1, Lifetime: 1}
	cases := map[string]*Converter{
		"no outputs": {Label: "c", InputBus: "b1"},
		"three outputs": {Label: "c", InputBus: "b1", Outputs: []ConverterOutput{{Bus: "b2"}, {Bus: "b3"}, {Bus: "b1"}},
			Efficiency: map[string]float64{"b1": 1, "b2": 1, "b3": 1}},
		"two investments": {Label: "c", InputBus: "b1",
			Outputs:    []ConverterOutput{{Bus: "b2", Flow: Flow{Investment: inv}}, {Bus: "b3", Flow: Flow{Investment: inv}}},
			Efficiency: map[string]float64{"b2": 1, "b3": 1}},
		"undeclared factor": {Label: "c", InputBus: "b1", Outputs: []ConverterOutput{{Bus: "b2"}},
			Efficiency: map[string]float64{"b2": 1, "b3": 1}},
		"negative factor": {Label: "c", InputBus: "b1", Outputs: []ConverterOutput{{Bus: "b2"}},
			Efficiency: map[string]float64{"b2": -1}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			topo := NewTopology(index3())
			require.NoError(t, topo.Add(&Bus{Label: "b1"}, &Bus{Label: "b2"}, &Bus{Label: "b3"}))
			requireConfigError(t, topo.Add(c))
		})
	}
}

func TestTopology_ProfileLength(t *testing.T) {
	topo := NewTopology(index3())
	require.NoError(t, topo.Add(&Bus{Label: "bel"}))
	requireConfigError(t, topo.Add(&Sink{Label: "d", Bus: "bel",
		Input: Flow{Fixed: true, Profile: Sequence{1, 2}, NominalValue: Float(1)}}))
	requireConfigError(t, topo.Add(&Source{Label: "s", Bus: "bel",
		Output: Flow{VariableCost: Sequence{1, 2}}}))
	require.NoError(t, topo.Add(&Source{Label: "s", Bus: "bel",
		Output: Flow{VariableCost: Sequence{1, 2, 3}, Emission: Constant(0.2)}}))
}

func TestTopology_StorageChecks(t *testing.T) {
	base := func() *Storage {
		return &Storage{Label: "st", Bus: "bel", InflowEfficiency: 1, OutflowEfficiency: 1}
	}
	bad := []func(*Storage){
		func(s *Storage) { s.CapacityLoss = 1.5 },
		func(s *Storage) { s.InflowEfficiency = 0 },
		func(s *Storage) { s.InitialLevel = Float(2) },
		func(s *Storage) { s.NominalCapacity = Float(5); s.Investment = &Investment{} },
		func(s *Storage) { s.InvestRelationInput = Float(-1) },
	}
	for i, mutate := range bad {
		topo := NewTopology(index3())
		require.NoError(t, topo.Add(&Bus{Label: "bel"}))
		s := base()
		mutate(s)
		if err := topo.Add(s); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	topo := NewTopology(index3())
	s := base()
	require.NoError(t, topo.Add(&Bus{Label: "bel"}, s))
	assert.Equal(t, FlowKey{From: "bel", To: "st"}, s.Input.Key())
	assert.Equal(t, FlowKey{From: "st", To: "bel"}, s.Output.Key())
	assert.False(t, s.Bounded())
}

func TestTopology_EmissionLimit(t *testing.T) {
	topo := NewTopology(index3())
	_, ok := topo.EmissionLimit()
	assert.False(t, ok)
	topo.SetEmissionLimit(0)
	v, ok := topo.EmissionLimit()
	assert.True(t, ok)
	assert.Zero(t, v)
	topo.ClearEmissionLimit()
	_, ok = topo.EmissionLimit()
	assert.False(t, ok)
}

func TestSequenceAndIndex(t *testing.T) {
	assert.Equal(t, 0.0, Sequence(nil).At(2))
	assert.Equal(t, 4.0, Constant(4).At(2))
	assert.Equal(t, 3.0, Sequence{1, 2, 3}.At(2))
	assert.True(t, Sequence{0, 0, 1}.Nonzero(3))
	assert.False(t, Sequence{0, 0, 1}.Nonzero(2))

	ti := index3()
	assert.InDelta(t, 3.0/8760, ti.YearFraction(), 1e-15)
	assert.Equal(t, ti.Start.Add(2*time.Hour), ti.At(2))
	assert.Len(t, ti.Times(), 3)
	assert.Equal(t, 2, ti.Truncate(2).Len())
	q := NewTimeIndex(ti.Start, 15*time.Minute, 4)
	assert.InDelta(t, 1.0/8760, q.YearFraction(), 1e-15)
	assert.Equal(t, time.Hour, NewTimeIndex(ti.Start, 0, 1).Step)
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "Bus", KindBus.String())
	assert.Equal(t, "Storage", KindStorage.String())
	assert.Equal(t, "1in2out", OneInTwoOut.String())
	assert.Equal(t, "1in1out", OneInOneOut.String())
}
