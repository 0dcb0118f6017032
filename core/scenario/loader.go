package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/quarree100/q100opt/core/model"
)

// Timeseries attributes applied to flows.
const (
	AttrActualValue   = "actual_value"
	AttrVariableCosts = "variable_costs"
	AttrEmissions     = "emissions"
)

// DefaultStart is the start of the time index when no time series are given.
var DefaultStart = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

// General holds the scenario wide scalars.
type General struct {
	Timesteps     int
	InterestRate  float64
	EmissionLimit *float64
}

type loader struct {
	tables  Tables
	general General
	index   model.TimeIndex
	topo    *model.Topology
	buses   map[string]*model.Bus
	series  *Table
}

// Load builds a topology from scenario tables. Buses and General are
// required, all other tables are optional. Rows with active=false are
// skipped. Unknown bus labels, missing time series columns and malformed
// cells fail with a *ScenarioError; invalid units with a
// *model.ConfigurationError.
func Load(ts Tables) (*model.Topology, error) {
	l := &loader{tables: ts, buses: make(map[string]*model.Bus)}
	for _, name := range []string{TableBuses, TableGeneral} {
		if _, ok := ts.Get(name); !ok {
			return nil, tableErr(name, "", "missing required table")
		}
	}
	var err error
	if l.general, err = ReadGeneral(ts); err != nil {
		return nil, err
	}
	l.series, _ = ts.Get(TableTimeseries)
	if l.index, err = l.timeIndex(); err != nil {
		return nil, err
	}
	l.topo = model.NewTopology(l.index)
	if l.general.EmissionLimit != nil {
		l.topo.SetEmissionLimit(*l.general.EmissionLimit)
	}

	steps := []struct {
		table string
		fn    func(row) error
	}{
		{TableBuses, l.bus},
		{TableSources, l.source},
		{TableSourcesSeries, l.seriesSource},
		{TableDemand, l.demand},
		{TableSISO, l.siso},
		{TableSIDO, l.sido},
		{TableStorages, l.storage},
	}
	for _, s := range steps {
		t, ok := ts.Get(s.table)
		if !ok {
			continue
		}
		for i := range t.Rows {
			r := row{t: t, i: i}
			active, err := r.boolean("active", true)
			if err != nil {
				return nil, err
			}
			if !active {
				continue
			}
			if err := s.fn(r); err != nil {
				return nil, err
			}
		}
	}
	return l.topo, nil
}

// ReadGeneral reads the first row of the General table.
func ReadGeneral(ts Tables) (General, error) {
	t, ok := ts.Get(TableGeneral)
	if !ok {
		return General{}, tableErr(TableGeneral, "", "missing required table")
	}
	if t.Len() == 0 {
		return General{}, tableErr(TableGeneral, "", "no rows")
	}
	r := row{t: t, i: 0}
	var g General
	var err error
	if g.Timesteps, err = r.integer("timesteps"); err != nil {
		return General{}, err
	}
	if g.Timesteps <= 0 {
		return General{}, r.err("timesteps", "must be positive, got %d", g.Timesteps)
	}
	if g.InterestRate, err = r.float("interest rate"); err != nil {
		return General{}, err
	}
	if g.EmissionLimit, err = r.optFloat("emission limit"); err != nil {
		return General{}, err
	}
	return g, nil
}

// timeIndex starts at the first timestamp with the step of the first two
// rows, or hourly from DefaultStart.
func (l *loader) timeIndex() (model.TimeIndex, error) {
	t := l.series
	if t == nil || t.Len() == 0 || !t.Has("timestamp") {
		return model.Hourly(DefaultStart, l.general.Timesteps), nil
	}
	first, err := row{t: t, i: 0}.timestamp("timestamp")
	if err != nil {
		return model.TimeIndex{}, err
	}
	step := time.Hour
	if t.Len() > 1 {
		second, err := row{t: t, i: 1}.timestamp("timestamp")
		if err != nil {
			return model.TimeIndex{}, err
		}
		if step = second.Sub(first); step <= 0 {
			return model.TimeIndex{}, row{t: t, i: 1}.err("timestamp", "timestamps must increase")
		}
	}
	return model.NewTimeIndex(first, step, l.general.Timesteps), nil
}

// column returns the first Timesteps values of a Timeseries column.
func (l *loader) column(name string) (model.Sequence, bool, error) {
	if l.series == nil || !l.series.Has(name) {
		return nil, false, nil
	}
	n := l.general.Timesteps
	if l.series.Len() < n {
		return nil, true, tableErr(TableTimeseries, name, "has %d rows, need %d", l.series.Len(), n)
	}
	out := make(model.Sequence, n)
	for i := range out {
		v, err := row{t: l.series, i: i}.float(name)
		if err != nil {
			return nil, true, err
		}
		out[i] = v
	}
	return out, true, nil
}

// applySeries sets the flow attributes given as <label>.<attr> columns.
func (l *loader) applySeries(label string, f *model.Flow) error {
	if l.series == nil {
		return nil
	}
	prefix := label + "."
	for _, col := range l.series.Header {
		if !strings.HasPrefix(col, prefix) {
			continue
		}
		seq, _, err := l.column(col)
		if err != nil {
			return err
		}
		switch attr := strings.TrimPrefix(col, prefix); attr {
		case AttrActualValue:
			f.Profile = seq
		case AttrVariableCosts:
			f.VariableCost = seq
		case AttrEmissions:
			f.Emission = seq
		default:
			return tableErr(TableTimeseries, col, "unsupported attribute %q", attr)
		}
	}
	return nil
}

func (l *loader) busRef(r row, col string) (string, error) {
	label, err := r.str(col)
	if err != nil {
		return "", err
	}
	b, ok := l.buses[label]
	if !ok {
		return "", r.err(col, "unknown bus %q", label)
	}
	return b.Label, nil
}

func (l *loader) add(r row, nodes ...model.Node) error {
	if err := l.topo.Add(nodes...); err != nil {
		return fmt.Errorf("%s row %d: %w", r.t.Name, r.i+1, err)
	}
	return nil
}

func (l *loader) investment(r row) (*model.Investment, error) {
	capex, err := r.float("capex")
	if err != nil {
		return nil, err
	}
	n, err := r.float("n")
	if err != nil {
		return nil, err
	}
	return &model.Investment{Capex: capex, Lifetime: n, Rate: l.general.InterestRate}, nil
}

// optConstant returns a constant sequence for a non-empty cell.
func optConstant(r row, col string) (model.Sequence, error) {
	v, err := r.optFloat(col)
	if err != nil || v == nil {
		return nil, err
	}
	return model.Constant(*v), nil
}

func (l *loader) bus(r row) error {
	label, err := r.str("label")
	if err != nil {
		return err
	}
	b := &model.Bus{Label: label}
	nodes := []model.Node{b}
	excess, err := r.boolean("excess", false)
	if err != nil {
		return err
	}
	if excess {
		cost, err := optConstant(r, "excess costs")
		if err != nil {
			return err
		}
		nodes = append(nodes, &model.Sink{Label: label + "_excess", Bus: label, Input: model.Flow{VariableCost: cost}})
	}
	shortage, err := r.boolean("shortage", false)
	if err != nil {
		return err
	}
	if shortage {
		cost, err := optConstant(r, "shortage costs")
		if err != nil {
			return err
		}
		nodes = append(nodes, &model.Source{Label: label + "_shortage", Bus: label, Output: model.Flow{VariableCost: cost}})
	}
	if err := l.add(r, nodes...); err != nil {
		return err
	}
	l.buses[label] = b
	return nil
}

func (l *loader) source(r row) error {
	label, err := r.str("label")
	if err != nil {
		return err
	}
	to, err := l.busRef(r, "to")
	if err != nil {
		return err
	}
	var f model.Flow
	if f.VariableCost, err = optConstant(r, "variable costs"); err != nil {
		return err
	}
	if f.Emission, err = optConstant(r, "emissions"); err != nil {
		return err
	}
	if err := l.applySeries(label, &f); err != nil {
		return err
	}
	return l.add(r, &model.Source{Label: label, Bus: to, Output: f})
}

// requireProfile fails when a fixed flow got no actual value.
func requireProfile(r row, label string, f *model.Flow) error {
	if f.Fixed && !f.Profile.Defined() {
		return &ScenarioError{Table: TableTimeseries, Column: label + "." + AttrActualValue,
			Reason: fmt.Sprintf("missing time series column referenced by %s row %d", r.t.Name, r.i+1)}
	}
	return nil
}

func (l *loader) seriesSource(r row) error {
	label, err := r.str("label")
	if err != nil {
		return err
	}
	to, err := l.busRef(r, "to")
	if err != nil {
		return err
	}
	scale, err := r.float("scalingfactor")
	if err != nil {
		return err
	}
	f := model.Flow{Fixed: true, NominalValue: model.Float(scale)}
	if err := l.applySeries(label, &f); err != nil {
		return err
	}
	if err := requireProfile(r, label, &f); err != nil {
		return err
	}
	return l.add(r, &model.Source{Label: label, Bus: to, Output: f})
}

func (l *loader) demand(r row) error {
	label, err := r.str("label")
	if err != nil {
		return err
	}
	from, err := l.busRef(r, "from")
	if err != nil {
		return err
	}
	scale, err := r.float("scalingfactor")
	if err != nil {
		return err
	}
	fixed, err := r.boolean("fixed", false)
	if err != nil {
		return err
	}
	f := model.Flow{Fixed: fixed, NominalValue: model.Float(scale)}
	if err := l.applySeries(label, &f); err != nil {
		return err
	}
	if _, named := r.raw("timeseries"); named {
		col, err := r.str("timeseries")
		if err != nil {
			return err
		}
		seq, ok, err := l.column(col)
		if err != nil {
			return err
		}
		if !ok {
			return r.err("timeseries", "unknown time series column %q", col)
		}
		f.Profile = seq
	}
	if err := requireProfile(r, label, &f); err != nil {
		return err
	}
	return l.add(r, &model.Sink{Label: label, Bus: from, Input: f})
}

// invested returns the output flow of a transformer: costs, emissions and
// the investment all attach to it.
func (l *loader) invested(r row, label string) (model.Flow, error) {
	var f model.Flow
	var err error
	if f.VariableCost, err = optConstant(r, "variable costs"); err != nil {
		return f, err
	}
	if f.Emission, err = optConstant(r, "emissions"); err != nil {
		return f, err
	}
	if f.Investment, err = l.investment(r); err != nil {
		return f, err
	}
	return f, l.applySeries(label, &f)
}

func (l *loader) siso(r row) error {
	label, err := r.str("label")
	if err != nil {
		return err
	}
	from, err := l.busRef(r, "from")
	if err != nil {
		return err
	}
	to, err := l.busRef(r, "to")
	if err != nil {
		return err
	}
	eff, err := r.float("efficiency")
	if err != nil {
		return err
	}
	out, err := l.invested(r, label)
	if err != nil {
		return err
	}
	return l.add(r, &model.Converter{
		Label:      label,
		InputBus:   from,
		Outputs:    []model.ConverterOutput{{Bus: to, Flow: out}},
		Efficiency: map[string]float64{to: eff},
	})
}

func (l *loader) sido(r row) error {
	label, err := r.str("label")
	if err != nil {
		return err
	}
	from, err := l.busRef(r, "from")
	if err != nil {
		return err
	}
	to1, err := l.busRef(r, "to_1")
	if err != nil {
		return err
	}
	to2, err := l.busRef(r, "to_2")
	if err != nil {
		return err
	}
	eff1, err := r.float("efficiency_1")
	if err != nil {
		return err
	}
	eff2, err := r.float("efficiency_2")
	if err != nil {
		return err
	}
	out, err := l.invested(r, label)
	if err != nil {
		return err
	}
	return l.add(r, &model.Converter{
		Label:    label,
		InputBus: from,
		Outputs: []model.ConverterOutput{
			{Bus: to1, Flow: out},
			{Bus: to2},
		},
		Efficiency: map[string]float64{to1: eff1, to2: eff2},
	})
}

func (l *loader) storage(r row) error {
	label, err := r.str("label")
	if err != nil {
		return err
	}
	bus, err := l.busRef(r, "bus")
	if err != nil {
		return err
	}
	s := &model.Storage{Label: label, Bus: bus}
	if s.CapacityLoss, err = r.float("capacity_loss"); err != nil {
		return err
	}
	if s.InflowEfficiency, err = r.float("inflow_conversion_factor"); err != nil {
		return err
	}
	if s.OutflowEfficiency, err = r.float("outflow_conversion_factor"); err != nil {
		return err
	}
	if s.InvestRelationInput, err = r.optFloat("invest_relation_input_capacity"); err != nil {
		return err
	}
	if s.InvestRelationOutput, err = r.optFloat("invest_relation_output_capacity"); err != nil {
		return err
	}
	if s.InitialLevel, err = r.optFloat("initial_capacity"); err != nil {
		return err
	}
	if s.NominalCapacity, err = r.optFloat("nominal capacity"); err != nil {
		return err
	}
	if s.NominalCapacity == nil {
		if s.Investment, err = l.investment(r); err != nil {
			return err
		}
	}
	return l.add(r, s)
}
