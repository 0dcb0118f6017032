package compiler

import (
	"fmt"
	"math"

	"github.com/quarree100/q100opt/core/economics"
	"github.com/quarree100/q100opt/core/lp"
	"github.com/quarree100/q100opt/core/model"
)

// EmissionRow is the name of the global emission limit row.
const EmissionRow = "emission_limit"

type builder struct {
	topo  *model.Topology
	index model.TimeIndex
	prog  *Program
	p     *lp.Problem
}

// Build compiles the topology over index. The index may be shorter than the
// topology index. Invalid combinations fail with a
// *model.ConfigurationError and non-physical economics with a
// *economics.DomainError; no program is returned in either case.
func Build(topo *model.Topology, index model.TimeIndex) (*Program, error) {
	if topo == nil {
		return nil, model.NewConfigurationError("", "nil topology")
	}
	if index.Len() <= 0 {
		return nil, model.NewConfigurationError("", "empty time index")
	}
	if index.Len() > topo.Index().Len() {
		return nil, model.NewConfigurationError("", "time index has %d steps, topology only %d", index.Len(), topo.Index().Len())
	}
	if err := check(topo); err != nil {
		return nil, err
	}
	b := &builder{
		topo:  topo,
		index: index,
		p:     lp.NewProblem("q100opt"),
	}
	b.prog = &Program{
		Problem:       b.p,
		Index:         index,
		Topology:      topo,
		flows:         make(map[model.FlowKey][]lp.VarID),
		soc:           make(map[string][]lp.VarID),
		flowInvest:    make(map[model.FlowKey]lp.VarID),
		storageInvest: make(map[string]lp.VarID),
	}
	steps := []func() error{
		b.flowVariables,
		b.flowInvestments,
		b.balances,
		b.conversions,
		b.storages,
		b.emissionLimit,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return b.prog, nil
}

// check rejects definitions that are valid topologies but cannot be
// compiled.
func check(topo *model.Topology) error {
	for _, n := range topo.Nodes() {
		for _, f := range nodeFlows(n) {
			if !f.Fixed {
				continue
			}
			if f.Investable() {
				return model.NewConfigurationError(n.Name(), "fixed flow %s cannot carry an investment", f.Key())
			}
			if !f.Profile.Defined() {
				return model.NewConfigurationError(n.Name(), "fixed flow %s has no profile", f.Key())
			}
			if f.NominalValue == nil {
				return model.NewConfigurationError(n.Name(), "fixed flow %s has no nominal value", f.Key())
			}
		}
	}
	for _, s := range topo.Storages() {
		if !s.Bounded() && s.InitialLevel != nil && *s.InitialLevel > 0 {
			return model.NewConfigurationError(s.Label, "initial level requires a bounded capacity")
		}
	}
	return nil
}

func nodeFlows(n model.Node) []*model.Flow {
	switch v := n.(type) {
	case *model.Source:
		return []*model.Flow{&v.Output}
	case *model.Sink:
		return []*model.Flow{&v.Input}
	case *model.Converter:
		out := []*model.Flow{&v.Input}
		for i := range v.Outputs {
			out = append(out, &v.Outputs[i].Flow)
		}
		return out
	case *model.Storage:
		return []*model.Flow{&v.Input, &v.Output}
	}
	return nil
}

func (b *builder) addVar(name string, lo, hi float64) (lp.VarID, error) {
	id, err := b.p.AddVariable(name, lo, hi)
	if err != nil {
		return 0, model.NewConfigurationError("", "%v", err)
	}
	return id, nil
}

func flowVarName(k model.FlowKey, t int) string { return fmt.Sprintf("flow(%s,%d)", k, t) }

// flowVariables creates one variable per flow and step and charges the
// variable costs.
func (b *builder) flowVariables() error {
	for _, f := range b.topo.Flows() {
		k := f.Key()
		vars := make([]lp.VarID, b.index.Len())
		for t := range vars {
			lo, hi := 0.0, math.Inf(1)
			switch {
			case f.Fixed:
				lo = f.Profile.At(t) * *f.NominalValue
				hi = lo
			case !f.Investable() && f.NominalValue != nil:
				hi = f.MaxFactor(t) * *f.NominalValue
			}
			id, err := b.addVar(flowVarName(k, t), lo, hi)
			if err != nil {
				return err
			}
			b.p.AddObjective(id, f.VariableCost.At(t))
			vars[t] = id
		}
		b.prog.flows[k] = vars
	}
	return nil
}

func (b *builder) epCosts(label string, inv *model.Investment) (float64, error) {
	ep, err := economics.EPCosts(inv.Capex, inv.Lifetime, inv.Rate, b.index.YearFraction())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	return ep, nil
}

// capacity adds a capacity variable for inv and charges its costs.
func (b *builder) capacity(name, label string, inv *model.Investment) (lp.VarID, error) {
	hi := math.Inf(1)
	if inv.Maximum > 0 {
		hi = inv.Maximum
	}
	id, err := b.addVar(name, 0, hi)
	if err != nil {
		return 0, err
	}
	ep, err := b.epCosts(label, inv)
	if err != nil {
		return 0, err
	}
	b.p.AddObjective(id, ep)
	return id, nil
}

// flowInvestments binds investable flows to their capacity:
// flow(t) - f(t)*cap <= f(t)*existing.
func (b *builder) flowInvestments() error {
	for _, f := range b.topo.Flows() {
		if !f.Investable() {
			continue
		}
		k := f.Key()
		capVar, err := b.capacity(fmt.Sprintf("invest(%s)", k), k.String(), f.Investment)
		if err != nil {
			return err
		}
		b.prog.flowInvest[k] = capVar
		for t, v := range b.prog.flows[k] {
			factor := f.MaxFactor(t)
			b.p.AddConstraint(fmt.Sprintf("invest_bound(%s,%d)", k, t),
				[]lp.Term{{Var: v, Coef: 1}, {Var: capVar, Coef: -factor}},
				lp.LE, factor*f.Investment.Existing)
		}
	}
	return nil
}

// balances emits sum(in) - sum(out) = 0 for every bus and step.
func (b *builder) balances() error {
	for _, bus := range b.topo.Buses() {
		in, out := b.topo.Inflows(bus.Label), b.topo.Outflows(bus.Label)
		if len(in)+len(out) == 0 {
			continue
		}
		for t := 0; t < b.index.Len(); t++ {
			terms := make([]lp.Term, 0, len(in)+len(out))
			for _, f := range in {
				terms = append(terms, lp.Term{Var: b.prog.flows[f.Key()][t], Coef: 1})
			}
			for _, f := range out {
				terms = append(terms, lp.Term{Var: b.prog.flows[f.Key()][t], Coef: -1})
			}
			b.p.AddConstraint(fmt.Sprintf("balance(%s,%d)", bus.Label, t), terms, lp.EQ, 0)
		}
	}
	return nil
}

// conversions emits out_k(t) - eff_k*in(t) = 0. A second output is coupled
// to an invested first output through these equalities alone.
func (b *builder) conversions() error {
	for _, c := range b.topo.Converters() {
		in := b.prog.flows[c.Input.Key()]
		for _, o := range c.Outputs {
			eff := c.Efficiency[o.Bus]
			out := b.prog.flows[o.Flow.Key()]
			for t := range in {
				b.p.AddConstraint(fmt.Sprintf("conversion(%s,%s,%d)", c.Label, o.Bus, t),
					[]lp.Term{{Var: out[t], Coef: 1}, {Var: in[t], Coef: -eff}},
					lp.EQ, 0)
			}
		}
	}
	return nil
}

// storages adds the state of charge variables and rows.
func (b *builder) storages() error {
	for _, s := range b.topo.Storages() {
		if err := b.storage(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) storage(s *model.Storage) error {
	socHi := math.Inf(1)
	if s.NominalCapacity != nil {
		socHi = *s.NominalCapacity
	}
	var (
		capVar   lp.VarID
		existing float64
	)
	if s.Investable() {
		v, err := b.capacity(fmt.Sprintf("invest(%s)", s.Label), s.Label, s.Investment)
		if err != nil {
			return err
		}
		capVar, existing = v, s.Investment.Existing
		b.prog.storageInvest[s.Label] = capVar
	}

	n := b.index.Len()
	soc := make([]lp.VarID, n)
	for t := range soc {
		v, err := b.addVar(fmt.Sprintf("soc(%s,%d)", s.Label, t), 0, socHi)
		if err != nil {
			return err
		}
		soc[t] = v
	}
	b.prog.soc[s.Label] = soc

	in, out := b.prog.flows[s.Input.Key()], b.prog.flows[s.Output.Key()]
	keep := 1 - s.CapacityLoss
	initial := 0.0
	if s.InitialLevel != nil {
		initial = *s.InitialLevel
	}
	for t := 0; t < n; t++ {
		terms := []lp.Term{
			{Var: soc[t], Coef: 1},
			{Var: in[t], Coef: -s.InflowEfficiency},
			{Var: out[t], Coef: 1 / s.OutflowEfficiency},
		}
		rhs := 0.0
		if t > 0 {
			terms = append(terms, lp.Term{Var: soc[t-1], Coef: -keep})
		} else if initial > 0 {
			// soc(-1) is the initial share of the capacity.
			switch {
			case s.NominalCapacity != nil:
				rhs = keep * initial * *s.NominalCapacity
			case s.Investable():
				terms = append(terms, lp.Term{Var: capVar, Coef: -keep * initial})
				rhs = keep * initial * existing
			}
		}
		b.p.AddConstraint(fmt.Sprintf("storage_balance(%s,%d)", s.Label, t), terms, lp.EQ, rhs)
	}

	switch {
	case s.Investable():
		for t, v := range soc {
			b.p.AddConstraint(fmt.Sprintf("storage_capacity(%s,%d)", s.Label, t),
				[]lp.Term{{Var: v, Coef: 1}, {Var: capVar, Coef: -1}}, lp.LE, existing)
		}
		b.relation(s.Label, "input", in, s.InvestRelationInput, capVar, existing)
		b.relation(s.Label, "output", out, s.InvestRelationOutput, capVar, existing)
	case s.NominalCapacity != nil:
		for _, r := range []struct {
			vars []lp.VarID
			rel  *float64
		}{{in, s.InvestRelationInput}, {out, s.InvestRelationOutput}} {
			if r.rel == nil {
				continue
			}
			for _, v := range r.vars {
				b.p.SetUpper(v, *r.rel**s.NominalCapacity)
			}
		}
	}
	return nil
}

// relation bounds a storage flow by a share of the invested capacity.
func (b *builder) relation(label, side string, vars []lp.VarID, rel *float64, capVar lp.VarID, existing float64) {
	if rel == nil {
		return
	}
	for t, v := range vars {
		b.p.AddConstraint(fmt.Sprintf("storage_%s_relation(%s,%d)", side, label, t),
			[]lp.Term{{Var: v, Coef: 1}, {Var: capVar, Coef: -*rel}}, lp.LE, *rel*existing)
	}
}

// emissionLimit emits sum(e(t)*flow(t)) <= limit over every flow with an
// emission factor. Without such flows the row is omitted.
func (b *builder) emissionLimit() error {
	limit, ok := b.topo.EmissionLimit()
	if !ok {
		return nil
	}
	var terms []lp.Term
	for _, f := range b.topo.Flows() {
		if !f.Emission.Defined() {
			continue
		}
		for t, v := range b.prog.flows[f.Key()] {
			terms = append(terms, lp.Term{Var: v, Coef: f.Emission.At(t)})
		}
	}
	if len(terms) == 0 {
		return nil
	}
	b.p.AddConstraint(EmissionRow, terms, lp.LE, limit)
	b.prog.emitting = true
	return nil
}
