package results

import (
	"math"

	"github.com/quarree100/q100opt/core/compiler"
	"github.com/quarree100/q100opt/core/lp"
	"github.com/quarree100/q100opt/core/model"
	"github.com/quarree100/q100opt/core/solver"
)

// Extract builds the result set of a solved program. A non optimal solution
// yields a *solver.StatusError; values that do not cover the program yield an
// *ExtractionError.
func Extract(prog *compiler.Program, sol solver.Solution, topo *model.Topology) (*ResultSet, error) {
	if sol.Status != solver.Optimal {
		return nil, &solver.StatusError{Status: sol.Status}
	}
	p := prog.Problem
	if len(sol.Values) < p.NumVariables() {
		missing := p.Variable(lp.VarID(len(sol.Values))).Name
		return nil, &ExtractionError{Variable: missing, Reason: "no solved value"}
	}
	for i := 0; i < p.NumVariables(); i++ {
		if v := sol.Values[i]; math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ExtractionError{Variable: p.Variable(lp.VarID(i)).Name, Reason: "non-finite value"}
		}
	}

	x := &extractor{prog: prog, values: sol.Values}
	rs := &ResultSet{
		Status:     sol.Status,
		StatusText: sol.Status.String(),
		Objective:  sol.Objective,
		Index:      prog.Index.Times(),
		flows:      make(map[model.FlowKey][]float64),
	}
	for _, f := range topo.Flows() {
		vals, err := x.flow(f.Key())
		if err != nil {
			return nil, err
		}
		rs.flows[f.Key()] = vals
		if f.Emission.Defined() {
			for t, v := range vals {
				rs.TotalEmission += f.Emission.At(t) * v
			}
		}
	}

	for _, n := range topo.Nodes() {
		nr := NodeResult{Label: n.Name(), Kind: n.Kind().String(), kind: n.Kind()}
		switch v := n.(type) {
		case *model.Bus:
			for _, f := range topo.Inflows(v.Label) {
				nr.Sequences = append(nr.Sequences, Column{Name: f.Key().String(), Values: rs.flows[f.Key()]})
			}
			for _, f := range topo.Outflows(v.Label) {
				nr.Sequences = append(nr.Sequences, Column{Name: f.Key().String(), Values: negate(rs.flows[f.Key()])})
			}
		case *model.Storage:
			nr.Sequences = rs.columns(&v.Input, &v.Output)
			soc, err := x.soc(v.Label)
			if err != nil {
				return nil, err
			}
			nr.Sequences = append(nr.Sequences, Column{Name: "soc", Values: soc})
			if id, ok := prog.StorageInvestVar(v.Label); ok {
				nr.Scalars = append(nr.Scalars, Scalar{Name: "invest", Value: x.values[id]})
				rs.investments = append(rs.investments, Investment{Label: v.Label, Invest: x.values[id], Existing: v.Investment.Existing})
			}
			rs.flowInvestments(&nr, x, v.Input, v.Output)
		case *model.Source:
			nr.Sequences = rs.columns(&v.Output)
			rs.flowInvestments(&nr, x, v.Output)
		case *model.Sink:
			nr.Sequences = rs.columns(&v.Input)
			rs.flowInvestments(&nr, x, v.Input)
		case *model.Converter:
			flows := []model.Flow{v.Input}
			for _, o := range v.Outputs {
				flows = append(flows, o.Flow)
			}
			for i := range flows {
				nr.Sequences = append(nr.Sequences, rs.columns(&flows[i])...)
			}
			rs.flowInvestments(&nr, x, flows...)
		}
		rs.Nodes = append(rs.Nodes, nr)
	}
	return rs, nil
}

type extractor struct {
	prog   *compiler.Program
	values []float64
}

func (x *extractor) flow(k model.FlowKey) ([]float64, error) {
	ids, ok := x.prog.FlowVars(k)
	if !ok {
		return nil, &ExtractionError{Variable: k.String(), Reason: "flow not compiled"}
	}
	return x.pick(ids), nil
}

func (x *extractor) soc(label string) ([]float64, error) {
	ids, ok := x.prog.SocVars(label)
	if !ok {
		return nil, &ExtractionError{Variable: label, Reason: "state of charge not compiled"}
	}
	return x.pick(ids), nil
}

func (x *extractor) pick(ids []lp.VarID) []float64 {
	out := make([]float64, len(ids))
	for t, id := range ids {
		out[t] = x.values[id]
	}
	return out
}

func (rs *ResultSet) columns(flows ...*model.Flow) []Column {
	out := make([]Column, 0, len(flows))
	for _, f := range flows {
		out = append(out, Column{Name: f.Key().String(), Values: rs.flows[f.Key()]})
	}
	return out
}

func (rs *ResultSet) flowInvestments(nr *NodeResult, x *extractor, flows ...model.Flow) {
	for _, f := range flows {
		id, ok := x.prog.FlowInvestVar(f.Key())
		if !ok {
			continue
		}
		key := f.Key().String()
		nr.Scalars = append(nr.Scalars, Scalar{Name: "invest", Flow: key, Value: x.values[id]})
		rs.investments = append(rs.investments, Investment{Label: nr.Label, Flow: key, Invest: x.values[id], Existing: f.Investment.Existing})
	}
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = 0 - f // no negative zeros
	}
	return out
}
