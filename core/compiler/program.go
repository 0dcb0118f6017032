// Package compiler translates a topology into a linear program. Build is
// deterministic: the same topology and index yield the same variable and
// row order.
package compiler

import (
	"github.com/quarree100/q100opt/core/lp"
	"github.com/quarree100/q100opt/core/model"
)

// Program is a compiled linear program together with the lookups needed to
// map a solution back onto the topology.
type Program struct {
	Problem  *lp.Problem
	Index    model.TimeIndex
	Topology *model.Topology

	flows         map[model.FlowKey][]lp.VarID
	soc           map[string][]lp.VarID
	flowInvest    map[model.FlowKey]lp.VarID
	storageInvest map[string]lp.VarID
	emitting      bool
}

// Stats summarises the size of a program.
type Stats struct {
	Variables   int `json:"variables"`
	Constraints int `json:"constraints"`
	NonZeros    int `json:"non_zeros"`
}

// Stats returns the program size.
func (p *Program) Stats() Stats {
	return Stats{
		Variables:   p.Problem.NumVariables(),
		Constraints: p.Problem.NumConstraints(),
		NonZeros:    p.Problem.NonZeros(),
	}
}

// FlowVars returns the per step variables of a flow.
func (p *Program) FlowVars(k model.FlowKey) ([]lp.VarID, bool) {
	v, ok := p.flows[k]
	return v, ok
}

// SocVars returns the state of charge variables of a storage.
func (p *Program) SocVars(label string) ([]lp.VarID, bool) {
	v, ok := p.soc[label]
	return v, ok
}

// FlowInvestVar returns the capacity variable of an investable flow.
func (p *Program) FlowInvestVar(k model.FlowKey) (lp.VarID, bool) {
	v, ok := p.flowInvest[k]
	return v, ok
}

// StorageInvestVar returns the capacity variable of an investable storage.
func (p *Program) StorageInvestVar(label string) (lp.VarID, bool) {
	v, ok := p.storageInvest[label]
	return v, ok
}

// HasEmissionRow reports whether the emission limit row was emitted.
func (p *Program) HasEmissionRow() bool { return p.emitting }
