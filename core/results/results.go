// Package results maps a solved program back onto the named topology.
package results

import (
	"fmt"
	"time"

	"github.com/quarree100/q100opt/core/model"
	"github.com/quarree100/q100opt/core/solver"
)

// Column is a named time series of a node.
type Column struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Scalar is a named scalar of a node. Flow is set for flow investments and
// empty for storage capacities.
type Scalar struct {
	Name  string  `json:"name"`
	Flow  string  `json:"flow,omitempty"`
	Value float64 `json:"value"`
}

// NodeResult holds the sequences and scalars of one bus or unit.
type NodeResult struct {
	Label     string   `json:"label"`
	Kind      string   `json:"kind"`
	Sequences []Column `json:"sequences,omitempty"`
	Scalars   []Scalar `json:"scalars,omitempty"`

	kind model.Kind
}

// NodeKind returns the variant of the node.
func (n *NodeResult) NodeKind() model.Kind { return n.kind }

// Sequence returns the named column.
func (n *NodeResult) Sequence(name string) ([]float64, bool) {
	for _, c := range n.Sequences {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// Scalar returns the value of the named scalar. flow selects flow
// investments and is empty for node scalars.
func (n *NodeResult) Scalar(name, flow string) (float64, bool) {
	for _, s := range n.Scalars {
		if s.Name == name && s.Flow == flow {
			return s.Value, true
		}
	}
	return 0, false
}

// Investment is an installed capacity chosen by the optimizer.
type Investment struct {
	Label    string  `json:"label"`
	Flow     string  `json:"flow,omitempty"`
	Invest   float64 `json:"invest"`
	Existing float64 `json:"existing"`
}

// Total is the capacity available after the investment.
func (i Investment) Total() float64 { return i.Invest + i.Existing }

// ResultSet is the outcome of a run.
type ResultSet struct {
	Status        solver.Status `json:"-"`
	StatusText    string        `json:"status"`
	Objective     float64       `json:"objective"`
	TotalEmission float64       `json:"total_emission"`
	Index         []time.Time   `json:"index"`
	Nodes         []NodeResult  `json:"nodes"`

	flows       map[model.FlowKey][]float64
	investments []Investment
}

// Node returns the result of the labelled node.
func (r *ResultSet) Node(label string) (*NodeResult, bool) {
	for i := range r.Nodes {
		if r.Nodes[i].Label == label {
			return &r.Nodes[i], true
		}
	}
	return nil, false
}

// Flow returns the values of a flow.
func (r *ResultSet) Flow(k model.FlowKey) ([]float64, bool) {
	v, ok := r.flows[k]
	return v, ok
}

// Investments returns all invested capacities in topology order.
func (r *ResultSet) Investments() []Investment {
	return append([]Investment(nil), r.investments...)
}

// Labels returns the node labels in topology order.
func (r *ResultSet) Labels() []string {
	out := make([]string, len(r.Nodes))
	for i, n := range r.Nodes {
		out[i] = n.Label
	}
	return out
}

// ExtractionError reports a mismatch between a program and its solution.
// It indicates a defect, not a user error.
type ExtractionError struct {
	Variable string
	Reason   string
}

func (e *ExtractionError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("extraction error: %s", e.Reason)
	}
	return fmt.Sprintf("extraction error: %s: %s", e.Variable, e.Reason)
}
