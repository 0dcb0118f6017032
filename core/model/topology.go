package model

import "math"

// Topology is the typed in-memory energy system. Labels are unique across
// buses and units and are used as public names in results.
type Topology struct {
	index    TimeIndex
	nodes    []Node
	byLabel  map[string]Node
	flows    []*Flow
	flowKeys map[FlowKey]struct{}
	inflows  map[string][]*Flow
	outflows map[string][]*Flow

	emissionLimit *float64
}

// NewTopology returns an empty topology over the given time index.
func NewTopology(index TimeIndex) *Topology {
	return &Topology{
		index:    index,
		byLabel:  make(map[string]Node),
		flowKeys: make(map[FlowKey]struct{}),
		inflows:  make(map[string][]*Flow),
		outflows: make(map[string][]*Flow),
	}
}

// Index returns the time index the topology was built for.
func (t *Topology) Index() TimeIndex { return t.index }

// SetEmissionLimit configures the global emission limit.
func (t *Topology) SetEmissionLimit(limit float64) { t.emissionLimit = &limit }

// ClearEmissionLimit removes the global emission limit.
func (t *Topology) ClearEmissionLimit() { t.emissionLimit = nil }

// EmissionLimit returns the global emission limit if one is configured.
func (t *Topology) EmissionLimit() (float64, bool) {
	if t.emissionLimit == nil {
		return 0, false
	}
	return *t.emissionLimit, true
}

// Add validates and adds nodes. Buses must be added before the units that
// reference them, either in an earlier call or earlier in the same call.
// Either all nodes are added or none.
func (t *Topology) Add(nodes ...Node) error {
	staged := make(map[string]Node, len(nodes))
	stagedKeys := make(map[FlowKey]struct{})
	lookup := func(label string) (Node, bool) {
		if n, ok := t.byLabel[label]; ok {
			return n, true
		}
		n, ok := staged[label]
		return n, ok
	}
	for _, n := range nodes {
		if n == nil {
			return configErrorf("", "nil node")
		}
		label := n.Name()
		if label == "" {
			return configErrorf("", "%s without label", n.Kind())
		}
		if _, dup := lookup(label); dup {
			return configErrorf(label, "duplicate label")
		}
		if err := t.wire(n, lookup); err != nil {
			return err
		}
		for _, f := range n.flows() {
			if err := f.validate(label, t.index.Len()); err != nil {
				return err
			}
			k := f.Key()
			_, dupA := t.flowKeys[k]
			_, dupB := stagedKeys[k]
			if dupA || dupB {
				return configErrorf(label, "duplicate flow %s", k)
			}
			stagedKeys[k] = struct{}{}
		}
		staged[label] = n
	}
	for _, n := range nodes {
		t.nodes = append(t.nodes, n)
		t.byLabel[n.Name()] = n
		for _, f := range n.flows() {
			t.flows = append(t.flows, f)
			t.flowKeys[f.Key()] = struct{}{}
			t.outflows[f.From] = append(t.outflows[f.From], f)
			t.inflows[f.To] = append(t.inflows[f.To], f)
		}
	}
	return nil
}

// wire resolves bus references and sets the flow endpoints.
func (t *Topology) wire(n Node, lookup func(string) (Node, bool)) error {
	bus := func(owner, ref string) error {
		if ref == "" {
			return configErrorf(owner, "missing bus reference")
		}
		b, ok := lookup(ref)
		if !ok {
			return configErrorf(owner, "unknown bus %q", ref)
		}
		if b.Kind() != KindBus {
			return configErrorf(owner, "%q is a %s, not a bus", ref, b.Kind())
		}
		return nil
	}
	switch v := n.(type) {
	case *Bus:
		return nil
	case *Source:
		if err := bus(v.Label, v.Bus); err != nil {
			return err
		}
		v.Output.From, v.Output.To = v.Label, v.Bus
	case *Sink:
		if err := bus(v.Label, v.Bus); err != nil {
			return err
		}
		v.Input.From, v.Input.To = v.Bus, v.Label
	case *Converter:
		return t.wireConverter(v, bus)
	case *Storage:
		if err := bus(v.Label, v.Bus); err != nil {
			return err
		}
		if err := validateStorage(v); err != nil {
			return err
		}
		v.Input.From, v.Input.To = v.Bus, v.Label
		v.Output.From, v.Output.To = v.Label, v.Bus
	default:
		return configErrorf(n.Name(), "unsupported node type %T", n)
	}
	return nil
}

func (t *Topology) wireConverter(c *Converter, bus func(owner, ref string) error) error {
	if err := bus(c.Label, c.InputBus); err != nil {
		return err
	}
	if len(c.Outputs) < 1 || len(c.Outputs) > 2 {
		return configErrorf(c.Label, "converter needs one or two outputs, got %d", len(c.Outputs))
	}
	seen := make(map[string]bool, len(c.Outputs))
	invested := 0
	for i := range c.Outputs {
		out := &c.Outputs[i]
		if err := bus(c.Label, out.Bus); err != nil {
			return err
		}
		if seen[out.Bus] {
			return configErrorf(c.Label, "output bus %q declared twice", out.Bus)
		}
		seen[out.Bus] = true
		eff, ok := c.Efficiency[out.Bus]
		if !ok {
			return configErrorf(c.Label, "missing conversion factor for output %q", out.Bus)
		}
		if eff < 0 || math.IsNaN(eff) || math.IsInf(eff, 0) {
			return configErrorf(c.Label, "invalid conversion factor %v for output %q", eff, out.Bus)
		}
		if out.Flow.Investable() {
			invested++
		}
		out.Flow.From, out.Flow.To = c.Label, out.Bus
	}
	for b := range c.Efficiency {
		if !seen[b] {
			return configErrorf(c.Label, "conversion factor for undeclared output %q", b)
		}
	}
	if invested > 1 {
		return configErrorf(c.Label, "at most one output may carry an investment, got %d", invested)
	}
	c.Input.From, c.Input.To = c.InputBus, c.Label
	return nil
}

func validateStorage(s *Storage) error {
	if s.CapacityLoss < 0 || s.CapacityLoss > 1 {
		return configErrorf(s.Label, "capacity loss %v outside [0,1]", s.CapacityLoss)
	}
	if s.InflowEfficiency <= 0 || s.OutflowEfficiency <= 0 {
		return configErrorf(s.Label, "inflow and outflow efficiencies must be positive")
	}
	if s.InitialLevel != nil && (*s.InitialLevel < 0 || *s.InitialLevel > 1) {
		return configErrorf(s.Label, "initial level %v outside [0,1]", *s.InitialLevel)
	}
	if s.NominalCapacity != nil && s.Investment != nil {
		return configErrorf(s.Label, "nominal capacity and investment are mutually exclusive")
	}
	if s.NominalCapacity != nil && *s.NominalCapacity < 0 {
		return configErrorf(s.Label, "negative nominal capacity")
	}
	for _, r := range []*float64{s.InvestRelationInput, s.InvestRelationOutput} {
		if r != nil && *r < 0 {
			return configErrorf(s.Label, "negative invest relation")
		}
	}
	if inv := s.Investment; inv != nil && (inv.Maximum < 0 || inv.Existing < 0) {
		return configErrorf(s.Label, "investment bounds must not be negative")
	}
	return nil
}

// Node returns the node with the given label.
func (t *Topology) Node(label string) (Node, bool) {
	n, ok := t.byLabel[label]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (t *Topology) Nodes() []Node { return append([]Node(nil), t.nodes...) }

// Flows returns all flows in insertion order.
func (t *Topology) Flows() []*Flow { return append([]*Flow(nil), t.flows...) }

// Inflows returns the flows ending at label.
func (t *Topology) Inflows(label string) []*Flow { return t.inflows[label] }

// Outflows returns the flows starting at label.
func (t *Topology) Outflows(label string) []*Flow { return t.outflows[label] }

// Buses returns all buses.
func (t *Topology) Buses() []*Bus { return collect[*Bus](t.nodes) }

// Sources returns all sources.
func (t *Topology) Sources() []*Source { return collect[*Source](t.nodes) }

// Sinks returns all sinks.
func (t *Topology) Sinks() []*Sink { return collect[*Sink](t.nodes) }

// Converters returns all converters.
func (t *Topology) Converters() []*Converter { return collect[*Converter](t.nodes) }

// Storages returns all storages.
func (t *Topology) Storages() []*Storage { return collect[*Storage](t.nodes) }

func collect[T Node](nodes []Node) []T {
	var out []T
	for _, n := range nodes {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
