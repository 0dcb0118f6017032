package model

// Kind tags every topology entity with its variant.
type Kind int

const (
	KindBus Kind = iota
	KindSource
	KindSink
	KindConverter
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindBus:
		return "Bus"
	case KindSource:
		return "Source"
	case KindSink:
		return "Sink"
	case KindConverter:
		return "Converter"
	case KindStorage:
		return "Storage"
	default:
		return "Unknown"
	}
}

// Node is a bus or a unit of the energy system. The set of implementations
// is closed.
type Node interface {
	Name() string
	Kind() Kind
	flows() []*Flow
}

// Bus is a commodity balance point.
type Bus struct {
	Label string
}

func (b *Bus) Name() string   { return b.Label }
func (b *Bus) Kind() Kind     { return KindBus }
func (b *Bus) flows() []*Flow { return nil }

// Source feeds a bus, e.g. a commodity import or a fixed profile generator.
type Source struct {
	Label  string
	Bus    string
	Output Flow
}

func (s *Source) Name() string   { return s.Label }
func (s *Source) Kind() Kind     { return KindSource }
func (s *Source) flows() []*Flow { return []*Flow{&s.Output} }

// Sink draws from a bus, e.g. a demand or an excess outlet.
type Sink struct {
	Label string
	Bus   string
	Input Flow
}

func (s *Sink) Name() string   { return s.Label }
func (s *Sink) Kind() Kind     { return KindSink }
func (s *Sink) flows() []*Flow { return []*Flow{&s.Input} }

// ConverterOutput is one output of a converter.
type ConverterOutput struct {
	Bus  string
	Flow Flow
}

// Arity distinguishes single and double output converters.
type Arity int

const (
	OneInOneOut Arity = 1
	OneInTwoOut Arity = 2
)

func (a Arity) String() string {
	if a == OneInTwoOut {
		return "1in2out"
	}
	return "1in1out"
}

// Converter transforms one input commodity into one or two outputs with
// fixed efficiencies (CHP, boiler, heat pump, electrolyzer).
type Converter struct {
	Label    string
	InputBus string
	Input    Flow
	Outputs  []ConverterOutput
	// Efficiency maps an output bus label to its conversion factor.
	Efficiency map[string]float64
}

func (c *Converter) Name() string { return c.Label }
func (c *Converter) Kind() Kind   { return KindConverter }

// Arity returns the number of outputs.
func (c *Converter) Arity() Arity { return Arity(len(c.Outputs)) }

func (c *Converter) flows() []*Flow {
	out := []*Flow{&c.Input}
	for i := range c.Outputs {
		out = append(out, &c.Outputs[i].Flow)
	}
	return out
}

// InvestedOutput returns the output flow carrying the investment, if any.
func (c *Converter) InvestedOutput() (*Flow, bool) {
	for i := range c.Outputs {
		if c.Outputs[i].Flow.Investable() {
			return &c.Outputs[i].Flow, true
		}
	}
	return nil, false
}

// Storage holds a state of charge between time steps.
type Storage struct {
	Label  string
	Bus    string
	Input  Flow
	Output Flow

	// NominalCapacity fixes the energy capacity. When both NominalCapacity
	// and Investment are nil the capacity is unlimited.
	NominalCapacity *float64
	Investment      *Investment

	CapacityLoss      float64
	InitialLevel      *float64 // fraction of the capacity at the start
	InflowEfficiency  float64
	OutflowEfficiency float64

	InvestRelationInput  *float64
	InvestRelationOutput *float64
}

func (s *Storage) Name() string   { return s.Label }
func (s *Storage) Kind() Kind     { return KindStorage }
func (s *Storage) flows() []*Flow { return []*Flow{&s.Input, &s.Output} }

// Investable reports whether the storage capacity is a decision.
func (s *Storage) Investable() bool { return s.Investment != nil }

// Bounded reports whether the storage has a finite capacity.
func (s *Storage) Bounded() bool { return s.NominalCapacity != nil || s.Investment != nil }
