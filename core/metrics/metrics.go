package metrics

import "time"

// RunEvent summarises one optimisation run.
type RunEvent struct {
	RunID         string
	Scenario      string
	Solver        string
	Status        string
	Objective     float64
	TotalEmission float64
	Variables     int
	Constraints   int
	NonZeros      int
	BuildTime     time.Duration
	SolveTime     time.Duration
	Time          time.Time
}

// MetricsSink records run summaries for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// SeriesEvent is one result column of a node over the time index.
type SeriesEvent struct {
	RunID  string
	Node   string
	Column string
	Times  []time.Time
	Values []float64
}

// SeriesRecorder records result sequences.
type SeriesRecorder interface {
	RecordSeries(ev []SeriesEvent) error
}

// InvestmentEvent is the capacity chosen for an investable flow or storage.
type InvestmentEvent struct {
	RunID    string
	Scenario string
	Label    string
	Flow     string
	Invest   float64
	Existing float64
	Time     time.Time
}

// InvestmentRecorder records optimised capacities.
type InvestmentRecorder interface {
	RecordInvestments(ev []InvestmentEvent) error
}

// Flusher is implemented by sinks that buffer and write on demand.
type Flusher interface {
	Flush() error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                  { return nil }
func (NopSink) RecordSeries([]SeriesEvent) error          { return nil }
func (NopSink) RecordInvestments([]InvestmentEvent) error { return nil }
func (NopSink) Flush() error                              { return nil }
