package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/quarree100/q100opt/core/metrics"
)

// PromConfig configures the Prometheus sink.
type PromConfig struct {
	// Textfile is the path of a node-exporter textfile written on Flush.
	// Empty disables writing.
	Textfile string `json:"textfile"`
}

// PromSink records run summaries in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	objective   *prometheus.GaugeVec
	emission    *prometheus.GaugeVec
	size        *prometheus.GaugeVec
	solveTime   *prometheus.HistogramVec
	investments *prometheus.GaugeVec

	gatherer prometheus.Gatherer
	textfile string
}

// NewPromSink registers run metrics on a private registry so that the
// textfile only holds optimisation metrics.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	reg := prometheus.NewRegistry()
	return NewPromSinkWithRegistry(cfg, reg, reg)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer, a nil
// gatherer to the global gatherer.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer, g prometheus.Gatherer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "q100opt_runs_total",
		Help: "Total number of optimisation runs",
	}, []string{"scenario", "solver", "status"})
	objective := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "q100opt_objective",
		Help: "Objective value of the last optimal run",
	}, []string{"scenario"})
	emission := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "q100opt_total_emission",
		Help: "Total emission of the last optimal run",
	}, []string{"scenario"})
	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "q100opt_problem_size",
		Help: "Size of the last compiled linear program",
	}, []string{"scenario", "dimension"})
	solveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "q100opt_solve_seconds",
		Help:    "Time spent in the solver",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"solver"})
	investments := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "q100opt_invested_capacity",
		Help: "Capacity chosen for investable flows and storages",
	}, []string{"label", "flow"})

	var err error
	s := &PromSink{gatherer: g, textfile: cfg.Textfile}
	if s.runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, objective); err != nil {
		return nil, err
	}
	if s.emission, err = register(reg, emission); err != nil {
		return nil, err
	}
	if s.size, err = register(reg, size); err != nil {
		return nil, err
	}
	if s.solveTime, err = register(reg, solveTime); err != nil {
		return nil, err
	}
	if s.investments, err = register(reg, investments); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the existing collector when an identical one is
// already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun counts the run and, when it is optimal, sets the gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Scenario, ev.Solver, ev.Status).Inc()
	s.solveTime.WithLabelValues(ev.Solver).Observe(ev.SolveTime.Seconds())
	if ev.Status != "optimal" {
		return nil
	}
	s.objective.WithLabelValues(ev.Scenario).Set(ev.Objective)
	s.emission.WithLabelValues(ev.Scenario).Set(ev.TotalEmission)
	s.size.WithLabelValues(ev.Scenario, "variables").Set(float64(ev.Variables))
	s.size.WithLabelValues(ev.Scenario, "constraints").Set(float64(ev.Constraints))
	s.size.WithLabelValues(ev.Scenario, "nonzeros").Set(float64(ev.NonZeros))
	return nil
}

// RecordInvestments sets the capacity gauges.
func (s *PromSink) RecordInvestments(ev []coremetrics.InvestmentEvent) error {
	for _, e := range ev {
		s.investments.WithLabelValues(e.Label, e.Flow).Set(e.Invest + e.Existing)
	}
	return nil
}

// Flush writes the gathered metrics to the textfile.
func (s *PromSink) Flush() error {
	if s.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(s.textfile, s.gatherer)
}
