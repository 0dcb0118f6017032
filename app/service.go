// Package app wires the optimisation pipeline: scenario loading, LP
// compilation, solving, result extraction and publication of the results
// to exports, metrics sinks and the run log.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quarree100/q100opt/config"
	"github.com/quarree100/q100opt/core/compiler"
	"github.com/quarree100/q100opt/core/logger"
	"github.com/quarree100/q100opt/core/metrics"
	"github.com/quarree100/q100opt/core/model"
	"github.com/quarree100/q100opt/core/monitoring"
	"github.com/quarree100/q100opt/core/results"
	"github.com/quarree100/q100opt/core/runlog"
	"github.com/quarree100/q100opt/core/scenario"
	"github.com/quarree100/q100opt/core/solver"
	inflog "github.com/quarree100/q100opt/infra/logger"
	_ "github.com/quarree100/q100opt/infra/metrics"
	infmon "github.com/quarree100/q100opt/infra/monitoring"
	"github.com/quarree100/q100opt/infra/tables"
	"github.com/quarree100/q100opt/pkg/export"
)

// Service runs optimisations with the configured collaborators.
type Service struct {
	cfg     *config.Config
	solver  solver.Solver
	sink    metrics.MetricsSink
	store   runlog.Store
	monitor monitoring.Monitor
	log     logger.Logger
	newID   func() string
	now     func() time.Time
}

// Option replaces a collaborator built from the configuration.
type Option func(*Service)

func WithSolver(s solver.Solver) Option { return func(svc *Service) { svc.solver = s } }
func WithSink(s metrics.MetricsSink) Option { return func(svc *Service) { svc.sink = s } }
func WithStore(s runlog.Store) Option { return func(svc *Service) { svc.store = s } }
func WithMonitor(m monitoring.Monitor) Option { return func(svc *Service) { svc.monitor = m } }
func WithLogger(l logger.Logger) Option { return func(svc *Service) { svc.log = l } }
func WithClock(now func() time.Time) Option { return func(svc *Service) { svc.now = now } }
func WithRunIDs(newID func() string) Option { return func(svc *Service) { svc.newID = newID } }

// New creates a Service from the configuration. Collaborators not supplied
// as options are built from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{cfg: cfg}
	for _, o := range opts {
		o(svc)
	}
	if svc.log == nil {
		svc.log = inflog.New("service")
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	var err error
	if svc.solver == nil {
		if svc.solver, err = solver.New(cfg.Solver.Module(), inflog.New("solver")); err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
	}
	if svc.sink == nil {
		if svc.sink, err = metrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}
	if svc.store == nil {
		if svc.store, err = runlog.Open(cfg.RunLog.Options()); err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
	}
	if svc.monitor == nil {
		svc.monitor = monitoring.NopMonitor{}
		if cfg.Sentry.DSN != "" {
			if svc.monitor, err = infmon.NewSentryMonitor(cfg.Sentry); err != nil {
				return nil, fmt.Errorf("sentry: %w", err)
			}
		}
	}
	return svc, nil
}

// Request describes one run. Zero fields fall back to the configuration.
type Request struct {
	Scenario string
	Tables   tables.Options
	// EmissionLimit replaces the limit of the General table.
	EmissionLimit *float64
	// Timesteps optimises the first n steps only.
	Timesteps int
	OutDir    string
	Formats   []string
}

// Report is the outcome of a successful run.
type Report struct {
	RunID     string
	Scenario  string
	Stats     compiler.Stats
	Result    *results.ResultSet
	Files     []string
	BuildTime time.Duration
	SolveTime time.Duration
}

// Load reads the scenario tables of req and builds the topology.
func (s *Service) Load(req Request) (*model.Topology, error) {
	return LoadTopology(s.cfg.Scenario, req)
}

// LoadTopology reads the scenario of req, falling back to cfg for the
// source, and builds the topology.
func LoadTopology(cfg config.ScenarioConfig, req Request) (*model.Topology, error) {
	path, opts := source(cfg, req)
	if path == "" {
		return nil, errors.New("no scenario given")
	}
	ts, err := tables.Read(path, opts)
	if err != nil {
		return nil, err
	}
	topo, err := scenario.Load(ts)
	if err != nil {
		return nil, err
	}
	if req.EmissionLimit != nil {
		topo.SetEmissionLimit(*req.EmissionLimit)
	}
	return topo, nil
}

func source(cfg config.ScenarioConfig, req Request) (string, tables.Options) {
	path, opts := req.Scenario, req.Tables
	if path == "" {
		path = cfg.Path
	}
	def := cfg.TableOptions()
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if opts.Separator == 0 {
		opts.Separator = def.Separator
	}
	return path, opts
}

// Run executes the pipeline. Results are only published for optimal
// solutions; every attempt is written to the run log.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	defer s.monitor.Recover()
	rep := &Report{RunID: s.newID()}
	path, _ := source(s.cfg.Scenario, req)
	rep.Scenario = scenarioName(path)
	started := s.now()
	rec := runlog.RunRecord{
		RunID:     rep.RunID,
		Timestamp: started,
		Scenario:  rep.Scenario,
		Solver:    s.solver.Name(),
	}

	res, err := s.optimise(ctx, req, rep, &rec)
	rec.DurationMS = s.now().Sub(started).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		if rec.Status == "" {
			rec.Status = "failed"
		}
		s.report(err, rep)
		s.publishRun(rep, rec)
		s.flush()
		s.appendRecord(ctx, rec)
		return nil, err
	}
	rep.Result = res
	rec.Status = res.StatusText
	rec.Objective = res.Objective
	rec.TotalEmission = res.TotalEmission
	rec.Investments = make(map[string]float64)
	for _, inv := range res.Investments() {
		rec.Investments[investKey(inv)] = inv.Total()
	}

	dir := req.OutDir
	if dir == "" {
		dir = s.cfg.Results.Dir
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = s.cfg.Results.Formats
	}
	for _, f := range formats {
		files, err := export.Write(filepath.Join(dir, rep.RunID), f, rep.RunID, res)
		rep.Files = append(rep.Files, files...)
		if err != nil {
			s.appendRecord(ctx, rec)
			return rep, fmt.Errorf("export %s: %w", f, err)
		}
	}

	s.publishRun(rep, rec)
	s.publishResults(rep, res)
	s.flush()
	s.appendRecord(ctx, rec)
	s.log.Infof("run %s: %s objective=%.4f emission=%.4f", rep.RunID, res.StatusText, res.Objective, res.TotalEmission)
	return rep, nil
}

func (s *Service) optimise(ctx context.Context, req Request, rep *Report, rec *runlog.RunRecord) (*results.ResultSet, error) {
	topo, err := s.Load(req)
	if err != nil {
		return nil, err
	}
	if limit, ok := topo.EmissionLimit(); ok {
		rec.EmissionLimit = &limit
	}
	index := topo.Index()
	if req.Timesteps > 0 {
		index = index.Truncate(req.Timesteps)
	}
	rec.Timesteps = index.Len()

	t0 := s.now()
	prog, err := compiler.Build(topo, index)
	if err != nil {
		return nil, err
	}
	rep.BuildTime = s.now().Sub(t0)
	rep.Stats = prog.Stats()
	rec.Variables = rep.Stats.Variables
	rec.Constraints = rep.Stats.Constraints
	s.log.Debugw("program built", map[string]any{
		"run_id":      rep.RunID,
		"variables":   rep.Stats.Variables,
		"constraints": rep.Stats.Constraints,
		"non_zeros":   rep.Stats.NonZeros,
	})

	if d := s.cfg.Solver.Timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	t0 = s.now()
	sol, err := s.solver.Solve(ctx, prog.Problem)
	rep.SolveTime = s.now().Sub(t0)
	rec.Status = sol.Status.String()
	if err := solver.Require(sol, err); err != nil {
		return nil, err
	}
	return results.Extract(prog, sol, topo)
}

// report sends defects to the monitor. User errors, including a problem
// too large for the configured solver, are only logged.
func (s *Service) report(err error, rep *Report) {
	s.log.Errorf("run %s failed: %v", rep.RunID, err)
	var ee *results.ExtractionError
	var se *solver.StatusError
	defect := errors.As(err, &se) && se.Status == solver.Error && !errors.Is(err, solver.ErrProblemTooLarge)
	if errors.As(err, &ee) || defect {
		s.monitor.CaptureException(err, map[string]string{
			"run_id":   rep.RunID,
			"scenario": rep.Scenario,
			"solver":   s.solver.Name(),
		})
	}
}

func (s *Service) publishRun(rep *Report, rec runlog.RunRecord) {
	ev := metrics.RunEvent{
		RunID:         rep.RunID,
		Scenario:      rep.Scenario,
		Solver:        rec.Solver,
		Status:        rec.Status,
		Objective:     rec.Objective,
		TotalEmission: rec.TotalEmission,
		Variables:     rep.Stats.Variables,
		Constraints:   rep.Stats.Constraints,
		NonZeros:      rep.Stats.NonZeros,
		BuildTime:     rep.BuildTime,
		SolveTime:     rep.SolveTime,
		Time:          rec.Timestamp,
	}
	if err := s.sink.RecordRun(ev); err != nil {
		s.log.Warnf("record run: %v", err)
	}
}

func (s *Service) publishResults(rep *Report, res *results.ResultSet) {
	if r, ok := s.sink.(metrics.SeriesRecorder); ok {
		var evs []metrics.SeriesEvent
		for _, n := range res.Nodes {
			for _, c := range n.Sequences {
				evs = append(evs, metrics.SeriesEvent{RunID: rep.RunID, Node: n.Label, Column: c.Name, Times: res.Index, Values: c.Values})
			}
		}
		if err := r.RecordSeries(evs); err != nil {
			s.log.Warnf("record series: %v", err)
		}
	}
	if r, ok := s.sink.(metrics.InvestmentRecorder); ok {
		invs := res.Investments()
		if len(invs) > 0 {
			evs := make([]metrics.InvestmentEvent, len(invs))
			now := s.now()
			for i, inv := range invs {
				evs[i] = metrics.InvestmentEvent{
					RunID:    rep.RunID,
					Scenario: rep.Scenario,
					Label:    inv.Label,
					Flow:     inv.Flow,
					Invest:   inv.Invest,
					Existing: inv.Existing,
					Time:     now,
				}
			}
			if err := r.RecordInvestments(evs); err != nil {
				s.log.Warnf("record investments: %v", err)
			}
		}
	}
}

func (s *Service) flush() {
	if f, ok := s.sink.(metrics.Flusher); ok {
		if err := f.Flush(); err != nil {
			s.log.Warnf("flush metrics: %v", err)
		}
	}
}

func (s *Service) appendRecord(ctx context.Context, rec runlog.RunRecord) {
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Warnf("run log: %v", err)
	}
}

// Runs queries the run log.
func (s *Service) Runs(ctx context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error) {
	return s.store.Query(ctx, q)
}

// Close releases the sinks, the run log and flushes the monitor.
func (s *Service) Close() error {
	var errs []error
	if c, ok := s.sink.(metrics.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	s.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func scenarioName(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func investKey(inv results.Investment) string {
	if inv.Flow == "" {
		return inv.Label
	}
	return inv.Flow
}
