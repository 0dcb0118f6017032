package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/quarree100/q100opt/core/metrics"
	"github.com/quarree100/q100opt/infra/logger"
)

// seriesBatch bounds the number of points sent in one write request.
const seriesBatch = 5000

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes run summaries and result sequences to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes the run summary as one point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, runPoint(ev))
}

func runPoint(ev coremetrics.RunEvent) *write.Point {
	return write.NewPointWithMeasurement("optimization_run").
		AddTag("run_id", ev.RunID).
		AddTag("scenario", ev.Scenario).
		AddTag("solver", ev.Solver).
		AddTag("status", ev.Status).
		AddField("objective", round3(ev.Objective)).
		AddField("total_emission", round3(ev.TotalEmission)).
		AddField("variables", ev.Variables).
		AddField("constraints", ev.Constraints).
		AddField("nonzeros", ev.NonZeros).
		AddField("build_ms", round3(ev.BuildTime.Seconds()*1000)).
		AddField("solve_ms", round3(ev.SolveTime.Seconds()*1000)).
		SetTime(ev.Time)
}

// RecordSeries writes one point per time step and column.
func (s *InfluxSink) RecordSeries(ev []coremetrics.SeriesEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var batch []*write.Point
	for _, e := range ev {
		for t, v := range e.Values {
			if t >= len(e.Times) {
				break
			}
			batch = append(batch, write.NewPointWithMeasurement("result_series").
				AddTag("run_id", e.RunID).
				AddTag("node", e.Node).
				AddTag("column", e.Column).
				AddField("value", round3(v)).
				SetTime(e.Times[t]))
			if len(batch) == seriesBatch {
				if err := s.writeAPI.WritePoint(ctx, batch...); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, batch...)
}

// RecordInvestments writes the optimised capacities.
func (s *InfluxSink) RecordInvestments(ev []coremetrics.InvestmentEvent) error {
	if len(ev) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(ev))
	for _, e := range ev {
		p := write.NewPointWithMeasurement("investment").
			AddTag("run_id", e.RunID).
			AddTag("label", e.Label)
		if e.Flow != "" {
			p = p.AddTag("flow", e.Flow)
		}
		points = append(points, p.
			AddField("invest", round3(e.Invest)).
			AddField("existing", round3(e.Existing)).
			SetTime(e.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
