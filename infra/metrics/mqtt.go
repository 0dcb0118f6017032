package metrics

import (
	"encoding/json"
	"strings"
	"time"

	coremetrics "github.com/quarree100/q100opt/core/metrics"
	coremqtt "github.com/quarree100/q100opt/core/mqtt"
)

// MQTTSink publishes run summaries and capacities as JSON messages under
// <prefix>/<scenario>/.
type MQTTSink struct {
	pub    coremqtt.Publisher
	prefix string
}

// NewMQTTSink creates a sink publishing through pub. An empty prefix
// defaults to "q100opt".
func NewMQTTSink(pub coremqtt.Publisher, prefix string) *MQTTSink {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "q100opt"
	}
	return &MQTTSink{pub: pub, prefix: prefix}
}

type runMessage struct {
	RunID         string    `json:"run_id"`
	Scenario      string    `json:"scenario"`
	Solver        string    `json:"solver"`
	Status        string    `json:"status"`
	Objective     float64   `json:"objective"`
	TotalEmission float64   `json:"total_emission"`
	Variables     int       `json:"variables"`
	Constraints   int       `json:"constraints"`
	SolveMS       int64     `json:"solve_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

type investmentMessage struct {
	Label    string  `json:"label"`
	Flow     string  `json:"flow,omitempty"`
	Invest   float64 `json:"invest"`
	Existing float64 `json:"existing"`
}

// RecordRun publishes the summary to <prefix>/<scenario>/run.
func (s *MQTTSink) RecordRun(ev coremetrics.RunEvent) error {
	payload, err := json.Marshal(runMessage{
		RunID:         ev.RunID,
		Scenario:      ev.Scenario,
		Solver:        ev.Solver,
		Status:        ev.Status,
		Objective:     ev.Objective,
		TotalEmission: ev.TotalEmission,
		Variables:     ev.Variables,
		Constraints:   ev.Constraints,
		SolveMS:       ev.SolveTime.Milliseconds(),
		Timestamp:     ev.Time,
	})
	if err != nil {
		return err
	}
	return s.pub.Publish(s.topic(ev.Scenario, "run"), payload)
}

// RecordInvestments publishes all capacities of a run as one message to
// <prefix>/<scenario>/investments.
func (s *MQTTSink) RecordInvestments(ev []coremetrics.InvestmentEvent) error {
	if len(ev) == 0 {
		return nil
	}
	msg := struct {
		RunID       string              `json:"run_id"`
		Investments []investmentMessage `json:"investments"`
	}{RunID: ev[0].RunID}
	for _, e := range ev {
		msg.Investments = append(msg.Investments, investmentMessage{Label: e.Label, Flow: e.Flow, Invest: e.Invest, Existing: e.Existing})
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.pub.Publish(s.topic(ev[0].Scenario, "investments"), payload)
}

// Close disconnects the publisher.
func (s *MQTTSink) Close() error {
	s.pub.Disconnect()
	return nil
}

func (s *MQTTSink) topic(scenario, leaf string) string {
	if scenario == "" {
		return s.prefix + "/" + leaf
	}
	return s.prefix + "/" + scenario + "/" + leaf
}
