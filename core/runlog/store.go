// Package runlog keeps a history of optimisation runs. Records are flat
// summaries: objective, emission, problem size and installed capacities.
package runlog

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// RunRecord captures one optimisation run.
type RunRecord struct {
	RunID         string             `json:"run_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Scenario      string             `json:"scenario"`
	Solver        string             `json:"solver"`
	Status        string             `json:"status"`
	Objective     float64            `json:"objective"`
	TotalEmission float64            `json:"total_emission"`
	EmissionLimit *float64           `json:"emission_limit,omitempty"`
	Timesteps     int                `json:"timesteps"`
	Variables     int                `json:"variables"`
	Constraints   int                `json:"constraints"`
	DurationMS    int64              `json:"duration_ms"`
	Investments   map[string]float64 `json:"investments,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// RunQuery defines filters for retrieving records. Zero fields match
// everything; Limit keeps the most recent records.
type RunQuery struct {
	Start    time.Time
	End      time.Time
	Scenario string
	Status   string
	Limit    int
}

// Match reports whether r passes the filters of q.
func (q RunQuery) Match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Scenario != "" && r.Scenario != q.Scenario {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}

// finish orders records by time and applies the limit.
func (q RunQuery) finish(recs []RunRecord) []RunRecord {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Options select and configure a store.
type Options struct {
	// Backend is "jsonl" or "sqlite".
	Backend string
	Path    string
	// Rotation of jsonl files, enabled when MaxSizeMB > 0.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open returns the store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "jsonl":
		if opts.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(opts.Path, opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
		}
		return NewJSONLStore(opts.Path)
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	default:
		return nil, fmt.Errorf("runlog: unknown backend %s", opts.Backend)
	}
}
