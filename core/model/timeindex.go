package model

import "time"

// HoursPerYear is the number of hours used to scale yearly costs to the
// simulated horizon.
const HoursPerYear = 8760

// TimeIndex is the discrete time axis of a scenario.
type TimeIndex struct {
	Start time.Time
	Step  time.Duration
	Steps int
}

// NewTimeIndex returns an index of n steps. A zero step defaults to one hour.
func NewTimeIndex(start time.Time, step time.Duration, n int) TimeIndex {
	if step <= 0 {
		step = time.Hour
	}
	return TimeIndex{Start: start, Step: step, Steps: n}
}

// Hourly returns an hourly index of n steps starting at start.
func Hourly(start time.Time, n int) TimeIndex { return NewTimeIndex(start, time.Hour, n) }

// Len returns the number of time steps.
func (ti TimeIndex) Len() int { return ti.Steps }

// At returns the timestamp of step t.
func (ti TimeIndex) At(t int) time.Time { return ti.Start.Add(time.Duration(t) * ti.Step) }

// Times returns all timestamps of the index.
func (ti TimeIndex) Times() []time.Time {
	out := make([]time.Time, ti.Steps)
	for t := range out {
		out[t] = ti.At(t)
	}
	return out
}

// YearFraction is the share of a year covered by the index.
func (ti TimeIndex) YearFraction() float64 {
	step := ti.Step
	if step <= 0 {
		step = time.Hour
	}
	return float64(ti.Steps) * step.Hours() / HoursPerYear
}

// Truncate returns the first n steps of the index.
func (ti TimeIndex) Truncate(n int) TimeIndex {
	if n < ti.Steps {
		ti.Steps = n
	}
	return ti
}
