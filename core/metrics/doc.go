// Package metrics defines the events published after an optimisation run
// and the sink interfaces that record them. Sinks like the Prometheus
// textfile sink or InfluxSink live in infra/metrics and register
// themselves by name; NewMetricsSink returns a MultiSink automatically
// when several sinks are configured. Optional recorder interfaces let a
// sink also receive result sequences and installed capacities.
package metrics
