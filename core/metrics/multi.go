package metrics

import "errors"

// MultiSink fans out run events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSeries forwards sequences to sinks that record them.
func (m *MultiSink) RecordSeries(ev []SeriesEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SeriesRecorder); ok {
			if err := rec.RecordSeries(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordInvestments forwards capacities to sinks that record them.
func (m *MultiSink) RecordInvestments(ev []InvestmentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(InvestmentRecorder); ok {
			if err := rec.RecordInvestments(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every buffering sink and joins their errors.
func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush())
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink holding a connection.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
