package audit

import (
	"context"
	"errors"
)

// MultiLogger fans each event out to several sinks, typically the database
// store and the structured log.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger returns a fan-out over sinks. Nil sinks are dropped.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	kept := make([]Logger, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiLogger{sinks: kept}
}

// Log hands event to every sink, even after one fails, and reports the
// combined failures.
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
