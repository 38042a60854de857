package store

import (
	"context"

	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
	"echokit/internal/platform/store/pg"
)

// Option adjusts a Store before its backends open
type Option func(*Store) error

// WithLogger sets the logger for open and ping messages and for SQL logging
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithMetrics counts audit statements by outcome in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) error {
		if m != nil {
			s.tracers = append(s.tracers, statementCounter{m: m})
		}
		return nil
	}
}

// statementCounter feeds pg query events into the store statement counter
type statementCounter struct{ m *metrics.Metrics }

func (c statementCounter) OnQuery(_ context.Context, ev pg.QueryEvent) {
	switch {
	case ev.Err != nil:
		c.m.Statement("error")
	case ev.Slow:
		c.m.Statement("slow")
	default:
		c.m.Statement("ok")
	}
}
