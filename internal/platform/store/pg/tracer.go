package pg

import (
	"context"
	"strings"

	"echokit/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one finished statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives an event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs every statement at debug and slow or failed ones at warn
// the child logger is pinned to debug so SQL logging does not depend on the root level
func Tracer(root logger.Logger) QueryTracer {
	return &zlTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Debug()
	if ev.Slow || ev.Err != nil {
		evt = z.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

// Tracers fans each event out to ts; nil when ts is empty
func Tracers(ts ...QueryTracer) QueryTracer {
	switch len(ts) {
	case 0:
		return nil
	case 1:
		return ts[0]
	}
	return fanout(append([]QueryTracer(nil), ts...))
}

type fanout []QueryTracer

func (f fanout) OnQuery(ctx context.Context, ev QueryEvent) {
	for _, t := range f {
		t.OnQuery(ctx, ev)
	}
}

// compact folds runs of whitespace into one space
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
