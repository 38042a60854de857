package store

import (
	"context"
	"fmt"
	"time"

	chx "echokit/internal/platform/store/ch"
	"echokit/internal/platform/store/pg"

	"github.com/cenkalti/backoff/v4"
)

// pingBackOff is the schedule used while waiting for postgres to accept connections
var pingBackOff = func(retries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 150 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(retries))
}

// openPG opens pg and wraps it with our sql adapter once the pool answers a ping
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	tracers := s.tracers
	if cfg.PG.LogSQL {
		tracers = append(tracers, pg.Tracer(s.Log))
	}
	tracer := pg.Tracers(tracers...)

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	retries := cfg.PG.ConnectRetries
	if retries <= 0 {
		retries = 20
	}
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	attempts := 0
	ping := func() error {
		attempts++
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := p.Pool.Ping(toCtx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.Log.Warn().Err(err).Dur("wait", wait).Int("attempt", attempts).Msg("postgres not ready")
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(pingBackOff(retries), ctx), notify); err != nil {
		p.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, err)
	}
	return newPGAdapter(p), nil
}

func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	return chx.Open(ctx, chx.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
	})
}
