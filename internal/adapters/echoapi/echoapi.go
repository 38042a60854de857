// Package echoapi talks to the ECHO tabular query service over REST or the legacy CSV gateway
package echoapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
)

// Transport variants
const (
	VariantREST = "rest"
	VariantCSV  = "csv"
)

// Transport runs one query against the remote service
// No data outcomes return an empty table and an error coded EmptyResult
// Fatal outcomes return a nil table
type Transport interface {
	Execute(ctx context.Context, q sqlq.Query) (*table.Table, error)
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures either client; fields a variant does not use are ignored
type Options struct {
	Variant string

	APIURL string // REST base, /echo/<table> is appended
	CSVURL string // legacy gateway

	Token     string
	TokenFile string

	Timeout     time.Duration
	RetryFactor float64 // 429 wait multiplier, waits are factor^attempt seconds
	MaxRetries  int     // total tries on 429

	RatePerSec float64 // <= 0 disables the client side limit
	RateBurst  int

	HTTPClient *http.Client
	Sleep      SleepFunc
	Metrics    *metrics.Metrics
}

const (
	defaultAPIURL      = "https://portal.gss.stonybrook.edu/api"
	defaultCSVURL      = "http://portal.gss.stonybrook.edu/echoepa/"
	defaultTimeout     = 5 * time.Minute
	defaultRetryFactor = 2
	defaultMaxRetries  = 5
	defaultTokenFile   = "token.txt"
	userAgent          = "echokit"
)

func (o Options) withDefaults() Options {
	if o.APIURL == "" {
		o.APIURL = defaultAPIURL
	}
	if o.CSVURL == "" {
		o.CSVURL = defaultCSVURL
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RetryFactor <= 1 {
		o.RetryFactor = defaultRetryFactor
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.TokenFile == "" {
		o.TokenFile = defaultTokenFile
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	return o
}

func (o Options) limiter() *rate.Limiter {
	if o.RatePerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := o.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(o.RatePerSec), burst)
}

// New builds the client for o.Variant; the default is REST
func New(o Options) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(o.Variant)) {
	case "", VariantREST:
		return NewREST(o)
	case VariantCSV:
		return NewCSV(o), nil
	default:
		return nil, perr.InvalidArgf("unknown echo transport %q", o.Variant)
	}
}

// IsNoData reports whether err means the query ran but produced nothing usable
func IsNoData(err error) bool { return perr.HasCode(err, perr.ErrorCodeEmptyResult) }

// IsFatal reports whether err is a failure rather than an absence of data
func IsFatal(err error) bool { return err != nil && !IsNoData(err) }

func noData(cause error, msg string) (*table.Table, error) {
	if cause == nil {
		return table.Empty(), perr.EmptyResultf("%s", msg)
	}
	return table.Empty(), perr.Wrap(cause, perr.ErrorCodeEmptyResult, msg)
}

// readFailure surfaces a body read error as a transport failure unless ctx ended first
func readFailure(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return perr.Wrap(err, perr.ErrorCodeUpstream, "echo payload read failed")
}

// index promotes q.IndexField to the key; a missing field leaves the table unindexed
func index(log *logger.Logger, t *table.Table, q sqlq.Query) *table.Table {
	if q.IndexField == "" {
		return t
	}
	keyed, err := t.WithKey(q.IndexField)
	if err != nil {
		log.Debug().Err(err).Str("table", q.Endpoint()).Str("field", q.IndexField).Msg("echo result not indexed")
	}
	return keyed
}

func outcome(t *table.Table, err error) string {
	switch {
	case err == nil:
		return "ok"
	case perr.HasCode(err, perr.ErrorCodeForbidden):
		return "forbidden"
	case perr.HasCode(err, perr.ErrorCodeTooManyRequests):
		return "rate_limited"
	case IsNoData(err):
		return "empty"
	case t == nil:
		return "failed"
	}
	return "error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tm.C:
		return nil
	}
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}

func bodyTail(rc io.ReadCloser) string {
	b, _ := io.ReadAll(io.LimitReader(rc, 2048))
	_ = rc.Close()
	return strings.TrimSpace(string(b))
}
