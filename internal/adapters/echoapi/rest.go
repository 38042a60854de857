package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
)

// REST is the authenticated ECHO client
// 403 is never retried; 429 is retried with factor^attempt second waits up to MaxRetries tries
type REST struct {
	http    *http.Client
	opts    Options
	token   string
	limiter *rate.Limiter
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	sleep   SleepFunc
}

// NewREST builds a REST client; the token comes from Options.Token or Options.TokenFile
func NewREST(o Options) (*REST, error) {
	o = o.withDefaults()
	tok, err := LoadToken(o.Token, o.TokenFile)
	if err != nil {
		return nil, err
	}
	return &REST{
		http:    o.HTTPClient,
		opts:    o,
		token:   tok,
		limiter: o.limiter(),
		log:     logger.Named("echoapi").With().Str("variant", VariantREST).Logger(),
		metrics: o.Metrics,
		now:     time.Now,
		sleep:   o.Sleep,
	}, nil
}

// Execute runs q against /echo/<table>
func (c *REST) Execute(ctx context.Context, q sqlq.Query) (*table.Table, error) {
	start := c.now()
	t, err := c.execute(ctx, q)
	c.metrics.Query(VariantREST, outcome(t, err), c.now().Sub(start))
	return t, err
}

func (c *REST) endpoint(q sqlq.Query) string {
	return strings.TrimRight(c.opts.APIURL, "/") + "/echo/" + url.PathEscape(q.Endpoint()) + "?sql=" + url.QueryEscape(q.SQL)
}

// schedule yields 1s, factor s, factor^2 s and so on with no jitter
func (c *REST) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.RandomizationFactor = 0
	b.Multiplier = c.opts.RetryFactor
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (c *REST) execute(ctx context.Context, q sqlq.Query) (*table.Table, error) {
	u := c.endpoint(q)
	waits := c.schedule()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "echo rate limiter wait aborted")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "echo new request failed")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			return nil, perr.Wrap(err, perr.ErrorCodeUpstream, "echo request failed")
		}

		c.log.Debug().
			Str("table", q.Endpoint()).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Msg("echo http response")

		switch resp.StatusCode {
		case http.StatusOK:
			body := &bodyReader{r: resp.Body}
			t, err := decodeJSON(body)
			if cerr := resp.Body.Close(); cerr != nil {
				c.log.Error().Err(cerr).Str("table", q.Endpoint()).Msg("echo close body failed")
			}
			if body.err != nil {
				return nil, readFailure(ctx, body.err)
			}
			if err != nil {
				return noData(err, "echo payload unreadable")
			}
			if t.Len() == 0 {
				return noData(nil, "echo query returned no rows")
			}
			return index(&c.log, t, q), nil

		case http.StatusForbidden:
			_ = drainAndClose(resp.Body)
			c.log.Warn().Str("table", q.Endpoint()).Msg("echo refused the query")
			return noData(perr.Forbiddenf("echo denied access to %s", q.Endpoint()), "no data")

		case http.StatusTooManyRequests:
			_ = drainAndClose(resp.Body)
			wait := waits.NextBackOff()
			c.metrics.Retry(VariantREST)
			c.log.Warn().Dur("sleep", wait).Int("attempt", attempt).Msg("echo rate limited backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			if attempt+1 >= c.opts.MaxRetries {
				return noData(perr.Newf(perr.ErrorCodeTooManyRequests, "echo rate limited after %d tries", attempt+1), "no data")
			}

		default:
			return nil, perr.Upstreamf("echo unexpected status %d body %s", resp.StatusCode, bodyTail(resp.Body))
		}
	}
}
