package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
)

// CSV is the legacy unauthenticated gateway client
type CSV struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCSV builds a CSV gateway client
func NewCSV(o Options) *CSV {
	o = o.withDefaults()
	return &CSV{
		http:    o.HTTPClient,
		base:    o.CSVURL,
		limiter: o.limiter(),
		log:     logger.Named("echoapi").With().Str("variant", VariantCSV).Logger(),
		metrics: o.Metrics,
		now:     time.Now,
	}
}

// Execute runs q through ?query=<sql>&pg
func (c *CSV) Execute(ctx context.Context, q sqlq.Query) (*table.Table, error) {
	start := c.now()
	t, err := c.execute(ctx, q)
	c.metrics.Query(VariantCSV, outcome(t, err), c.now().Sub(start))
	return t, err
}

func (c *CSV) execute(ctx context.Context, q sqlq.Query) (*table.Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "echo rate limiter wait aborted")
	}
	u := c.base + "?query=" + url.QueryEscape(q.SQL) + "&pg"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "echo new request failed")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, perr.Wrap(err, perr.ErrorCodeUpstream, "echo request failed")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, perr.Upstreamf("echo unexpected status %d body %s", resp.StatusCode, bodyTail(resp.Body))
	}

	body := &bodyReader{r: resp.Body}
	t, err := decodeCSV(body)
	if cerr := resp.Body.Close(); cerr != nil {
		c.log.Error().Err(cerr).Msg("echo close body failed")
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
}
