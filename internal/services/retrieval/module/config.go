package module

import (
	"os"
	"time"

	"echokit/internal/adapters/echoapi"
	"echokit/internal/core/batch"
	"echokit/internal/core/program"
	"echokit/internal/core/region"
	"echokit/internal/platform/config"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/metrics"
	"echokit/internal/services/retrieval/service"
)

// EngineFromConfig builds the service options from ECHO_* and ECHO_FETCH_* keys
//
//	ECHO_TRANSPORT=rest|csv ECHO_API_URL ECHO_CSV_URL ECHO_TOKEN ECHO_TOKEN_FILE
//	ECHO_RETRY_FACTOR ECHO_MAX_RETRIES ECHO_RATE_PER_SEC ECHO_RATE_BURST ECHO_TIMEOUT
//	ECHO_CATALOG ECHO_COUNTY_STRATEGY=like|reconcile ECHO_COUNTY_LOOKUP
//	ECHO_FETCH_BATCH_SIZE ECHO_FETCH_CONCURRENCY
func EngineFromConfig(root config.Conf, m *metrics.Metrics) (service.Options, error) {
	c := root.Prefix("ECHO_")
	fc := root.Prefix("ECHO_FETCH_")

	variant := c.MayEnum("TRANSPORT", echoapi.VariantREST, echoapi.VariantREST, echoapi.VariantCSV)
	tr, err := echoapi.New(echoapi.Options{
		Variant:     variant,
		APIURL:      c.MayString("API_URL", ""),
		CSVURL:      c.MayString("CSV_URL", ""),
		Token:       c.MayString("TOKEN", ""),
		TokenFile:   c.MayString("TOKEN_FILE", ""),
		Timeout:     c.MayDuration("TIMEOUT", 5*time.Minute),
		RetryFactor: c.MayFloat64("RETRY_FACTOR", 2),
		MaxRetries:  c.MayInt("MAX_RETRIES", 5),
		RatePerSec:  c.MayFloat64("RATE_PER_SEC", 0),
		RateBurst:   c.MayInt("RATE_BURST", 1),
		Metrics:     m,
	})
	if err != nil {
		return service.Options{}, err
	}

	cat := program.Default()
	if path := c.MayString("CATALOG", ""); path != "" {
		if cat, err = program.LoadFile(path); err != nil {
			return service.Options{}, err
		}
	}

	rc := region.NewReconciler()
	if path := c.MayString("COUNTY_LOOKUP", ""); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return service.Options{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open county lookup %s", path)
		}
		defer f.Close()
		if rc, err = region.LoadCountyLookup(f); err != nil {
			return service.Options{}, err
		}
	}

	size := fc.MayInt("BATCH_SIZE", batch.DefaultSize)
	limit := 0
	if variant == echoapi.VariantCSV {
		// the legacy gateway rejects longer IN lists
		limit = batch.DefaultSize
		size = min(size, limit)
	}

	return service.Options{
		Catalog:      cat,
		Transport:    tr,
		Fetcher:      batch.New(tr, batch.WithMetrics(m), batch.WithConcurrency(fc.MayInt("CONCURRENCY", 1))),
		Builder:      region.Builder{County: region.ParseCountyStrategy(c.MayEnum("COUNTY_STRATEGY", "like", "like", "reconcile"))},
		Reconciler:   rc,
		Metrics:      m,
		BatchSize:    size,
		MaxBatchSize: limit,
	}, nil
}
