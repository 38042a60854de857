// @title         echokit API
// @version       1.0
// @description   Batched retrieval of EPA ECHO facility and program records by region

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"echokit/internal/modkit"
	"echokit/internal/platform/config"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
	phttp "echokit/internal/platform/net/http"
	"echokit/internal/platform/net/middleware"
	"echokit/internal/platform/store"

	"echokit/internal/core/version"
	"echokit/internal/services/api"
	retrievalmod "echokit/internal/services/retrieval/module"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine; real env wins
	_ = godotenv.Load()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	engine, err := retrievalmod.EngineFromConfig(root, m)
	if err != nil {
		l.Panic().Err(err).Msg("echo engine config failed")
	}

	// SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_*; both backends are optional
	st, err := store.Open(ctx, store.ConfigFromEnv(root, version.Service), store.WithLogger(*l), store.WithMetrics(m))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if err := retrievalmod.EnsureSchema(ctx, modkit.Deps{PG: st.PG, CH: st.CH}); err != nil {
		l.Panic().Err(err).Msg("retrieval schema failed")
	}

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg, func(m *chi.Mux) {
		// load balancer probe outside /api/v1 and its access log
		m.Use(middleware.Heartbeat("/ping"))
	})
	api.Mount(srv.Router(), api.Options{
		Config:         apiCfg,
		Store:          st,
		Logger:         l,
		Metrics:        m,
		Engine:         engine,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	})

	l.Info().Str("version", version.Info().String()).Strs("programs", engine.Catalog.Names()).Msg("echokit api starting")
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
