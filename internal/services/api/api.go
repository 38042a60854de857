// Package api provides the HTTP API for the application
package api

import (
	"echokit/internal/platform/config"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
	phttp "echokit/internal/platform/net/http"
	"echokit/internal/platform/store"

	"echokit/internal/modkit"
	"echokit/internal/modkit/httpkit"
	"echokit/internal/modkit/swaggerkit"

	metamod "echokit/internal/services/api/meta/module"
	retrievalmod "echokit/internal/services/retrieval/module"
	"echokit/internal/services/retrieval/service"

	// registers the OpenAPI document served under /api/docs
	_ "echokit/internal/services/api/docs"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	Engine         service.Options
	EnableSwagger  bool
	EnableProfiler bool
}

// Deps builds the shared module deps from opt
// a nil Store leaves both backends disabled
func (opt Options) Deps() modkit.Deps {
	deps := modkit.Deps{Cfg: opt.Config, Metrics: opt.Metrics}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}
	return deps
}

// Mount mounts the API service onto the given router and returns the mounted modules
func Mount(r phttp.Router, opt Options) []modkit.Module {
	deps := opt.Deps()

	mods := []modkit.Module{
		metamod.New(deps),
		retrievalmod.New(deps, opt.Engine),
	}

	swaggerkit.Mount(r, "/api/docs", opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics.Handler())
	}

	stack := httpkit.CommonStack(httpkit.StackOptionsFromConfig(opt.Config))
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		modkit.MountAll(api, mods...)
	})
	return mods
}
