// Package module wires retrievals into the API using modkit
package module

import (
	"context"

	modkit "echokit/internal/modkit"
	"echokit/internal/modkit/httpkit"
	"echokit/internal/platform/logger"
	"echokit/internal/services/retrieval/domain"
	rhttp "echokit/internal/services/retrieval/http"
	"echokit/internal/services/retrieval/repo"
	"echokit/internal/services/retrieval/service"
)

// Module implements modkit.Module for retrievals
// its routes sit at the API root unless a prefix is given
type Module struct {
	b   modkit.Built
	svc service.Service
}

// New constructs the retrieval module
// o carries the engine; audit and archive stores are bound from deps when enabled
func New(deps modkit.Deps, o service.Options, opts ...modkit.Option) *Module {
	b := modkit.Build([]modkit.Option{modkit.WithName("retrieval")}, opts...)
	if deps.PG != nil && o.Audit == nil {
		o.Audit = repo.NewPG(deps.PG)
	}
	if deps.CH != nil && o.Archive == nil {
		o.Archive = repo.NewCH(deps.CH)
	}
	if o.Metrics == nil {
		o.Metrics = deps.Metrics
	}
	return &Module{b: b, svc: service.New(o)}
}

// Service exposes the module service
func (m *Module) Service() service.Service { return m.svc }

// Name implements modkit.Module
func (m *Module) Name() string { return m.b.Name }

// Prefix implements modkit.Module; "" mounts at the parent router
func (m *Module) Prefix() string { return m.b.Prefix }

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	mount := func(sub httpkit.Router) {
		rhttp.Register(sub, m.svc)
		for _, fn := range m.b.Extra {
			fn(sub)
		}
	}
	if m.b.Prefix != "" {
		httpkit.MountUnder(r, m.Prefix(), m.b.Mw, mount)
		return
	}
	r.Group(func(g httpkit.Router) {
		if len(m.b.Mw) > 0 {
			g.Use(m.b.Mw...)
		}
		mount(g)
	})
}

// EnsureSchema creates the audit and archive tables for the enabled stores
func EnsureSchema(ctx context.Context, deps modkit.Deps) error {
	log := logger.Named("retrieval")
	if deps.PG != nil {
		if err := repo.NewPG(deps.PG).EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info().Msg("audit schema ready")
	}
	if deps.CH != nil {
		if err := repo.NewCH(deps.CH).EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info().Msg("archive schema ready")
	}
	return nil
}

var (
	_ modkit.Module     = (*Module)(nil)
	_ domain.AuditStore = (*repo.PG)(nil)
	_ domain.RowArchive = (*repo.CH)(nil)
)
