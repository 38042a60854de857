// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"echokit/internal/core/version"
	"echokit/internal/modkit/httpkit"
)

// Pinger is satisfied by store adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// Deps are the handler dependencies; a nil store is reported as skipped
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any
	Timeout     time.Duration
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	h := &handlers{deps: d, now: time.Now}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK      bool   `json:"ok"       example:"true"`
	Service string `json:"service"  example:"echokit-api"`
	Started string `json:"started"  example:"2026-03-03T13:00:00Z"`
	Now     string `json:"now"      example:"2026-03-03T13:05:00Z"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"   example:"pg"`
	Status string `json:"status" example:"ok"` // ok fail skipped unknown
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok or fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-03-03T13:05:00Z"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string `json:"name"    example:"echokit-api"`
	Started string `json:"started" example:"2026-03-03T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// @Summary Health check
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse "ok"
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     h.now().UTC().Format(time.RFC3339),
	}, nil
}

// @Summary Readiness probe with store checks
// @Description Both stores are optional; disabled stores report skipped and do not fail readiness
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse "ok"
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), h.deps.Timeout)
	defer cancel()

	check := func(name string, c any) ReadyCheck {
		if c == nil {
			return ReadyCheck{Name: name, Status: "skipped"}
		}
		p, ok := c.(Pinger)
		if !ok {
			return ReadyCheck{Name: name, Status: "unknown"}
		}
		if err := p.Ping(ctx); err != nil {
			return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
		}
		return ReadyCheck{Name: name, Status: "ok"}
	}

	checks := []ReadyCheck{check("pg", h.deps.PG), check("ch", h.deps.CH)}
	overall := "ok"
	for _, c := range checks {
		if c.Status == "fail" {
			overall = "fail"
		}
	}
	return ReadyResponse{Status: overall, Checks: checks, Now: h.now().UTC().Format(time.RFC3339)}, nil
}

// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo "ok"
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

// @Summary Service info and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse "ok"
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(h.now().Sub(h.deps.StartedAt) / time.Second),
	}, nil
}
