// Package http provides http transport for retrievals
package http

import (
	stdhttp "net/http"
	"strconv"

	"echokit/internal/modkit/httpkit"
	perr "echokit/internal/platform/errors"
	"echokit/internal/services/retrieval/domain"
	svc "echokit/internal/services/retrieval/service"
)

// Register mounts retrieval endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/programs", h.programs)
	httpkit.Get(r, "/programs/{name}/last-modified", h.lastModified)

	httpkit.Post[domain.RetrieveInput](r, "/retrievals", h.retrieve)
	httpkit.Get(r, "/retrievals", h.recent)

	httpkit.Post[domain.ActiveInput](r, "/facilities/active", h.active)
	httpkit.Post[domain.TopViolatorsInput](r, "/facilities/top-violators", h.topViolators)
}

type handlers struct{ svc svc.Service }

// @Summary List ECHO programs
// @Tags Programs
// @Produce json
// @Success 200 {object} domain.ProgramsResult "ok"
// @Router /programs [get]
func (h *handlers) programs(r *stdhttp.Request) (any, error) {
	return h.svc.Programs(r.Context())
}

// @Summary Upstream refresh date of a program's base table
// @Tags Programs
// @Produce json
// @Param name path string true "Program name" example(RCRA Violations)
// @Success 200 {object} domain.LastModifiedResult "ok"
// @Failure 404 {object} ErrorResponse "unknown program or no date"
// @Router /programs/{name}/last-modified [get]
func (h *handlers) lastModified(r *stdhttp.Request) (any, error) {
	return h.svc.LastModified(r.Context(), httpkit.Param(r, "name"))
}

// @Summary Retrieve program records for a region
// @Description No data is a 200 with rows_found 0. Failed batches are listed in warnings next to the partial rows.
// @Tags Retrievals
// @Accept json
// @Produce json
// @Param payload body domain.RetrieveInput true "Program and region"
// @Success 200 {object} domain.RetrieveResult "ok"
// @Router /retrievals [post]
func (h *handlers) retrieve(r *stdhttp.Request, in domain.RetrieveInput) (any, error) {
	return h.svc.Retrieve(r.Context(), in)
}

// @Summary Recent retrievals from the audit log
// @Tags Retrievals
// @Produce json
// @Param limit query int false "Max records" minimum(1) maximum(200)
// @Success 200 {array} domain.Retrieval "ok"
// @Failure 503 {object} ErrorResponse "audit disabled"
// @Router /retrievals [get]
func (h *handlers) recent(r *stdhttp.Request) (any, error) {
	var in domain.RecentInput
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return nil, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "limit must be between 1 and 200"), "limit")
		}
		in.Limit = n
	}
	return h.svc.Recent(r.Context(), in)
}

// @Summary Active facilities in a region
// @Tags Facilities
// @Accept json
// @Produce json
// @Param payload body domain.ActiveInput true "Region"
// @Success 200 {object} domain.FacilitiesResult "ok"
// @Router /facilities/active [post]
func (h *handlers) active(r *stdhttp.Request, in domain.ActiveInput) (any, error) {
	return h.svc.ActiveFacilities(r.Context(), in)
}

// @Summary Facilities with the most noncompliant quarters
// @Tags Facilities
// @Accept json
// @Produce json
// @Param payload body domain.TopViolatorsInput true "Program, region and limit"
// @Success 200 {object} domain.TopViolatorsResult "ok"
// @Router /facilities/top-violators [post]
func (h *handlers) topViolators(r *stdhttp.Request, in domain.TopViolatorsInput) (any, error) {
	return h.svc.TopViolators(r.Context(), in)
}

// ErrorResponse documents the error envelope
type ErrorResponse = httpkit.Envelope
