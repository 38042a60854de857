// Package module wires meta endpoints into the API
package module

import (
	"time"

	"echokit/internal/core/version"
	modkit "echokit/internal/modkit"
	"echokit/internal/modkit/httpkit"

	metahttp "echokit/internal/services/api/meta/http"
)

// New constructs the meta module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)

	d := metahttp.Deps{ServiceName: version.Service, StartedAt: time.Now()}
	// typed nil interfaces would defeat the skipped check
	if deps.PG != nil {
		d.PG = deps.PG
	}
	if deps.CH != nil {
		d.CH = deps.CH
	}
	return modkit.Base{
		B:        b,
		Register: func(r httpkit.Router) { metahttp.Register(r, d) },
	}
}
