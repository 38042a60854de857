// Package swaggerkit mounts the swagger UI and serves the registered OpenAPI document
package swaggerkit

import (
	"net/http"

	phttp "echokit/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Mount the Swagger UI and JSON doc under base if enabled
// base is typically /api/docs
func Mount(r phttp.Router, base string, enabled bool) {
	if !enabled {
		return
	}
	r.Get(base, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, base+"/", http.StatusPermanentRedirect)
	})
	r.Get(base+"/doc.json", serveDocJSON())
	r.Handle(base+"/*", httpSwagger.Handler(
		httpSwagger.InstanceName(InstanceName),
		httpSwagger.URL(base+"/doc.json"),
	))
}
