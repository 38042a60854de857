package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"echokit/internal/core/program"
	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	"echokit/internal/platform/config"
	"echokit/internal/platform/metrics"
	phttp "echokit/internal/platform/net/http"
	"echokit/internal/platform/store"
	kit "echokit/internal/platform/testkit"
	"echokit/internal/services/retrieval/service"

	"github.com/go-chi/chi/v5"
)

type noData struct{}

func (noData) Execute(context.Context, sqlq.Query) (*table.Table, error) { return table.Empty(), nil }

func newMux(t *testing.T, swagger bool) *chi.Mux {
	t.Helper()
	m := chi.NewRouter()
	mods := Mount(phttp.AdaptChi(m), Options{
		Config:        config.New().Prefix("APITEST_"),
		Store:         &store.Store{},
		Metrics:       metrics.New(),
		Engine:        service.Options{Catalog: program.Default(), Transport: noData{}},
		EnableSwagger: swagger,
	})
	if len(mods) != 2 {
		t.Fatalf("mods: %d", len(mods))
	}
	return m
}

func get(m http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestMountRoutes(t *testing.T) {
	m := newMux(t, true)

	cases := []struct {
		path string
		code int
		want string
	}{
		{"/api/v1/meta/health", http.StatusOK, "ok"},
		{"/api/v1/meta/ready", http.StatusOK, "skipped"},
		{"/api/v1/programs", http.StatusOK, "RCRA Violations"},
		{"/api/v1/retrievals", http.StatusServiceUnavailable, "audit"},
		{"/api/docs/doc.json", http.StatusOK, "echokit API"},
		{"/metrics", http.StatusOK, "go_goroutines"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rr := get(m, tc.path)
			if rr.Code != tc.code {
				t.Fatalf("%s: code %d body %s", tc.path, rr.Code, rr.Body.String())
			}
			kit.MustContain(t, rr.Body.String(), tc.want)
		})
	}
}

func TestSwaggerDisabled(t *testing.T) {
	m := newMux(t, false)
	if rr := get(m, "/api/docs/doc.json"); rr.Code != http.StatusNotFound {
		t.Fatalf("docs should be absent, got %d", rr.Code)
	}
}

func TestDepsWithoutStore(t *testing.T) {
	d := Options{}.Deps()
	if d.PG != nil || d.CH != nil {
		t.Fatalf("backends should be disabled: %+v", d)
	}
}
