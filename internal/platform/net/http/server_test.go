package http_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"echokit/internal/platform/config"
	phttp "echokit/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestNewServer_Addr(t *testing.T) {
	t.Setenv("TEST_API_PORT", "8081")
	if got := phttp.NewServer(config.New().Prefix("TEST_API_")).Addr(); got != ":8081" {
		t.Fatalf("addr = %q", got)
	}
	t.Setenv("TEST_API_ADDR", "127.0.0.1:9000")
	if got := phttp.NewServer(config.New().Prefix("TEST_API_")).Addr(); got != "127.0.0.1:9000" {
		t.Fatalf("addr = %q", got)
	}
}

func TestRouter_GroupRouteParam(t *testing.T) {
	called := false
	srv := phttp.NewServer(config.New(), func(*chi.Mux) { called = true })
	if !called {
		t.Fatalf("option not applied")
	}
	r := srv.Router()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-MW", "yes")
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/programs", func(pr phttp.Router) {
		pr.Group(func(g phttp.Router) {
			g.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
				_, _ = io.WriteString(w, phttp.URLParam(req, "name"))
			})
		})
		pr.Post("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusCreated) })
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/programs/Facilities", nil))
	if rec.Body.String() != "Facilities" || rec.Header().Get("X-MW") != "yes" {
		t.Fatalf("body=%q hdr=%v", rec.Body.String(), rec.Header())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/programs/", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("post = %d", rec.Code)
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	srv := phttp.NewServer(config.New())
	phttp.GetJSON(srv.Router(), "/ping", func(*http.Request) (any, error) { return "pong", nil })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
