package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	phttp "echokit/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func get(t *testing.T, d Deps, path string, out any) int {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), d)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return rr.Code
}

func TestReady(t *testing.T) {
	cases := []struct {
		name   string
		pg, ch any
		want   string
		pgStat string
	}{
		{"all skipped", nil, nil, "ok", "skipped"},
		{"pg ok", pinger{}, nil, "ok", "ok"},
		{"pg down", pinger{err: errors.New("refused")}, pinger{}, "fail", "fail"},
		{"not a pinger", struct{}{}, nil, "ok", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out ReadyResponse
			code := get(t, Deps{PG: tc.pg, CH: tc.ch}, "/ready", &out)
			if code != http.StatusOK {
				t.Fatalf("code %d", code)
			}
			if out.Status != tc.want || out.Checks[0].Status != tc.pgStat {
				t.Fatalf("got %+v", out)
			}
		})
	}
}

func TestHealthAndService(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	d := Deps{ServiceName: "echokit-api", StartedAt: started}

	var h HealthResponse
	get(t, d, "/health", &h)
	if !h.OK || h.Service != "echokit-api" {
		t.Fatalf("health %+v", h)
	}

	var s ServiceResponse
	get(t, d, "/service", &s)
	if s.Uptime < 59 {
		t.Fatalf("uptime %d", s.Uptime)
	}

	var v map[string]any
	get(t, d, "/version", &v)
	if v["service"] != "echokit-api" {
		t.Fatalf("version %v", v)
	}
}
