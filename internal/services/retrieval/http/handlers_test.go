package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"echokit/internal/core/program"
	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	phttp "echokit/internal/platform/net/http"
	"echokit/internal/services/retrieval/service"

	"github.com/go-chi/chi/v5"
)

type transportFunc func(q sqlq.Query) (*table.Table, error)

func (f transportFunc) Execute(_ context.Context, q sqlq.Query) (*table.Table, error) { return f(q) }

type envelope struct {
	StatusCode int             `json:"status_code"`
	Code       int             `json:"code"`
	Error      string          `json:"error"`
	Field      string          `json:"field"`
	Data       json.RawMessage `json:"data"`
}

func serve(t *testing.T, tr transportFunc, method, path, body string) (int, envelope) {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), service.New(service.Options{Catalog: program.Default(), Transport: tr}))

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return rr.Code, env
}

func rows(sqlq.Query) (*table.Table, error) {
	return table.New([]string{"ID_NUMBER"}, []table.Row{{"ID_NUMBER": "NYD1"}}), nil
}

func TestRetrieveOK(t *testing.T) {
	code, env := serve(t, rows, http.MethodPost, "/retrievals",
		`{"program":"RCRA Violations","region":{"kind":"state","state":"NY"}}`)
	if code != http.StatusOK {
		t.Fatalf("code %d: %+v", code, env)
	}
	var res struct {
		RowsFound int              `json:"rows_found"`
		Rows      []map[string]any `json:"rows"`
		Summary   string           `json:"summary"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("data: %v", err)
	}
	if res.RowsFound != 1 || res.Rows[0]["ID_NUMBER"] != "NYD1" {
		t.Fatalf("got %+v", res)
	}
}

func TestRetrieveNoDataIs200(t *testing.T) {
	none := func(sqlq.Query) (*table.Table, error) {
		return table.Empty(), perr.Wrap(perr.Forbiddenf("403"), perr.ErrorCodeEmptyResult, "no data")
	}
	code, env := serve(t, none, http.MethodPost, "/retrievals",
		`{"program":"RCRA Violations","region":{"kind":"zip_code","values":["14201"]}}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"rows_found":0`) {
		t.Fatalf("code %d data %s", code, env.Data)
	}
}

func TestRetrieveErrors(t *testing.T) {
	down := func(sqlq.Query) (*table.Table, error) { return nil, perr.Upstreamf("echo query failed") }
	cases := []struct {
		name  string
		tr    transportFunc
		body  string
		code  int
		field string
	}{
		{"upstream", down, `{"program":"RCRA Violations","region":{"kind":"state","state":"NY"}}`, http.StatusBadGateway, ""},
		{"bad kind", rows, `{"program":"RCRA Violations","region":{"kind":"planet","values":["x"]}}`, http.StatusUnprocessableEntity, "kind"},
		{"bad state", rows, `{"program":"RCRA Violations","region":{"kind":"county","state":"ZZ","values":["ERIE"]}}`, http.StatusUnprocessableEntity, "state"},
		{"missing program", rows, `{"region":{"kind":"state","state":"NY"}}`, http.StatusUnprocessableEntity, "program"},
		{"county needs state", rows, `{"program":"RCRA Violations","region":{"kind":"county","values":["ERIE"]}}`, http.StatusUnprocessableEntity, "state"},
		{"unknown program", rows, `{"program":"Nope","region":{"kind":"state","state":"NY"}}`, http.StatusNotFound, "program"},
		{"bad json", rows, `{"program":`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := serve(t, tc.tr, http.MethodPost, "/retrievals", tc.body)
			if code != tc.code {
				t.Fatalf("code %d want %d: %+v", code, tc.code, env)
			}
			if tc.field != "" && !strings.HasSuffix(env.Field, tc.field) {
				t.Fatalf("field %q want %q", env.Field, tc.field)
			}
		})
	}
}

func TestPrograms(t *testing.T) {
	code, env := serve(t, rows, http.MethodGet, "/programs", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"RCRA Violations"`) {
		t.Fatalf("code %d data %s", code, env.Data)
	}
}

func TestLastModified(t *testing.T) {
	mod := func(sqlq.Query) (*table.Table, error) {
		return table.New([]string{"modified"}, []table.Row{{"modified": "2026-02-28"}}), nil
	}
	code, env := serve(t, mod, http.MethodGet, "/programs/RCRA%20Violations/last-modified", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"modified":"2026-02-28"`) {
		t.Fatalf("code %d data %s", code, env.Data)
	}
	if code, _ := serve(t, mod, http.MethodGet, "/programs/Nope/last-modified", ""); code != http.StatusNotFound {
		t.Fatalf("unknown program: %d", code)
	}
}

func TestRecent(t *testing.T) {
	if code, _ := serve(t, rows, http.MethodGet, "/retrievals", ""); code != http.StatusServiceUnavailable {
		t.Fatalf("audit disabled: %d", code)
	}
	if code, env := serve(t, rows, http.MethodGet, "/retrievals?limit=0", ""); code != http.StatusUnprocessableEntity || env.Field != "limit" {
		t.Fatalf("bad limit: %d %+v", code, env)
	}
}

func TestFacilities(t *testing.T) {
	active := func(sqlq.Query) (*table.Table, error) {
		return table.New([]string{"REGISTRY_ID"}, []table.Row{
			{"REGISTRY_ID": "1", "FAC_NAME": "A", "AIR_FLAG": "Y", "CAA_3YR_COMPL_QTRS_HISTORY": "VV__", "CAA_FORMAL_ACTION_COUNT": "1"},
		}), nil
	}
	code, env := serve(t, active, http.MethodPost, "/facilities/active", `{"region":{"kind":"state","state":"NY"}}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"rows_found":1`) {
		t.Fatalf("active: %d %s", code, env.Data)
	}
	code, env = serve(t, active, http.MethodPost, "/facilities/top-violators",
		`{"program":"CAA Violations","region":{"kind":"state","state":"NY"},"limit":5}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"noncomp_count":2`) {
		t.Fatalf("top: %d %s", code, env.Data)
	}
	if code, _ := serve(t, active, http.MethodPost, "/facilities/top-violators",
		`{"program":"CAA Violations","region":{"kind":"state","state":"NY"},"limit":0}`); code != http.StatusOK {
		t.Fatalf("limit 0 means default: %d", code)
	}
}
