package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "echokit/internal/platform/errors"
	pnet "echokit/internal/platform/net"
	phttp "echokit/internal/platform/net/http"
)

func withReqID(req *http.Request, rid string) *http.Request {
	return req.WithContext(pnet.WithRequestID(req.Context(), rid))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHandle_SuccessAndErrors(t *testing.T) {
	cases := []struct {
		name   string
		resp   phttp.Response
		status int
		code   perr.ErrorCode
	}{
		{"ok", phttp.OK(map[string]int{"rows_found": 0}), http.StatusOK, 0},
		{"created", phttp.Created("x"), http.StatusCreated, 0},
		{"zero status", phttp.Response{Body: "x"}, http.StatusOK, 0},
		{"upstream", phttp.Error(perr.Upstreamf("echo returned 500")), http.StatusBadGateway, perr.ErrorCodeUpstream},
		{"validation", phttp.Error(perr.WithField(perr.Newf(perr.ErrorCodeValidation, "bad"), "kind")), http.StatusUnprocessableEntity, perr.ErrorCodeValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := phttp.Handle(func(*http.Request) phttp.Response { return c.resp })
			rec := httptest.NewRecorder()
			h(rec, withReqID(httptest.NewRequest(http.MethodGet, "/", nil), "rid-1"))

			if rec.Code != c.status {
				t.Fatalf("status = %d, want %d", rec.Code, c.status)
			}
			env := decode(t, rec)
			if env.StatusCode != c.status || env.RequestID != "rid-1" || env.Code != c.code {
				t.Fatalf("envelope = %+v", env)
			}
			if c.code == perr.ErrorCodeValidation && env.Field != "kind" {
				t.Fatalf("field missing: %+v", env)
			}
		})
	}
}

func TestHandle_NoContentAndHeaders(t *testing.T) {
	h := phttp.Handle(func(*http.Request) phttp.Response {
		r := phttp.NoContent()
		r.Header = http.Header{"X-Rows": {"3"}}
		return r
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 || rec.Header().Get("X-Rows") != "3" {
		t.Fatalf("code=%d body=%q hdr=%v", rec.Code, rec.Body.String(), rec.Header())
	}
}

type echoIn struct {
	Program string `json:"program" validate:"required"`
}

func TestJSONHandler(t *testing.T) {
	h := phttp.JSONHandler(func(_ *http.Request, in echoIn) (any, error) {
		if in.Program == "created" {
			return phttp.Created(in), nil
		}
		if in.Program == "boom" {
			return nil, perr.Upstreamf("down")
		}
		return in, nil
	})
	cases := []struct {
		body   string
		status int
	}{
		{`{"program":"Facilities"}`, http.StatusOK},
		{`{"program":"created"}`, http.StatusCreated},
		{`{"program":"boom"}`, http.StatusBadGateway},
		{`{"program":""}`, http.StatusUnprocessableEntity},
		{`{"program":`, http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.body)))
		if rec.Code != c.status {
			t.Fatalf("%s: status = %d, want %d (%s)", c.body, rec.Code, c.status, rec.Body.String())
		}
	}
}

func TestRespondHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondOK(rec, httptest.NewRequest(http.MethodGet, "/", nil), []string{"a"})
	if rec.Code != 200 || decode(t, rec).Data == nil {
		t.Fatalf("RespondOK = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	phttp.RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), perr.NotFoundf("no program"))
	if rec.Code != http.StatusNotFound || decode(t, rec).Error != "no program" {
		t.Fatalf("RespondError = %d %s", rec.Code, rec.Body.String())
	}
}
