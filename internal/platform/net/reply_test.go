package net

import (
	"net/http"
	"testing"

	perr "echokit/internal/platform/errors"
)

func TestReply(t *testing.T) {
	e := Reply(http.StatusCreated, map[string]int{"n": 1}, "r1")
	if e.StatusCode != 201 || e.Status != "Created" || e.RequestID != "r1" || e.Data == nil {
		t.Fatalf("envelope = %+v", e)
	}
}

func TestError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   perr.ErrorCode
		field  string
	}{
		{nil, http.StatusOK, perr.ErrorCodeUnknown, ""},
		{perr.Upstreamf("echo returned 500"), http.StatusBadGateway, perr.ErrorCodeUpstream, ""},
		{perr.WithField(perr.InvalidArgf("bad district"), "values"), http.StatusUnprocessableEntity, perr.ErrorCodeInvalidArgument, "values"},
		{perr.Forbiddenf("denied"), http.StatusForbidden, perr.ErrorCodeForbidden, ""},
	}
	for _, c := range cases {
		status, env := Error(c.err, "rid")
		if status != c.status || env.StatusCode != c.status || env.Code != c.code || env.Field != c.field {
			t.Fatalf("Error(%v) = %d %+v", c.err, status, env)
		}
		if c.err != nil && env.Error == "" {
			t.Fatalf("message missing for %v", c.err)
		}
	}
}
