package logger

import (
	"bytes"
	"context"
	"testing"

	kit "echokit/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"DEBUG":    zerolog.DebugLevel,
		" warn ":   zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"nonsense": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWritesStaticFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{
		Level:        "debug",
		Format:       "json",
		Service:      "echokit-api",
		Component:    "echoapi",
		Writer:       &buf,
		StaticFields: map[string]string{"build": "test"},
	})
	l.Info().Int("rows", 15).Msg("fetched")

	out := buf.String()
	kit.MustContain(t, out, `"service":"echokit-api"`)
	kit.MustContain(t, out, `"component":"echoapi"`)
	kit.MustContain(t, out, `"build":"test"`)
	kit.MustContain(t, out, `"rows":15`)
}

func TestRootChildren(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Service: "svc-a", Writer: &buf})

	Named("batch").Info().Msg("named-msg")
	ctx := WithRequest(context.Background(), "req-123")
	C(ctx).Info().Msg("ctx-msg")
	C(context.Background()).Info().Msg("bare-msg")

	out := buf.String()
	kit.MustContain(t, out, "named-msg")
	kit.MustContain(t, out, `"component":"batch"`)
	kit.MustContain(t, out, `"request_id":"req-123"`)
	kit.MustContain(t, out, "bare-msg")

	if RequestID(ctx) != "req-123" {
		t.Fatalf("RequestID = %q", RequestID(ctx))
	}
	if WithRequest(ctx, "") != ctx {
		t.Fatalf("empty id should return ctx unchanged")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_SERVICE", "svc-b")
	t.Setenv("LOG_CALLER", "true")
	t.Setenv("LOG_SAMPLE_EVERY", "5")

	opt := FromEnv()
	if opt.Level != "warn" || opt.Format != "console" || opt.Service != "svc-b" {
		t.Fatalf("FromEnv = %+v", opt)
	}
	if !opt.WithCaller || opt.SampleEvery != 5 {
		t.Fatalf("FromEnv caller/sample = %+v", opt)
	}
}
