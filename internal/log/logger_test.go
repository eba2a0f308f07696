package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"painel/internal/core"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: ComponentDashboard, Writer: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	logger.With(FieldBackend, "memory").WithComponent(ComponentWorker).Info("hello")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=worker") {
		t.Fatalf("unexpected component attrs: %s", out)
	}
	if !strings.Contains(out, "backend=memory") {
		t.Fatalf("parent attributes lost: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected fallback logger")
	}

	logger, buf := newBufferLogger(slog.LevelInfo)
	h := RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		}))
	Middleware(logger)(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id missing: %s", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelDebug)
	sl := NewStructuredLogger(logger)
	ctx := context.Background()

	sl.LogPipeline(ctx, "memory", 10, 12, 1, 2, 3)
	sl.LogParseWarnings(ctx, []core.ParseWarning{{Row: 4, Field: "amount", Value: "abc", Reason: "defaulted to zero"}})
	sl.LogHTTPEnd(ctx, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), 502, 12, "10.0.0.1")
	sl.LogError(ctx, "boom", errors.New("bad"), OpSync, nil)

	out := buf.String()
	for _, want := range []string{"months=3", "row=4", "field=amount", "status_code=502", "level=ERROR", "error=bad"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestParseWarningsSkippedAboveDebug(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	NewStructuredLogger(logger).LogParseWarnings(context.Background(), []core.ParseWarning{{Row: 1}})
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
}
