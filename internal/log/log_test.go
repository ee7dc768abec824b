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
)

func TestNewWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})
	logger.Info("hello", FieldEventID, 3)

	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "event_id=3") {
		t.Fatalf("unexpected output %q", out)
	}
	if logger.Component() != ComponentHTTP {
		t.Fatalf("component = %q", logger.Component())
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "json", Output: &buf}).Warn("careful")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"component":"app"`) {
		t.Fatalf("expected JSON line, got %q", buf.String())
	}
}

func TestMiddlewareAndFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id missing from %q", buf.String())
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	req := httptest.NewRequest(http.MethodDelete, "/api/events/9", nil)

	sl.LogHTTPEnd(context.Background(), req, http.StatusNotFound, 3, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "status_code=404") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk full"), OpCreate, nil)
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), `error="disk full"`) {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	sl.LogEventMutation(context.Background(), OpUpdate, 4, "Acme", 1.5, "2024-03-01")
	if !strings.Contains(buf.String(), "Event updated") || !strings.Contains(buf.String(), "project=Acme") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
