package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"timetrack/internal/cache"
	"timetrack/internal/core"
	tlog "timetrack/internal/log"
	"timetrack/internal/metrics"
	"timetrack/internal/middleware/ratelimit"
	"timetrack/internal/services"
	"timetrack/internal/store/memory"
)

func quietLogger() *tlog.Logger {
	return tlog.New(tlog.Config{Output: io.Discard})
}

func newTestServer(t *testing.T, seed ...core.Event) *Server {
	t.Helper()
	svc := services.NewEventService(memory.New(seed...),
		services.WithCache(cache.NewLRUCache[services.Aggregates](4, time.Hour)))
	return NewServer(":0", svc, WithLogger(quietLogger()))
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func ev(id core.EventID, project string, hours float64, y int, m int, d int) core.Event {
	return core.Event{ID: id, Project: project, Hours: hours, Date: core.NewDate(y, time.Month(m), d)}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

type failingPing struct{ EventService }

func (failingPing) Ping(context.Context) error { return errors.New("disk gone") }

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := NewServer(":0", failingPing{}, WithLogger(quietLogger()))
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestListEventsEmptyIsArray(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/events", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Fatalf("body=%q, want []", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
}

func TestCreateEvent(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr string
	}{
		{"numeric hours", `{"project":"Acme","hours":2,"date":"2024-03-05"}`, http.StatusCreated, ""},
		{"string hours", `{"project":"Acme","hours":"1.5","date":"2024-03-05","description":"review"}`, http.StatusCreated, ""},
		{"missing hours", `{"project":"Acme","date":"2024-03-05"}`, http.StatusBadRequest, "missing required fields"},
		{"missing date", `{"project":"Acme","hours":1}`, http.StatusBadRequest, "missing required fields"},
		{"bad hours", `{"project":"Acme","hours":"lots","date":"2024-03-05"}`, http.StatusBadRequest, "invalid hours or date format"},
		{"bad date", `{"project":"Acme","hours":1,"date":"05/03/2024"}`, http.StatusBadRequest, "invalid hours or date format"},
		{"quarter hour", `{"project":"Acme","hours":0.25,"date":"2024-03-05"}`, http.StatusBadRequest, core.ErrInvalidHours.Error()},
		{"empty project", `{"project":" ","hours":1,"date":"2024-03-05"}`, http.StatusBadRequest, core.ErrEmptyProject.Error()},
		{"numeric project", `{"project":5,"hours":1,"date":"2024-03-05"}`, http.StatusBadRequest, "invalid hours or date format"},
		{"huge hours", `{"project":"Acme","hours":1e18,"date":"2024-03-05"}`, http.StatusBadRequest, core.ErrInvalidHours.Error()},
		{"not json", `project=Acme`, http.StatusBadRequest, "request body must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			rr := do(t, srv, http.MethodPost, "/api/events", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.wantErr != "" {
				var body struct{ Error string }
				if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if body.Error != tt.wantErr {
					t.Fatalf("error=%q want %q", body.Error, tt.wantErr)
				}
				return
			}
			var e core.Event
			if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if !e.HasID() || e.Project != "Acme" {
				t.Fatalf("unexpected event %+v", e)
			}
		})
	}
}

func TestUpdateEvent(t *testing.T) {
	srv := newTestServer(t, ev(7, "Acme", 2, 2024, 3, 5))

	rr := do(t, srv, http.MethodPut, "/api/events/99", `{"project":"X","hours":1,"date":"2024-03-05"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status=%d", rr.Code)
	}
	// Unknown id wins over an invalid body.
	rr = do(t, srv, http.MethodPut, "/api/events/99", `{}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id, bad body: status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPut, "/api/events/abc", `{}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id: status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPut, "/api/events/7", `{"project":"Acme"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/events/7", `{"id":3,"project":"Globex","hours":"4","date":"2024-03-06"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var e core.Event
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.ID != 7 || e.Project != "Globex" || e.Hours != 4 || e.Date.String() != "2024-03-06" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestDeleteEvent(t *testing.T) {
	srv := newTestServer(t, ev(1, "Acme", 2, 2024, 3, 5))

	rr := do(t, srv, http.MethodDelete, "/api/events/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: status=%d", rr.Code)
	}
	var e core.Event
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.ID != 1 || e.Project != "Acme" {
		t.Fatalf("deleted event %+v", e)
	}

	rr = do(t, srv, http.MethodDelete, "/api/events/1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: status=%d", rr.Code)
	}
}

func TestHoursEndpoints(t *testing.T) {
	srv := newTestServer(t,
		ev(1, "A", 2, 2024, 4, 9),
		ev(2, "A", 3, 2024, 3, 1),
		ev(3, "B", 1.5, 2024, 3, 8),
		ev(4, "B", 0.5, 2024, 3, 29),
	)

	rr := do(t, srv, http.MethodGet, "/api/hours/monthly", "")
	if got, want := strings.TrimSpace(rr.Body.String()), `{"2024-03":5,"2024-04":2}`; got != want {
		t.Fatalf("monthly=%s want %s", got, want)
	}
	rr = do(t, srv, http.MethodGet, "/api/hours/weekly", "")
	want := `{"2024-03":{"week1":3,"week2":1.5,"week5":0.5},"2024-04":{"week2":2}}`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Fatalf("weekly=%s want %s", got, want)
	}

	// A mutation invalidates cached totals.
	do(t, srv, http.MethodPost, "/api/events", `{"project":"C","hours":1,"date":"2024-05-02"}`)
	rr = do(t, srv, http.MethodGet, "/api/hours/monthly", "")
	if got, want := strings.TrimSpace(rr.Body.String()), `{"2024-03":5,"2024-04":2,"2024-05":1}`; got != want {
		t.Fatalf("monthly after create=%s want %s", got, want)
	}
}

func TestPreflightAndHeaders(t *testing.T) {
	srv := NewServer(":0", services.NewEventService(memory.New()),
		WithLogger(quietLogger()), WithCORSOrigins("http://localhost:3000"))

	req := httptest.NewRequest(http.MethodOptions, "/api/hours/monthly", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	rl := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1})
	srv := NewServer(":0", services.NewEventService(memory.New()),
		WithLogger(quietLogger()), WithRateLimiter(rl))
	defer srv.Shutdown(context.Background())

	body := `{"project":"A","hours":1,"date":"2024-03-05"}`
	if rr := do(t, srv, http.MethodPost, "/api/events", body); rr.Code != http.StatusCreated {
		t.Fatalf("first create: %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/events", body); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second create: %d", rr.Code)
	}
	// Reads are not limited.
	if rr := do(t, srv, http.MethodGet, "/api/events", ""); rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := services.NewEventService(memory.New(), services.WithMetrics(m))
	srv := NewServer(":0", svc, WithLogger(quietLogger()), WithMetrics(m, reg))

	do(t, srv, http.MethodPost, "/api/events", `{"project":"A","hours":1,"date":"2024-03-05"}`)
	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"timetrack_event_mutations_total", "timetrack_http_request_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output lacks %s", name)
		}
	}
}
