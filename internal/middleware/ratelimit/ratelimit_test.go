package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("other clients are independent")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("new window should reset the counter")
	}
}

func TestLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{})
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	now = now.Add(11 * time.Minute)
	rl.Allow("b")

	if removed := rl.cleanup(); removed != 1 || rl.ActiveClients() != 1 {
		t.Fatalf("expected stale client removed, removed=%d active=%d", removed, rl.ActiveClients())
	}
}

func TestMiddlewareLimitsOnlyListedMethods(t *testing.T) {
	hits := 0
	rl := NewLimiter(Config{RequestsPerMinute: 1, OnLimit: func(string) { hits++ }})
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("GET should never be limited, got %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first POST should pass, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" || hits != 1 {
		t.Fatalf("second POST should be limited, got %d hits=%d", rec.Code, hits)
	}
}
