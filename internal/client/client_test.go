package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"timetrack/internal/core"
	apihttp "timetrack/internal/http"
	tlog "timetrack/internal/log"
	"timetrack/internal/services"
	"timetrack/internal/store/memory"
)

// newStore starts the real API over an in-memory store.
func newStore(t *testing.T, seed ...core.Event) *Client {
	t.Helper()
	srv := apihttp.NewServer(":0", services.NewEventService(memory.New(seed...)),
		apihttp.WithLogger(tlog.New(tlog.Config{Output: io.Discard})))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", ts.Client())
}

func input(project string, hours float64, day int) core.EventInput {
	return core.EventInput{Project: project, Hours: hours, Date: core.NewDate(2024, time.March, day)}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newStore(t)

	events, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", events)
	}

	created, err := c.Create(ctx, input("Acme", 1.5, 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.HasID() || created.Hours != 1.5 {
		t.Fatalf("created %+v", created)
	}

	updated, err := c.Update(ctx, created.ID, input("Acme", 3, 5))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Date.String() != "2024-03-05" {
		t.Fatalf("updated %+v", updated)
	}

	monthly, err := c.MonthlyHours(ctx)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(monthly) != 1 || monthly[0].Month != "2024-03" || monthly[0].Hours != 3 {
		t.Fatalf("monthly %+v", monthly)
	}
	weekly, err := c.WeeklyHours(ctx)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if len(weekly) != 1 || weekly[0].Weeks[0].Week != "week1" {
		t.Fatalf("weekly %+v", weekly)
	}

	if err := c.Remove(ctx, created.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	events, _ = c.List(ctx)
	if len(events) != 0 {
		t.Fatalf("expected empty list after remove, got %d", len(events))
	}
}

func TestMutationFailures(t *testing.T) {
	ctx := context.Background()
	c := newStore(t)

	_, err := c.Update(ctx, 42, input("Acme", 1, 1))
	if !errors.Is(err, ErrMutationFailed) {
		t.Fatalf("update unknown: %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}

	if err := c.Remove(ctx, 42); !errors.Is(err, ErrMutationFailed) {
		t.Fatalf("remove unknown: %v", err)
	}

	// Server-side validation still rejects what a client sends unchecked.
	_, err = c.Create(ctx, input("Acme", 0.25, 1))
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestTransportFailureIsMutationFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, nil)
	_, err := c.Create(context.Background(), input("Acme", 1, 1))
	if !errors.Is(err, ErrMutationFailed) {
		t.Fatalf("expected ErrMutationFailed, got %v", err)
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Fatalf("transport failure should not carry a status: %v", se)
	}
}

func TestAggregatesKeepDeliveryOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/hours/monthly":
			_, _ = w.Write([]byte(`{"2024-11":4,"2024-02":8}`))
		case "/api/hours/weekly":
			_, _ = w.Write([]byte(`{"11":{"week3":1,"week1":2}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()
	c := New(ts.URL, ts.Client())

	monthly, err := c.MonthlyHours(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if monthly[0].Month != "2024-11" || monthly[1].Month != "2024-02" {
		t.Fatalf("order not kept: %+v", monthly)
	}
	weekly, err := c.WeeklyHours(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if weekly[0].Month != "11" || weekly[0].Weeks[0].Week != "week3" {
		t.Fatalf("order not kept: %+v", weekly)
	}
}

func TestListErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := New(ts.URL, ts.Client()).List(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status error, got %v", err)
	}
	if errors.Is(err, ErrMutationFailed) {
		t.Fatal("a failed read is not a mutation failure")
	}
}
