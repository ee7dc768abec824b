// Package client talks to the event store API. Every call is a single
// request with no retry; callers decide what to do with failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"timetrack/internal/config"
	"timetrack/internal/core"
)

// ErrMutationFailed wraps every failed create, update or remove, whether the
// store answered with an error status or could not be reached.
var ErrMutationFailed = errors.New("event store mutation failed")

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("event store returned %d", e.Code)
	}
	return fmt.Sprintf("event store returned %d: %s", e.Code, body)
}

// Client is the HTTP client for the event store API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. A nil httpClient gets a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FromConfig creates a client from the terminal client configuration.
func FromConfig(cfg config.ClientConfig) *Client {
	return New(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
}

func (c *Client) List(ctx context.Context) ([]core.Event, error) {
	var events []core.Event
	if err := c.do(ctx, http.MethodGet, "/api/events", nil, &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []core.Event{}
	}
	return events, nil
}

// Create stores a new event and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, in core.EventInput) (core.Event, error) {
	var e core.Event
	if err := c.do(ctx, http.MethodPost, "/api/events", in, &e); err != nil {
		return core.Event{}, fmt.Errorf("%w: create event: %w", ErrMutationFailed, err)
	}
	return e, nil
}

// Update replaces the editable fields of event id.
func (c *Client) Update(ctx context.Context, id core.EventID, in core.EventInput) (core.Event, error) {
	var e core.Event
	if err := c.do(ctx, http.MethodPut, "/api/events/"+id.String(), in, &e); err != nil {
		return core.Event{}, fmt.Errorf("%w: update event %d: %w", ErrMutationFailed, id, err)
	}
	return e, nil
}

// Remove deletes event id. Any 2xx is success; the body is ignored.
func (c *Client) Remove(ctx context.Context, id core.EventID) error {
	if err := c.do(ctx, http.MethodDelete, "/api/events/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("%w: remove event %d: %w", ErrMutationFailed, id, err)
	}
	return nil
}

func (c *Client) MonthlyHours(ctx context.Context) (core.MonthlyHours, error) {
	var m core.MonthlyHours
	if err := c.do(ctx, http.MethodGet, "/api/hours/monthly", nil, &m); err != nil {
		return nil, fmt.Errorf("monthly hours: %w", err)
	}
	return m, nil
}

func (c *Client) WeeklyHours(ctx context.Context) (core.WeeklyHours, error) {
	var w core.WeeklyHours
	if err := c.do(ctx, http.MethodGet, "/api/hours/weekly", nil, &w); err != nil {
		return nil, fmt.Errorf("weekly hours: %w", err)
	}
	return w, nil
}

// do sends body as JSON and decodes a 2xx response into out when out is
// not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
