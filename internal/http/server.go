package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timetrack/internal/core"
	tlog "timetrack/internal/log"
	"timetrack/internal/metrics"
	"timetrack/internal/middleware/ratelimit"
	"timetrack/internal/middleware/security"
	"timetrack/internal/middleware/trace"
	"timetrack/internal/services"
)

// EventService is the part of services.EventService the handlers use.
type EventService interface {
	List(ctx context.Context) ([]core.Event, error)
	Get(ctx context.Context, id core.EventID) (core.Event, error)
	Create(ctx context.Context, in core.EventInput) (core.Event, error)
	Update(ctx context.Context, id core.EventID, in core.EventInput) (core.Event, error)
	Delete(ctx context.Context, id core.EventID) (core.Event, error)
	Aggregates(ctx context.Context) (services.Aggregates, error)
	Ping(ctx context.Context) error
}

// Server serves the event store API.
type Server struct {
	http.Server
	events      EventService
	logger      *tlog.Logger
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	origins     []string

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

type Option func(*Server)

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithRateLimiter limits mutating requests per client.
func WithRateLimiter(rl *ratelimit.Limiter) Option {
	return func(s *Server) { s.rateLimiter = rl }
}

// WithMetrics records request latency in m and exposes g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

func WithLogger(l *tlog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, events EventService, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		events: events,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = tlog.New(tlog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(tlog.ComponentHTTP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	mux.HandleFunc("GET /api/hours/monthly", s.handleMonthlyHours)
	mux.HandleFunc("GET /api/hours/weekly", s.handleWeeklyHours)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	var latency *prometheus.HistogramVec
	if s.metrics != nil {
		latency = s.metrics.RequestDuration
	}
	tracer := trace.NewMiddleware(security.ClientIP, s.logger, latency)

	// Outermost first.
	chain := []func(http.Handler) http.Handler{
		tracer.Middleware,
		tlog.Middleware(s.logger),
		tlog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }),
		security.Headers(security.DefaultHeadersConfig()),
		security.CORS(security.DefaultCORSConfig(s.origins...)),
	}
	if s.rateLimiter != nil {
		chain = append(chain, s.rateLimiter.Middleware(security.ClientIP, rateLimited,
			http.MethodPost, http.MethodPut, http.MethodDelete))
	}

	var h http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	s.Handler = h

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	if s.rateLimiter != nil {
		go s.rateLimiter.Run(ctx, 5*time.Minute)
	}
	return s
}

// Shutdown stops background routines and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.events.Ping(ctx); err != nil {
		tlog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", tlog.FieldError, err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}
