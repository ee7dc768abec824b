package trace

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	tlog "timetrack/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns a request id, logs the completed request and observes
// its latency.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *tlog.StructuredLogger
	latency   *prometheus.HistogramVec
}

// NewMiddleware builds the tracer. latency may be nil; when set it must have
// the labels method and status.
func NewMiddleware(extractIP func(*http.Request) string, logger *tlog.Logger, latency *prometheus.HistogramVec) *Middleware {
	if logger == nil {
		logger = tlog.FromContext(context.Background())
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    tlog.NewStructuredLogger(logger.WithComponent(tlog.ComponentTrace)),
		latency:   latency,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		if m.latency != nil {
			m.latency.WithLabelValues(r.Method, strconv.Itoa(rw.statusCode)).Observe(duration.Seconds())
		}

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		m.logger.LogHTTPEnd(r.Context(), r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID returns the id assigned to the request, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
