package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of the event store service.
type Metrics struct {
	Mutations       *prometheus.CounterVec
	PublishFailures prometheus.Counter
	RequestDuration *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Collectors that are
// already registered are reused so that tests can build several servers.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetrack_event_mutations_total",
			Help: "Event mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetrack_publish_failures_total",
			Help: "Event change notices that could not be published",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timetrack_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetrack_aggregate_cache_lookups_total",
			Help: "Aggregate cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		return m
	}
	m.Mutations = register(reg, m.Mutations)
	m.PublishFailures = register(reg, m.PublishFailures)
	m.RequestDuration = register(reg, m.RequestDuration)
	m.CacheLookups = register(reg, m.CacheLookups)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		slog.Error("can't register metric", "error", err)
	}
	return c
}
