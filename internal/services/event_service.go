package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timetrack/internal/amqp"
	"timetrack/internal/cache"
	"timetrack/internal/core"
	"timetrack/internal/metrics"
	"timetrack/internal/store"
)

// Publisher announces committed mutations. *amqp.Client implements it.
type Publisher interface {
	PublishEventChanged(ctx context.Context, msg *amqp.EventChangedMessage) error
}

// Aggregates bundles the two hour reports served together.
type Aggregates struct {
	Monthly core.MonthlyHours
	Weekly  core.WeeklyHours
}

const aggregatesKey = "aggregates"

// EventService orchestrates event operations across the repository, the
// aggregate cache and AMQP. The repository is the source of truth: a publish
// failure is logged and never fails the request.
type EventService struct {
	repo      store.EventRepository
	publisher Publisher
	cache     cache.Cache[Aggregates]
	metrics   *metrics.Metrics
}

type Option func(*EventService)

func WithPublisher(p Publisher) Option {
	return func(s *EventService) { s.publisher = p }
}

func WithCache(c cache.Cache[Aggregates]) Option {
	return func(s *EventService) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *EventService) { s.metrics = m }
}

func NewEventService(repo store.EventRepository, opts ...Option) *EventService {
	s := &EventService{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	return s
}

func (s *EventService) List(ctx context.Context) ([]core.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []core.Event{}
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id core.EventID) (core.Event, error) {
	return s.repo.Get(ctx, id)
}

func (s *EventService) Create(ctx context.Context, in core.EventInput) (core.Event, error) {
	e, err := s.repo.Create(ctx, in)
	s.observe(amqp.OpCreated, err)
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}
	s.committed(ctx, amqp.OpCreated, e)
	return e, nil
}

func (s *EventService) Update(ctx context.Context, id core.EventID, in core.EventInput) (core.Event, error) {
	e, err := s.repo.Update(ctx, id, in)
	s.observe(amqp.OpUpdated, err)
	if err != nil {
		return core.Event{}, fmt.Errorf("update event %d: %w", id, err)
	}
	s.committed(ctx, amqp.OpUpdated, e)
	return e, nil
}

func (s *EventService) Delete(ctx context.Context, id core.EventID) (core.Event, error) {
	e, err := s.repo.Delete(ctx, id)
	s.observe(amqp.OpDeleted, err)
	if err != nil {
		return core.Event{}, fmt.Errorf("delete event %d: %w", id, err)
	}
	s.committed(ctx, amqp.OpDeleted, e)
	return e, nil
}

// Aggregates returns monthly and weekly totals, served from cache until the
// next mutation.
func (s *EventService) Aggregates(ctx context.Context) (Aggregates, error) {
	if s.cache != nil {
		if agg, ok := s.cache.Get(aggregatesKey); ok {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return agg, nil
		}
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	events, err := s.repo.List(ctx)
	if err != nil {
		return Aggregates{}, fmt.Errorf("list events for aggregates: %w", err)
	}
	monthly, weekly := core.Summarize(events)
	agg := Aggregates{Monthly: monthly, Weekly: weekly}
	if s.cache != nil {
		s.cache.Set(aggregatesKey, agg)
	}
	return agg, nil
}

func (s *EventService) observe(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.metrics.Mutations.WithLabelValues(op, outcome).Inc()
}

func (s *EventService) committed(ctx context.Context, op string, e core.Event) {
	if s.cache != nil {
		s.cache.Purge()
	}
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event change notice", "operation", op)
		return
	}
	if err := s.publisher.PublishEventChanged(ctx, amqp.NewEventChangedMessage(op, e)); err != nil {
		s.metrics.PublishFailures.Inc()
		slog.ErrorContext(ctx, "Failed to publish event change",
			"operation", op, "event_id", e.ID, "error", err)
	}
}

// Ping checks the repository when it supports it.
func (s *EventService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
