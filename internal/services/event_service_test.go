package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"timetrack/internal/amqp"
	"timetrack/internal/cache"
	"timetrack/internal/core"
	"timetrack/internal/metrics"
	"timetrack/internal/store"
	"timetrack/internal/store/memory"
)

type fakePublisher struct {
	msgs []*amqp.EventChangedMessage
	err  error
}

func (p *fakePublisher) PublishEventChanged(_ context.Context, msg *amqp.EventChangedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

type countingRepo struct {
	store.EventRepository
	lists int
}

func (r *countingRepo) List(ctx context.Context) ([]core.Event, error) {
	r.lists++
	return r.EventRepository.List(ctx)
}

func in(project string, hours float64, day int) core.EventInput {
	return core.EventInput{Project: project, Hours: hours, Date: core.NewDate(2024, 3, day)}
}

func TestEventServicePublishesMutations(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	m := metrics.New(nil)
	svc := NewEventService(memory.New(), WithPublisher(pub), WithMetrics(m))

	created, err := svc.Create(ctx, in("Acme", 2, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, created.ID, in("Acme", 3, 1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(pub.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(pub.msgs))
	}
	ops := []string{pub.msgs[0].Operation, pub.msgs[1].Operation, pub.msgs[2].Operation}
	if ops[0] != amqp.OpCreated || ops[1] != amqp.OpUpdated || ops[2] != amqp.OpDeleted {
		t.Fatalf("unexpected operations %v", ops)
	}
	if pub.msgs[1].Hours != 3 || pub.msgs[2].EventID != created.ID {
		t.Fatalf("messages should carry the event snapshot: %+v", pub.msgs)
	}
	if got := testutil.ToFloat64(m.Mutations.WithLabelValues(amqp.OpCreated, "ok")); got != 1 {
		t.Fatalf("expected 1 counted create, got %v", got)
	}
}

func TestEventServicePublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	m := metrics.New(nil)
	svc := NewEventService(memory.New(), WithPublisher(pub), WithMetrics(m))

	if _, err := svc.Create(context.Background(), in("Acme", 1, 1)); err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
	if got := testutil.ToFloat64(m.PublishFailures); got != 1 {
		t.Fatalf("expected 1 publish failure, got %v", got)
	}
}

func TestEventServiceNotFound(t *testing.T) {
	m := metrics.New(nil)
	pub := &fakePublisher{}
	svc := NewEventService(memory.New(), WithPublisher(pub), WithMetrics(m))

	_, err := svc.Delete(context.Background(), 99)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("failed mutation must not publish")
	}
	if got := testutil.ToFloat64(m.Mutations.WithLabelValues(amqp.OpDeleted, "not_found")); got != 1 {
		t.Fatalf("expected not_found outcome, got %v", got)
	}
}

func TestEventServiceAggregatesCachedUntilMutation(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{EventRepository: memory.New()}
	svc := NewEventService(repo, WithCache(cache.NewLRUCache[Aggregates](4, time.Minute)))

	if _, err := svc.Create(ctx, in("Acme", 2, 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		agg, err := svc.Aggregates(ctx)
		if err != nil {
			t.Fatalf("aggregates: %v", err)
		}
		if len(agg.Monthly) != 1 || agg.Monthly[0].Hours != 2 {
			t.Fatalf("unexpected monthly %+v", agg.Monthly)
		}
	}
	if repo.lists != 1 {
		t.Fatalf("expected a single list behind the cache, got %d", repo.lists)
	}

	if _, err := svc.Create(ctx, in("Acme", 1.5, 9)); err != nil {
		t.Fatalf("create: %v", err)
	}
	agg, _ := svc.Aggregates(ctx)
	if repo.lists != 2 || agg.Monthly[0].Hours != 3.5 || len(agg.Weekly[0].Weeks) != 2 {
		t.Fatalf("mutation should invalidate the cache: lists=%d agg=%+v", repo.lists, agg)
	}
}

func TestEventServiceListNeverNil(t *testing.T) {
	svc := NewEventService(memory.New())
	events, err := svc.List(context.Background())
	if err != nil || events == nil {
		t.Fatalf("expected empty slice, got %v err=%v", events, err)
	}
}
