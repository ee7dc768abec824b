package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"timetrack/internal/amqp"
	"timetrack/internal/core"
	"timetrack/internal/storage"
)

type fakeRecorder struct {
	recs []storage.AuditRecord
	err  error
}

func (f *fakeRecorder) RecordAudit(_ context.Context, rec storage.AuditRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func TestHandleEventChanged(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewAuditWorker(rec)
	msg := amqp.NewEventChangedMessage(amqp.OpUpdated, core.Event{ID: 3, Project: "Acme", Hours: 2, Date: core.NewDate(2024, 3, 1)})

	if err := w.HandleEventChanged(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rec.recs) != 1 {
		t.Fatalf("expected one record, got %d", len(rec.recs))
	}
	got := rec.recs[0]
	if got.Operation != amqp.OpUpdated || got.Event.ID != 3 || got.Event.Project != "Acme" || !got.OccurredAt.Equal(msg.Timestamp) {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestHandleEventChangedPropagatesFailure(t *testing.T) {
	w := NewAuditWorker(&fakeRecorder{err: errors.New("database is locked")})
	msg := amqp.NewEventChangedMessage(amqp.OpCreated, core.Event{ID: 1, Project: "A", Hours: 1, Date: core.NewDate(2024, 1, 1)})
	if err := w.HandleEventChanged(context.Background(), msg); err == nil {
		t.Fatalf("expected error so the message is requeued")
	}
}

func TestHandleEventChangedWithSQLite(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	w := NewAuditWorker(repo)
	msg := &amqp.EventChangedMessage{
		Operation: amqp.OpDeleted,
		EventID:   5,
		Project:   "Globex",
		Hours:     1.5,
		Date:      core.NewDate(2024, 2, 10),
		Timestamp: time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC),
	}
	if err := w.HandleEventChanged(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	trail, err := repo.AuditTrail(ctx, 5)
	if err != nil || len(trail) != 1 || trail[0].Operation != amqp.OpDeleted || trail[0].Hours != 1.5 {
		t.Fatalf("unexpected trail %+v err=%v", trail, err)
	}
}
