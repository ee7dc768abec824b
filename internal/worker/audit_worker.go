package worker

import (
	"context"
	"fmt"
	"log/slog"

	"timetrack/internal/amqp"
	"timetrack/internal/storage"
)

// AuditRecorder persists one audit row per mutation.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, rec storage.AuditRecord) error
}

// AuditWorker turns event change notices into audit trail rows.
type AuditWorker struct {
	recorder AuditRecorder
}

func NewAuditWorker(recorder AuditRecorder) *AuditWorker {
	return &AuditWorker{recorder: recorder}
}

// HandleEventChanged records a single notice. A returned error makes the
// consumer requeue the message.
func (w *AuditWorker) HandleEventChanged(ctx context.Context, msg *amqp.EventChangedMessage) error {
	slog.InfoContext(ctx, "Recording event change",
		"operation", msg.Operation,
		"event_id", msg.EventID,
		"project", msg.Project)

	rec := storage.AuditRecord{
		Operation:  msg.Operation,
		Event:      msg.Event(),
		OccurredAt: msg.Timestamp,
	}
	if err := w.recorder.RecordAudit(ctx, rec); err != nil {
		return fmt.Errorf("record %s of event %d: %w", msg.Operation, msg.EventID, err)
	}
	return nil
}
