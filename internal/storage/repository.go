package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"timetrack/internal/core"
	"timetrack/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements store.EventRepository on a SQLite file and
// keeps the audit trail written by the worker.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.EventRepository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Event, error) {
	rows, err := r.queries.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]core.Event, 0, len(rows))
	for _, row := range rows {
		e, err := toCore(row)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id core.EventID) (core.Event, error) {
	row, err := r.queries.GetEvent(ctx, int64(id))
	if err != nil {
		return core.Event{}, notFound("get event", err)
	}
	return toCore(row)
}

func (r *SQLiteRepository) Create(ctx context.Context, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	row, err := r.queries.CreateEvent(ctx, CreateEventParams{
		Project:     in.Project,
		Hours:       in.Hours,
		Date:        in.Date.String(),
		Description: in.Description,
	})
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}

	slog.InfoContext(ctx, "Event saved to SQLite",
		"id", row.ID,
		"project", row.Project,
		"hours", row.Hours,
		"date", row.Date)

	return toCore(row)
}

func (r *SQLiteRepository) Update(ctx context.Context, id core.EventID, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	row, err := r.queries.UpdateEvent(ctx, UpdateEventParams{
		ID:          int64(id),
		Project:     in.Project,
		Hours:       in.Hours,
		Date:        in.Date.String(),
		Description: in.Description,
	})
	if err != nil {
		return core.Event{}, notFound("update event", err)
	}
	return toCore(row)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id core.EventID) (core.Event, error) {
	row, err := r.queries.DeleteEvent(ctx, int64(id))
	if err != nil {
		return core.Event{}, notFound("delete event", err)
	}

	slog.InfoContext(ctx, "Event deleted from SQLite", "id", row.ID)
	return toCore(row)
}

// AuditRecord describes one mutation as seen by the audit worker.
type AuditRecord struct {
	Operation  string
	Event      core.Event
	OccurredAt time.Time
}

// RecordAudit appends a row to the audit trail.
func (r *SQLiteRepository) RecordAudit(ctx context.Context, rec AuditRecord) error {
	err := r.queries.CreateAuditEntry(ctx, CreateAuditEntryParams{
		Operation:  rec.Operation,
		EventID:    int64(rec.Event.ID),
		Project:    rec.Event.Project,
		Hours:      rec.Event.Hours,
		Date:       rec.Event.Date.String(),
		OccurredAt: rec.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// AuditTrail returns the recorded mutations of one event, oldest first.
func (r *SQLiteRepository) AuditTrail(ctx context.Context, id core.EventID) ([]AuditEntry, error) {
	entries, err := r.queries.ListAuditEntries(ctx, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

func toCore(row Event) (core.Event, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Event{}, fmt.Errorf("event %d: %w", row.ID, err)
	}
	return core.Event{
		ID:          core.EventID(row.ID),
		Project:     row.Project,
		Hours:       row.Hours,
		Date:        date,
		Description: row.Description,
	}, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
