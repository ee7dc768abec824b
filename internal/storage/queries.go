package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Event is a row of the events table.
type Event struct {
	ID          int64
	Project     string
	Hours       float64
	Date        string
	Description string
}

// AuditEntry is a row of the event_audit table.
type AuditEntry struct {
	ID         int64
	Operation  string
	EventID    int64
	Project    string
	Hours      float64
	Date       string
	OccurredAt time.Time
}

const eventColumns = `id, project, hours, date, description`

func scanEvent(row interface{ Scan(...interface{}) error }) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Project, &e.Hours, &e.Date, &e.Description)
	return e, err
}

const listEvents = `SELECT ` + eventColumns + ` FROM events ORDER BY id`

func (q *Queries) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getEvent = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

func (q *Queries) GetEvent(ctx context.Context, id int64) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEvent, id))
}

type CreateEventParams struct {
	Project     string
	Hours       float64
	Date        string
	Description string
}

const createEvent = `INSERT INTO events (project, hours, date, description)
VALUES (?, ?, ?, ?)
RETURNING ` + eventColumns

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent, arg.Project, arg.Hours, arg.Date, arg.Description)
	return scanEvent(row)
}

type UpdateEventParams struct {
	ID          int64
	Project     string
	Hours       float64
	Date        string
	Description string
}

const updateEvent = `UPDATE events
SET project = ?, hours = ?, date = ?, description = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + eventColumns

func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, updateEvent, arg.Project, arg.Hours, arg.Date, arg.Description, arg.ID)
	return scanEvent(row)
}

const deleteEvent = `DELETE FROM events WHERE id = ? RETURNING ` + eventColumns

func (q *Queries) DeleteEvent(ctx context.Context, id int64) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, deleteEvent, id))
}

type CreateAuditEntryParams struct {
	Operation  string
	EventID    int64
	Project    string
	Hours      float64
	Date       string
	OccurredAt time.Time
}

const createAuditEntry = `INSERT INTO event_audit (operation, event_id, project, hours, date, occurred_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAuditEntry(ctx context.Context, arg CreateAuditEntryParams) error {
	_, err := q.db.ExecContext(ctx, createAuditEntry,
		arg.Operation, arg.EventID, arg.Project, arg.Hours, arg.Date, arg.OccurredAt.UTC().Format(time.RFC3339Nano))
	return err
}

const listAuditEntries = `SELECT id, operation, event_id, project, hours, date, CAST(occurred_at AS TEXT)
FROM event_audit WHERE event_id = ? ORDER BY id`

func (q *Queries) ListAuditEntries(ctx context.Context, eventID int64) ([]AuditEntry, error) {
	rows, err := q.db.QueryContext(ctx, listAuditEntries, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AuditEntry{}
	for rows.Next() {
		var a AuditEntry
		var occurred string
		if err := rows.Scan(&a.ID, &a.Operation, &a.EventID, &a.Project, &a.Hours, &a.Date, &occurred); err != nil {
			return nil, err
		}
		if a.OccurredAt, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, fmt.Errorf("audit entry %d: occurred_at: %w", a.ID, err)
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
