package store

import (
	"context"
	"errors"

	"timetrack/internal/core"
)

// ErrNotFound is returned when no event has the requested id.
var ErrNotFound = errors.New("event not found")

// Ports for event persistence.
type (
	EventReader interface {
		// List returns every stored event in insertion order.
		List(ctx context.Context) ([]core.Event, error)
		Get(ctx context.Context, id core.EventID) (core.Event, error)
	}

	EventWriter interface {
		// Create assigns a fresh id and stores the event.
		Create(ctx context.Context, in core.EventInput) (core.Event, error)
		// Update replaces the editable fields of an existing event.
		Update(ctx context.Context, id core.EventID, in core.EventInput) (core.Event, error)
		// Delete removes an event and returns it as it was stored.
		Delete(ctx context.Context, id core.EventID) (core.Event, error)
	}

	EventRepository interface {
		EventReader
		EventWriter
	}
)
