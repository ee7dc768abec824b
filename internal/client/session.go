package client

import (
	"context"

	"timetrack/internal/core"
)

// Snapshot is the outcome of a mutation followed by a reload.
type Snapshot struct {
	// Changed is the event returned by the mutation. For Remove it is zero.
	Changed core.Event
	// Events is the reloaded list, nil when the reload failed.
	Events []core.Event
	// ReloadErr is set when the mutation succeeded but the reload did not.
	ReloadErr error
}

// Store is the subset of *Client that Session needs.
type Store interface {
	List(ctx context.Context) ([]core.Event, error)
	Create(ctx context.Context, in core.EventInput) (core.Event, error)
	Update(ctx context.Context, id core.EventID, in core.EventInput) (core.Event, error)
	Remove(ctx context.Context, id core.EventID) error
}

// Session reloads the full event list after every successful mutation, so
// the caller always sees the store's view. A failed reload never turns a
// successful mutation into an error.
type Session struct {
	store Store
}

func NewSession(store Store) *Session {
	return &Session{store: store}
}

func (s *Session) List(ctx context.Context) ([]core.Event, error) {
	return s.store.List(ctx)
}

func (s *Session) Create(ctx context.Context, in core.EventInput) (Snapshot, error) {
	e, err := s.store.Create(ctx, in)
	if err != nil {
		return Snapshot{}, err
	}
	return s.reload(ctx, e), nil
}

func (s *Session) Update(ctx context.Context, id core.EventID, in core.EventInput) (Snapshot, error) {
	e, err := s.store.Update(ctx, id, in)
	if err != nil {
		return Snapshot{}, err
	}
	return s.reload(ctx, e), nil
}

func (s *Session) Remove(ctx context.Context, id core.EventID) (Snapshot, error) {
	if err := s.store.Remove(ctx, id); err != nil {
		return Snapshot{}, err
	}
	return s.reload(ctx, core.Event{}), nil
}

func (s *Session) reload(ctx context.Context, changed core.Event) Snapshot {
	events, err := s.store.List(ctx)
	if err != nil {
		return Snapshot{Changed: changed, ReloadErr: err}
	}
	return Snapshot{Changed: changed, Events: events}
}
