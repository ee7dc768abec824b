package ui

import (
	"context"
	"fmt"
	"sync"

	"timetrack/internal/core"
	tlog "timetrack/internal/log"
)

// State is the selection state of the calendar.
type State int

const (
	Idle State = iota
	Viewing
	Editing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Calendar shows loaded events and drives the view, edit and delete flow of
// a single selected event:
//
//	Idle --Select--> Viewing --StartEdit--> Editing
//	Editing --CancelEdit--> Viewing
//	Viewing|Editing --Delete ok--> Idle
//	Editing --SubmitEdit ok--> Idle
//	any --Close--> Idle
//
// Only one update or delete may be in flight at a time.
type Calendar struct {
	store EventStore
	opts  options

	mu       sync.Mutex
	state    State
	events   []core.DisplayEvent
	selected core.Event
	draft    core.Draft
	busy     bool
}

func NewCalendar(store EventStore, opts ...Option) *Calendar {
	return &Calendar{
		store: store,
		opts:  newOptions(tlog.ComponentUI, opts),
	}
}

// Initialize loads the events. On failure the list is left empty; the error
// is logged and returned.
func (c *Calendar) Initialize(ctx context.Context) error {
	events, err := c.store.List(ctx)
	if err != nil {
		c.opts.logger.ErrorContext(ctx, "Failed to load events", tlog.FieldError, err)
		c.setEvents(nil)
		return err
	}
	c.setEvents(events)
	return nil
}

// Events returns the display events of the last load.
func (c *Calendar) Events() []core.DisplayEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.DisplayEvent(nil), c.events...)
}

// Find returns the loaded event with the given id.
func (c *Calendar) Find(id core.EventID) (core.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.ID == id {
			return e.Event, true
		}
	}
	return core.Event{}, false
}

func (c *Calendar) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selected returns the event being viewed or edited.
func (c *Calendar) Selected() (core.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.state != Idle
}

// Draft returns the pending edit values.
func (c *Calendar) Draft() core.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Select views e from any state. The calendar keeps its own copy; later
// changes to the caller's value do not leak in.
func (c *Calendar) Select(e core.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrMutationInFlight
	}
	c.selected = e
	c.draft = core.DraftFrom(e)
	c.state = Viewing
	return nil
}

func (c *Calendar) StartEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrMutationInFlight
	}
	if c.state != Viewing {
		return fmt.Errorf("%w: start edit while %s", ErrInvalidTransition, c.state)
	}
	c.state = Editing
	return nil
}

// ChangeField sets one draft field. The selected event is untouched until
// the edit is submitted.
func (c *Calendar) ChangeField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrMutationInFlight
	}
	if c.state != Editing {
		return fmt.Errorf("%w: change field while %s", ErrInvalidTransition, c.state)
	}
	return c.draft.Set(name, value)
}

// CancelEdit returns to Viewing and discards the draft.
func (c *Calendar) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrMutationInFlight
	}
	if c.state != Editing {
		return fmt.Errorf("%w: cancel edit while %s", ErrInvalidTransition, c.state)
	}
	c.draft = core.DraftFrom(c.selected)
	c.state = Viewing
	return nil
}

// SubmitEdit validates the draft and sends it as a full replacement of the
// selected event. An invalid draft never reaches the store.
func (c *Calendar) SubmitEdit(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	if c.state != Editing {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: submit edit while %s", ErrInvalidTransition, state)
	}
	in, err := c.draft.Input()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.selected.HasID() {
		c.mu.Unlock()
		return ErrMissingID
	}
	id := c.selected.ID
	c.busy = true
	c.mu.Unlock()

	snap, err := c.store.Update(ctx, id, in)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.mu.Unlock()
		c.opts.logger.ErrorContext(ctx, "Failed to update event", tlog.FieldEventID, id, tlog.FieldError, err)
		c.opts.notifier.Error(NoticeUpdateFailed, err)
		return err
	}
	c.applySnapshotLocked(ctx, snap.Events, snap.ReloadErr)
	c.resetLocked()
	c.mu.Unlock()

	c.opts.notifier.Success(NoticeUpdated)
	return nil
}

// Delete removes the selected event. On failure the state is unchanged.
func (c *Calendar) Delete(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	if c.state != Viewing && c.state != Editing {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: delete while %s", ErrInvalidTransition, state)
	}
	if !c.selected.HasID() {
		c.mu.Unlock()
		return ErrMissingID
	}
	id := c.selected.ID
	c.busy = true
	c.mu.Unlock()

	snap, err := c.store.Remove(ctx, id)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.mu.Unlock()
		c.opts.logger.ErrorContext(ctx, "Failed to delete event", tlog.FieldEventID, id, tlog.FieldError, err)
		c.opts.notifier.Error(NoticeDeleteFailed, err)
		return err
	}
	c.applySnapshotLocked(ctx, snap.Events, snap.ReloadErr)
	c.resetLocked()
	c.mu.Unlock()

	c.opts.notifier.Success(NoticeDeleted)
	return nil
}

// Close dismisses the selection and drops pending edits.
func (c *Calendar) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Calendar) resetLocked() {
	c.state = Idle
	c.selected = core.Event{}
	c.draft = core.Draft{}
}

// applySnapshotLocked replaces the events with a reload. When the reload
// failed the previous list is kept.
func (c *Calendar) applySnapshotLocked(ctx context.Context, events []core.Event, reloadErr error) {
	if reloadErr != nil {
		c.opts.logger.WarnContext(ctx, "Failed to reload events after change", tlog.FieldError, reloadErr)
		return
	}
	c.events = core.Display(c.opts.loc, events)
}

func (c *Calendar) setEvents(events []core.Event) {
	display := core.Display(c.opts.loc, events)
	c.mu.Lock()
	c.events = display
	c.mu.Unlock()
}
