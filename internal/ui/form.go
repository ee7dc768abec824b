package ui

import (
	"context"
	"sync"

	"timetrack/internal/core"
	tlog "timetrack/internal/log"
)

// DefaultHours is the hours value of a fresh form.
const DefaultHours = "1"

// Form collects the fields of a new event.
type Form struct {
	store EventStore
	opts  options

	mu    sync.Mutex
	draft core.Draft
	busy  bool
}

// NewForm returns a form holding its defaults: no project, one hour, today.
func NewForm(store EventStore, opts ...Option) *Form {
	f := &Form{
		store: store,
		opts:  newOptions(tlog.ComponentUI, opts),
	}
	f.draft = f.defaults()
	return f
}

func (f *Form) defaults() core.Draft {
	return core.Draft{
		Hours: DefaultHours,
		Date:  core.Today(f.opts.now().In(f.opts.loc)).String(),
	}
}

// Draft returns the current field values.
func (f *Form) Draft() core.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form) ChangeField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrMutationInFlight
	}
	return f.draft.Set(name, value)
}

// Submit validates the fields and creates the event. On success the form
// is reset to its defaults with today's date recomputed; on failure the
// fields are kept.
func (f *Form) Submit(ctx context.Context) (core.Event, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return core.Event{}, ErrMutationInFlight
	}
	in, err := f.draft.Input()
	if err != nil {
		f.mu.Unlock()
		return core.Event{}, err
	}
	f.busy = true
	f.mu.Unlock()

	snap, err := f.store.Create(ctx, in)

	f.mu.Lock()
	f.busy = false
	if err != nil {
		f.mu.Unlock()
		f.opts.logger.ErrorContext(ctx, "Failed to create event", tlog.FieldProject, in.Project, tlog.FieldError, err)
		f.opts.notifier.Error(NoticeCreateFailed, err)
		return core.Event{}, err
	}
	f.draft = f.defaults()
	f.mu.Unlock()

	if snap.ReloadErr != nil {
		f.opts.logger.WarnContext(ctx, "Failed to reload events after create", tlog.FieldError, snap.ReloadErr)
	}
	f.opts.notifier.Success(NoticeCreated)
	return snap.Changed, nil
}
