// Package ui holds the view controllers of the time tracker: the calendar
// with its selection and edit flow, the creation form and the hours report.
// They are front-end agnostic; the terminal client drives them.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"timetrack/internal/client"
	"timetrack/internal/core"
	tlog "timetrack/internal/log"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrMissingID         = errors.New("event has no id")
	ErrMutationInFlight  = errors.New("another change is still in progress")
)

// User-facing notices.
const (
	NoticeUpdated      = "Event updated successfully!"
	NoticeUpdateFailed = "Error updating event"
	NoticeDeleted      = "Event deleted successfully!"
	NoticeDeleteFailed = "Error deleting event"
	NoticeCreated      = "Event created successfully!"
	NoticeCreateFailed = "Error creating event"
)

// Notifier shows the outcome of a mutation to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string, err error)
}

// EventStore is the read-after-write view of the event store.
// *client.Session implements it.
type EventStore interface {
	List(ctx context.Context) ([]core.Event, error)
	Create(ctx context.Context, in core.EventInput) (client.Snapshot, error)
	Update(ctx context.Context, id core.EventID, in core.EventInput) (client.Snapshot, error)
	Remove(ctx context.Context, id core.EventID) (client.Snapshot, error)
}

// WriterNotifier prints notices, one per line.
type WriterNotifier struct {
	Out io.Writer
	// Verbose appends the underlying error to failure notices.
	Verbose bool
}

func (n WriterNotifier) Success(msg string) {
	fmt.Fprintln(n.Out, msg)
}

func (n WriterNotifier) Error(msg string, err error) {
	if n.Verbose && err != nil {
		fmt.Fprintf(n.Out, "%s: %v\n", msg, err)
		return
	}
	fmt.Fprintln(n.Out, msg)
}

type discardNotifier struct{}

func (discardNotifier) Success(string)       {}
func (discardNotifier) Error(string, error) {}

type options struct {
	notifier Notifier
	logger   *tlog.Logger
	loc      *time.Location
	now      func() time.Time
}

type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithLogger(l *tlog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLocation sets the wall clock events are placed on.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

// WithClock replaces time.Now, which decides the form's default date.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(component string, opts []Option) options {
	o := options{
		notifier: discardNotifier{},
		loc:      time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = tlog.FromContext(context.Background())
	}
	o.logger = o.logger.WithComponent(component)
	return o
}
