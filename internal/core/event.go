package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and form format of an event date.
const DateLayout = "2006-01-02"

// MinHours is the smallest loggable amount; hours move in steps of MinHours.
const MinHours = 0.5

// MaxHours bounds a single event to one year so that its end instant stays
// representable at minute precision.
const MaxHours = 366 * 24

type (
	// EventID is assigned by the event store. The zero value means "not saved yet".
	EventID int64

	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	// Event is a single logged time entry.
	Event struct {
		ID          EventID `json:"id,omitempty"`
		Project     string  `json:"project"`
		Hours       float64 `json:"hours"`
		Date        Date    `json:"date"`
		Description string  `json:"description"`
	}

	// EventInput carries the editable fields of an event. It is the body of a
	// create request and the full-replacement patch of an update.
	EventInput struct {
		Project     string  `json:"project"`
		Hours       float64 `json:"hours"`
		Date        Date    `json:"date"`
		Description string  `json:"description"`
	}
)

var (
	ErrEmptyProject = errors.New("project is required")
	ErrInvalidHours = errors.New("hours must be a multiple of 0.5 between 0.5 and 8784")
	ErrInvalidDate  = errors.New("date must be a valid YYYY-MM-DD calendar date")
)

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Overflowing days such as 2024-02-30
// are rejected.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date of the given clock time.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, m, d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidateHours checks the half-hour granularity rule and the MaxHours bound.
func ValidateHours(h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) || h < MinHours || h > MaxHours {
		return ErrInvalidHours
	}
	if steps := h / MinHours; steps != math.Trunc(steps) {
		return ErrInvalidHours
	}
	return nil
}

// FormatHours prints hours in their shortest form: 2, 1.5, 7.25.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// HasID reports whether the store has assigned an identifier.
func (e Event) HasID() bool {
	return e.ID != 0
}

// Input returns the editable fields of the event.
func (e Event) Input() EventInput {
	return EventInput{
		Project:     e.Project,
		Hours:       e.Hours,
		Date:        e.Date,
		Description: e.Description,
	}
}

// Apply overwrites the editable fields with in, keeping the identifier.
func (e Event) Apply(in EventInput) Event {
	e.Project = in.Project
	e.Hours = in.Hours
	e.Date = in.Date
	e.Description = in.Description
	return e
}

func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Project) == "" {
		return ErrEmptyProject
	}
	if err := ValidateHours(in.Hours); err != nil {
		return err
	}
	return in.Date.Validate()
}

func (e EventID) String() string {
	return strconv.FormatInt(int64(e), 10)
}

// ParseEventID parses a path or argument identifier.
func ParseEventID(s string) (EventID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return EventID(id), nil
}
