package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Form field names, shared by the creation form and the edit draft.
const (
	FieldProject     = "project"
	FieldHours       = "hours"
	FieldDate        = "date"
	FieldDescription = "description"
)

var ErrUnknownField = errors.New("unknown field")

// Draft holds the raw, unvalidated field values of an event being created or
// edited. Values stay strings until Input coerces them.
type Draft struct {
	Project     string
	Hours       string
	Date        string
	Description string
}

// DraftFrom seeds a draft with the current fields of an event.
func DraftFrom(e Event) Draft {
	return Draft{
		Project:     e.Project,
		Hours:       FormatHours(e.Hours),
		Date:        e.Date.String(),
		Description: e.Description,
	}
}

// Set mutates a single field by name.
func (d *Draft) Set(name, value string) error {
	switch name {
	case FieldProject:
		d.Project = value
	case FieldHours:
		d.Hours = value
	case FieldDate:
		d.Date = value
	case FieldDescription:
		d.Description = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Get returns a field by name.
func (d Draft) Get(name string) (string, error) {
	switch name {
	case FieldProject:
		return d.Project, nil
	case FieldHours:
		return d.Hours, nil
	case FieldDate:
		return d.Date, nil
	case FieldDescription:
		return d.Description, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Input validates the draft and coerces it into an EventInput. It enforces
// the same constraints as the form inputs: non-empty project, numeric hours
// >= 0.5 in 0.5 steps, valid date.
func (d Draft) Input() (EventInput, error) {
	if strings.TrimSpace(d.Project) == "" {
		return EventInput{}, ErrEmptyProject
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(d.Hours), 64)
	if err != nil {
		return EventInput{}, ErrInvalidHours
	}
	if err := ValidateHours(hours); err != nil {
		return EventInput{}, err
	}
	date, err := ParseDate(d.Date)
	if err != nil {
		return EventInput{}, err
	}
	return EventInput{
		Project:     d.Project,
		Hours:       hours,
		Date:        date,
		Description: d.Description,
	}, nil
}
