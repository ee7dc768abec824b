package core

import (
	"math"
	"time"
)

// DisplayEvent is an Event placed on the calendar. Start, End and Title are
// derived on every load and never stored.
type DisplayEvent struct {
	Event
	Start time.Time
	End   time.Time
	Title string
}

// Derive places an event on the local wall clock. See DeriveIn.
func Derive(date Date, hours float64) (start, end time.Time) {
	return DeriveIn(time.Local, date, hours)
}

// DeriveIn returns midnight of date in loc and that instant with its
// wall-clock time advanced by hours. Fractional hours are kept at minute
// precision: 1.5 yields 01:30. Callers must validate hours first.
func DeriveIn(loc *time.Location, date Date, hours float64) (start, end time.Time) {
	y, m, d := date.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	minutes := int(math.Round(hours * 60))
	end = time.Date(y, m, d, 0, minutes, 0, 0, loc)
	return start, end
}

// Title formats the calendar label of an event.
func Title(project string, hours float64) string {
	return project + " - " + FormatHours(hours) + "h"
}

// Display derives the calendar view of a loaded sequence, in order.
func Display(loc *time.Location, events []Event) []DisplayEvent {
	out := make([]DisplayEvent, 0, len(events))
	for _, e := range events {
		start, end := DeriveIn(loc, e.Date, e.Hours)
		out = append(out, DisplayEvent{
			Event: e,
			Start: start,
			End:   end,
			Title: Title(e.Project, e.Hours),
		})
	}
	return out
}
