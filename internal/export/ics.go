// Package export writes tracked events in formats other calendar tools read.
package export

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"timetrack/internal/core"
)

const productID = "-//timetrack//event export//EN"

// UID is the stable iCalendar identifier of a stored event.
func UID(id core.EventID, domain string) string {
	return fmt.Sprintf("event-%d@%s", id, domain)
}

// ICS writes events as an iCalendar feed. Each event becomes a VEVENT
// spanning its derived start and end in loc, titled like the calendar.
// Events without an id are skipped since they have no stable UID.
func ICS(w io.Writer, loc *time.Location, domain string, events []core.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, d := range core.Display(loc, events) {
		if !d.HasID() {
			continue
		}
		ev := cal.AddEvent(UID(d.ID, domain))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(d.Start)
		ev.SetEndAt(d.End)
		ev.SetSummary(d.Title)
		if d.Description != "" {
			ev.SetDescription(d.Description)
		}
		ev.AddProperty(ical.ComponentPropertyCategories, d.Project)
	}
	return cal.SerializeTo(w)
}
