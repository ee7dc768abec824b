package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"timetrack/internal/core"
)

// Operation names carried by EventChangedMessage.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// EventChangedMessage announces a committed mutation of the event store.
// It carries the event as it was after the change (before it, for deletes).
type EventChangedMessage struct {
	Operation string       `json:"operation"`
	EventID   core.EventID `json:"event_id"`
	Project   string       `json:"project"`
	Hours     float64      `json:"hours"`
	Date      core.Date    `json:"date"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewEventChangedMessage(op string, e core.Event) *EventChangedMessage {
	return &EventChangedMessage{
		Operation: op,
		EventID:   e.ID,
		Project:   e.Project,
		Hours:     e.Hours,
		Date:      e.Date,
		Timestamp: time.Now(),
	}
}

// Event rebuilds the event snapshot carried by the message.
func (m *EventChangedMessage) Event() core.Event {
	return core.Event{ID: m.EventID, Project: m.Project, Hours: m.Hours, Date: m.Date}
}

func (m *EventChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EventChangedMessageFromJSON(data []byte) (*EventChangedMessage, error) {
	var msg EventChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Operation {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	if msg.EventID <= 0 {
		return nil, fmt.Errorf("missing event id")
	}
	return &msg, nil
}
