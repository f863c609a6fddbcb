package core

import "fmt"

// EventType represents the type of change observed in a notes directory.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a note.
type Event struct {
	Type      EventType `json:"type" cbor:"type"`
	ID        string    `json:"id" cbor:"id"`
	Timestamp int64     `json:"timestamp" cbor:"timestamp"` // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
