package detector

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jtoivola/fretwatch-go/internal/guitar"
)

// EventType distinguishes the two event kinds crossing the detector boundary.
type EventType int

const (
	// EventHighlight announces a newly sounding note with its fret positions.
	EventHighlight EventType = iota
	// EventClear announces that no note is sounding anymore.
	EventClear
)

// String returns the lowercase event type name used in logs and payloads.
func (t EventType) String() string {
	switch t {
	case EventHighlight:
		return "highlight"
	case EventClear:
		return "clear"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the event type as its lowercase name.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Event is a single detection event. Highlight events carry the note and its
// fret mapping; Clear events carry only identity and time.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	// Note fields, zero valued on Clear events.
	Note      guitar.Semitone `json:"semitone,omitempty"`
	NoteName  string          `json:"note,omitempty"`
	Frequency float64         `json:"frequency,omitempty"`
	Quality   float64         `json:"quality,omitempty"`

	// Frets holds one entry per string, NotPlayable where the note cannot be
	// fingered. StringIdx/Fret point at the lowest playable position.
	Frets     []int `json:"frets,omitempty"`
	StringIdx int   `json:"string"`
	Fret      int   `json:"fret"`

	// Source is the node name from the configuration.
	Source string `json:"source,omitempty"`
}

// newEvent stamps identity and time onto an event.
func newEvent(eventType EventType, source string) Event {
	return Event{
		ID:     uuid.New().String(),
		Type:   eventType,
		Time:   time.Now(),
		Source: source,
	}
}
