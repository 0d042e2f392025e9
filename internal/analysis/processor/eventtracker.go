package processor

import (
	"sync"
	"time"
)

// Action identifies a downstream consumer of note events.
type Action int

const (
	// DatabaseSave persists the event through the datastore.
	DatabaseSave Action = iota
	// LogNote writes the detection to the application log.
	LogNote
	// MQTTPublish delivers the event to the configured broker topic.
	MQTTPublish
)

// BehaviorFunc decides whether an event may pass given the time of the last
// accepted event for the same note.
type BehaviorFunc func(lastEventTime time.Time, timeout time.Duration) bool

// ActionHandler rate limits one action, tracking the last accepted event per
// note name.
type ActionHandler struct {
	LastEventTime map[string]time.Time
	Timeout       time.Duration
	BehaviorFunc  BehaviorFunc
	Mutex         sync.Mutex
}

// NewActionHandler creates a handler with the given timeout and behavior.
func NewActionHandler(timeout time.Duration, behaviorFunc BehaviorFunc) *ActionHandler {
	return &ActionHandler{
		LastEventTime: make(map[string]time.Time),
		Timeout:       timeout,
		BehaviorFunc:  behaviorFunc,
	}
}

// ShouldHandleEvent reports whether an event for the note may be processed
// and records the acceptance time when it may.
func (h *ActionHandler) ShouldHandleEvent(note string) bool {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	lastTime, exists := h.LastEventTime[note]
	if !exists || h.BehaviorFunc(lastTime, h.Timeout) {
		h.LastEventTime[note] = time.Now()
		return true
	}
	return false
}

// ResetEvent clears the tracked time for a note.
func (h *ActionHandler) ResetEvent(note string) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()
	delete(h.LastEventTime, note)
}

// StandardEventBehavior allows an event once the timeout has elapsed since
// the last accepted one.
func StandardEventBehavior(lastEventTime time.Time, timeout time.Duration) bool {
	return time.Since(lastEventTime) >= timeout
}

// EventTracker rate limits note events per action. A zero interval disables
// the limiting.
type EventTracker struct {
	Handlers map[Action]*ActionHandler
	Mutex    sync.Mutex
}

// NewEventTracker creates a tracker applying the same interval to every
// action.
func NewEventTracker(interval time.Duration) *EventTracker {
	return &EventTracker{
		Handlers: map[Action]*ActionHandler{
			DatabaseSave: NewActionHandler(interval, StandardEventBehavior),
			LogNote:      NewActionHandler(interval, StandardEventBehavior),
			MQTTPublish:  NewActionHandler(interval, StandardEventBehavior),
		},
	}
}

// TrackEvent reports whether an event for the note may pass to the given
// action.
func (et *EventTracker) TrackEvent(note string, action Action) bool {
	et.Mutex.Lock()
	handler, exists := et.Handlers[action]
	et.Mutex.Unlock()
	if !exists {
		return false
	}
	return handler.ShouldHandleEvent(note)
}

// ResetEvent clears the tracked state for a note and action.
func (et *EventTracker) ResetEvent(note string, action Action) {
	et.Mutex.Lock()
	defer et.Mutex.Unlock()

	if handler, exists := et.Handlers[action]; exists {
		handler.ResetEvent(note)
	}
}
