package processor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtoivola/fretwatch-go/internal/analysis/detector"
	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/datastore"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []datastore.NoteEvent
}

func (f *fakeStore) Open() error  { return nil }
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Save(event *datastore.NoteEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *event)
	return nil
}

func (f *fakeStore) GetRecentEvents(limit int) ([]datastore.NoteEvent, error) { return nil, nil }
func (f *fakeStore) CountByNote() ([]datastore.NoteCount, error)              { return nil, nil }
func (f *fakeStore) CountEventsSince(since time.Time) (int64, error)          { return 0, nil }

func (f *fakeStore) events() []datastore.NoteEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]datastore.NoteEvent(nil), f.saved...)
}

type fakeMQTT struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (f *fakeMQTT) IsConnected() bool                 { return true }
func (f *fakeMQTT) Disconnect()                       {}

func (f *fakeMQTT) Publish(ctx context.Context, topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeMQTT) payloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

type fakeSink struct {
	mu     sync.Mutex
	events []detector.Event
}

func (f *fakeSink) Broadcast(event detector.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeSink) received() []detector.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]detector.Event(nil), f.events...)
}

func processorSettings(interval int) *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.Name = "test-node"
	settings.Realtime.Interval = interval
	settings.Realtime.MQTT.Enabled = true
	settings.Realtime.MQTT.Topic = "fretwatch/events"
	return settings
}

func highlight(id int, note string) detector.Event {
	return detector.Event{
		ID:        fmt.Sprintf("event-%d", id),
		Type:      detector.EventHighlight,
		Time:      time.Now(),
		Note:      24,
		NoteName:  note,
		Frequency: 110.0,
		Quality:   0.95,
		Frets:     []int{-1, -1, -1, -1, 0, 5},
		StringIdx: 4,
		Fret:      0,
		Source:    "test-node",
	}
}

func clearEvent(id int) detector.Event {
	return detector.Event{
		ID:   fmt.Sprintf("event-%d", id),
		Type: detector.EventClear,
		Time: time.Now(),
	}
}

// runEvents pushes the events through a processor and waits for the
// dispatch loop to finish.
func runEvents(t *testing.T, p *Processor, eventChan chan detector.Event, events ...detector.Event) {
	t.Helper()

	for _, event := range events {
		eventChan <- event
	}

	var wg sync.WaitGroup
	quitChan := make(chan struct{})
	p.Start(&wg, quitChan)
	close(quitChan)
	wg.Wait()
}

func TestProcessor_FanOut(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	broker := &fakeMQTT{}
	sink := &fakeSink{}
	eventChan := make(chan detector.Event, 8)

	p := New(processorSettings(0), eventChan, store, broker, sink, nil)
	runEvents(t, p, eventChan, highlight(1, "A2"), clearEvent(2))

	saved := store.events()
	require.Len(t, saved, 2)
	assert.Equal(t, "highlight", saved[0].Type)
	assert.Equal(t, "A2", saved[0].Note)
	assert.Equal(t, 24, saved[0].Semitone)
	assert.Equal(t, "clear", saved[1].Type)

	payloads := broker.payloads()
	require.Len(t, payloads, 2)
	assert.Contains(t, payloads[0], `"type":"highlight"`)
	assert.Contains(t, payloads[0], `"note":"A2"`)
	assert.Contains(t, payloads[1], `"type":"clear"`)

	assert.Len(t, sink.received(), 2)
}

func TestProcessor_IntervalSuppressesRepeats(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	broker := &fakeMQTT{}
	eventChan := make(chan detector.Event, 8)

	p := New(processorSettings(60), eventChan, store, broker, nil, nil)
	runEvents(t, p, eventChan,
		highlight(1, "A2"),
		highlight(2, "A2"),
		highlight(3, "E3"))

	saved := store.events()
	require.Len(t, saved, 2)
	assert.Equal(t, "A2", saved[0].Note)
	assert.Equal(t, "E3", saved[1].Note)
	assert.Len(t, broker.payloads(), 2)
}

func TestProcessor_ClearEventsBypassInterval(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	eventChan := make(chan detector.Event, 8)

	p := New(processorSettings(60), eventChan, store, nil, nil, nil)
	runEvents(t, p, eventChan, clearEvent(1), clearEvent(2))

	assert.Len(t, store.events(), 2)
}

func TestProcessor_NilOutputs(t *testing.T) {
	t.Parallel()

	eventChan := make(chan detector.Event, 8)

	p := New(processorSettings(0), eventChan, nil, nil, nil, nil)
	runEvents(t, p, eventChan, highlight(1, "A2"), clearEvent(2))
}

func TestProcessor_MQTTDisabledSkipsPublish(t *testing.T) {
	t.Parallel()

	broker := &fakeMQTT{}
	settings := processorSettings(0)
	settings.Realtime.MQTT.Enabled = false
	eventChan := make(chan detector.Event, 8)

	p := New(settings, eventChan, nil, broker, nil, nil)
	runEvents(t, p, eventChan, highlight(1, "A2"))

	assert.Empty(t, broker.payloads())
}

func TestEventTracker(t *testing.T) {
	t.Parallel()

	tracker := NewEventTracker(time.Minute)

	assert.True(t, tracker.TrackEvent("A2", DatabaseSave))
	assert.False(t, tracker.TrackEvent("A2", DatabaseSave))
	assert.True(t, tracker.TrackEvent("A2", MQTTPublish), "actions are tracked independently")
	assert.True(t, tracker.TrackEvent("E3", DatabaseSave), "notes are tracked independently")

	tracker.ResetEvent("A2", DatabaseSave)
	assert.True(t, tracker.TrackEvent("A2", DatabaseSave))
}

func TestEventTracker_ZeroIntervalAllowsAll(t *testing.T) {
	t.Parallel()

	tracker := NewEventTracker(0)
	assert.True(t, tracker.TrackEvent("A2", DatabaseSave))
	assert.True(t, tracker.TrackEvent("A2", DatabaseSave))
}
