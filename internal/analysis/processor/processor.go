// Package processor fans detection events out to the log, the datastore,
// MQTT and any connected API clients.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jtoivola/fretwatch-go/internal/analysis/detector"
	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/datastore"
	"github.com/jtoivola/fretwatch-go/internal/logging"
	"github.com/jtoivola/fretwatch-go/internal/mqtt"
	"github.com/jtoivola/fretwatch-go/internal/observability"
)

// EventSink receives every event for live delivery to connected clients.
type EventSink interface {
	Broadcast(event detector.Event)
}

// Processor consumes detector events and dispatches them to the configured
// outputs. Every output is optional.
type Processor struct {
	Settings     *conf.Settings
	Ds           datastore.Interface
	MqttClient   mqtt.Client
	Sink         EventSink
	Metrics      *observability.Metrics
	EventTracker *EventTracker

	events <-chan detector.Event
	logger *slog.Logger
}

// New wires a processor to the detector event stream. ds, mqttClient, sink
// and m may each be nil.
func New(settings *conf.Settings, events <-chan detector.Event, ds datastore.Interface,
	mqttClient mqtt.Client, sink EventSink, m *observability.Metrics) *Processor {
	logger := logging.ForService("processor")
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		Settings:     settings,
		Ds:           ds,
		MqttClient:   mqttClient,
		Sink:         sink,
		Metrics:      m,
		EventTracker: NewEventTracker(time.Duration(settings.Realtime.Interval) * time.Second),
		events:       events,
		logger:       logger,
	}
}

// Start launches the dispatch loop. It runs until quitChan closes, then
// drains any buffered events before returning.
func (p *Processor) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case event := <-p.events:
				p.handleEvent(&event)
			case <-quitChan:
				p.drain()
				return
			}
		}
	}()
}

// drain processes events still buffered in the channel without blocking.
func (p *Processor) drain() {
	for {
		select {
		case event := <-p.events:
			p.handleEvent(&event)
		default:
			return
		}
	}
}

func (p *Processor) handleEvent(event *detector.Event) {
	if p.Metrics != nil {
		p.Metrics.Detector.RecordEvent(event.Type.String())
	}

	switch event.Type {
	case detector.EventHighlight:
		p.handleHighlight(event)
	case detector.EventClear:
		p.handleClear(event)
	}

	if p.Sink != nil {
		p.Sink.Broadcast(*event)
	}
}

func (p *Processor) handleHighlight(event *detector.Event) {
	if p.EventTracker.TrackEvent(event.NoteName, LogNote) {
		p.logger.Info("note detected",
			"note", event.NoteName,
			"frequency", event.Frequency,
			"quality", event.Quality,
			"string", event.StringIdx,
			"fret", event.Fret)
	}

	if p.Ds != nil && p.EventTracker.TrackEvent(event.NoteName, DatabaseSave) {
		if err := p.Ds.Save(noteEventRecord(event)); err != nil {
			p.logger.Error("failed to save event", "note", event.NoteName, "error", err)
		}
	}

	if p.publishEnabled() && p.EventTracker.TrackEvent(event.NoteName, MQTTPublish) {
		p.publish(event)
	}
}

// handleClear persists and publishes every clear event; the detector already
// guarantees at most one per sounding period.
func (p *Processor) handleClear(event *detector.Event) {
	p.logger.Debug("note cleared")

	if p.Ds != nil {
		if err := p.Ds.Save(noteEventRecord(event)); err != nil {
			p.logger.Error("failed to save clear event", "error", err)
		}
	}

	if p.publishEnabled() {
		p.publish(event)
	}
}

func (p *Processor) publishEnabled() bool {
	return p.MqttClient != nil && p.Settings.Realtime.MQTT.Enabled
}

func (p *Processor) publish(event *detector.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.MqttClient.Publish(ctx, p.Settings.Realtime.MQTT.Topic, string(payload)); err != nil {
		p.logger.Error("failed to publish event", "topic", p.Settings.Realtime.MQTT.Topic, "error", err)
	}
}

// noteEventRecord converts a detection event into its database row.
func noteEventRecord(event *detector.Event) *datastore.NoteEvent {
	return &datastore.NoteEvent{
		EventID:   event.ID,
		Time:      event.Time,
		Type:      event.Type.String(),
		Note:      event.NoteName,
		Semitone:  int(event.Note),
		Frequency: event.Frequency,
		Quality:   event.Quality,
		StringIdx: event.StringIdx,
		Fret:      event.Fret,
		Source:    event.Source,
	}
}
