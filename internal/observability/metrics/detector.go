package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectorMetrics contains all Prometheus metrics related to the note
// detection state machine.
type DetectorMetrics struct {
	TicksTotal       *prometheus.CounterVec
	EventsTotal      *prometheus.CounterVec
	StaleResetsTotal prometheus.Counter
	LastNoteSemitone prometheus.Gauge
	registry         *prometheus.Registry
}

// NewDetectorMetrics creates a new instance of DetectorMetrics and registers
// it with the given registry.
func NewDetectorMetrics(registry *prometheus.Registry) (*DetectorMetrics, error) {
	m := &DetectorMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize detector metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detector metrics: %w", err)
	}
	return m, nil
}

func (m *DetectorMetrics) initMetrics() error {
	m.TicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_ticks_total",
		Help: "Total analysis ticks by outcome",
	}, []string{"outcome"})

	m.EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detector_events_total",
		Help: "Total detection events by type",
	}, []string{"type"})

	m.StaleResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detector_stale_resets_total",
		Help: "Total forced resets after a second of dropped samples",
	})

	m.LastNoteSemitone = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "detector_last_note_semitone",
		Help: "Semitone value of the most recently highlighted note",
	})

	return nil
}

// RecordTick increments the tick counter for the given outcome label.
func (m *DetectorMetrics) RecordTick(outcome string, staleReset bool) {
	m.TicksTotal.WithLabelValues(outcome).Inc()
	if staleReset {
		m.StaleResetsTotal.Inc()
	}
}

// RecordEvent increments the event counter for the given event type.
func (m *DetectorMetrics) RecordEvent(eventType string) {
	m.EventsTotal.WithLabelValues(eventType).Inc()
}

// SetLastNote records the semitone of the latest highlighted note.
func (m *DetectorMetrics) SetLastNote(semitone int) {
	m.LastNoteSemitone.Set(float64(semitone))
}

// Collect implements the prometheus.Collector interface.
func (m *DetectorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.TicksTotal.Collect(ch)
	m.EventsTotal.Collect(ch)
	ch <- m.StaleResetsTotal
	ch <- m.LastNoteSemitone
}

// Describe implements the prometheus.Collector interface.
func (m *DetectorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.TicksTotal.Describe(ch)
	m.EventsTotal.Describe(ch)
	ch <- m.StaleResetsTotal.Desc()
	ch <- m.LastNoteSemitone.Desc()
}
