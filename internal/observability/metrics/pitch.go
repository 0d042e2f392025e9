package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PitchMetrics contains all Prometheus metrics related to period estimation.
type PitchMetrics struct {
	EstimationsTotal        prometheus.Counter
	InvalidEstimationsTotal prometheus.Counter
	EstimationQuality       prometheus.Histogram
	EstimationDuration      prometheus.Histogram
	DetectedFrequency       prometheus.Gauge
	registry                *prometheus.Registry
}

// NewPitchMetrics creates a new instance of PitchMetrics and registers it
// with the given registry.
func NewPitchMetrics(registry *prometheus.Registry) (*PitchMetrics, error) {
	m := &PitchMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize pitch metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pitch metrics: %w", err)
	}
	return m, nil
}

func (m *PitchMetrics) initMetrics() error {
	m.EstimationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pitch_estimations_total",
		Help: "Total number of period estimations performed",
	})

	m.InvalidEstimationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pitch_invalid_estimations_total",
		Help: "Total number of estimations without a usable periodic peak",
	})

	m.EstimationQuality = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitch_estimation_quality",
		Help:    "Normalized autocorrelation quality of valid estimations",
		Buckets: prometheus.LinearBuckets(0.5, 0.05, 11),
	})

	m.EstimationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pitch_estimation_duration_seconds",
		Help:    "Duration of a single period estimation",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
	})

	m.DetectedFrequency = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pitch_detected_frequency_hz",
		Help: "Most recently detected fundamental frequency in Hz",
	})

	return nil
}

// RecordEstimation records the outcome of one estimation run.
func (m *PitchMetrics) RecordEstimation(valid bool, quality, durationSeconds float64) {
	m.EstimationsTotal.Inc()
	m.EstimationDuration.Observe(durationSeconds)
	if valid {
		m.EstimationQuality.Observe(quality)
	} else {
		m.InvalidEstimationsTotal.Inc()
	}
}

// SetDetectedFrequency records the most recent accepted frequency.
func (m *PitchMetrics) SetDetectedFrequency(hz float64) {
	m.DetectedFrequency.Set(hz)
}

// Collect implements the prometheus.Collector interface.
func (m *PitchMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.EstimationsTotal
	ch <- m.InvalidEstimationsTotal
	ch <- m.EstimationQuality
	ch <- m.EstimationDuration
	ch <- m.DetectedFrequency
}

// Describe implements the prometheus.Collector interface.
func (m *PitchMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.EstimationsTotal.Desc()
	ch <- m.InvalidEstimationsTotal.Desc()
	ch <- m.EstimationQuality.Desc()
	ch <- m.EstimationDuration.Desc()
	ch <- m.DetectedFrequency.Desc()
}
