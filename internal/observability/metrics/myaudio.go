// Package metrics provides custom Prometheus metrics for the fretwatch
// components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MyAudioMetrics contains all Prometheus metrics related to audio capture and
// the sample ring.
type MyAudioMetrics struct {
	RingFillFrames     prometheus.Gauge
	RingOverflowsTotal prometheus.Counter
	CaptureRestarts    prometheus.Counter
	AudioLevel         prometheus.Gauge
	ClippingTotal      prometheus.Counter
	DeviceSampleRate   prometheus.Gauge
	CallbackFrames     prometheus.Histogram
	registry           *prometheus.Registry
}

// NewMyAudioMetrics creates a new instance of MyAudioMetrics and registers it
// with the given registry.
func NewMyAudioMetrics(registry *prometheus.Registry) (*MyAudioMetrics, error) {
	m := &MyAudioMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize myaudio metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register myaudio metrics: %w", err)
	}
	return m, nil
}

func (m *MyAudioMetrics) initMetrics() error {
	m.RingFillFrames = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "myaudio_ring_fill_frames",
		Help: "Number of frames currently buffered in the sample ring",
	})

	m.RingOverflowsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myaudio_ring_overflows_total",
		Help: "Total number of fatal sample ring overflows",
	})

	m.CaptureRestarts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myaudio_capture_restarts_total",
		Help: "Total number of audio capture restarts",
	})

	m.AudioLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "myaudio_level",
		Help: "Most recent audio input level on a 0-100 scale",
	})

	m.ClippingTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myaudio_clipping_total",
		Help: "Total number of callback windows containing clipped samples",
	})

	m.DeviceSampleRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "myaudio_device_sample_rate_hz",
		Help: "Negotiated capture device sample rate in Hz",
	})

	m.CallbackFrames = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "myaudio_callback_frames",
		Help:    "Frames delivered per capture callback invocation",
		Buckets: prometheus.ExponentialBuckets(64, 2, 8),
	})

	return nil
}

// SetRingFill records the current ring fill level in frames.
func (m *MyAudioMetrics) SetRingFill(frames int) {
	m.RingFillFrames.Set(float64(frames))
}

// IncrementRingOverflows increments the fatal overflow counter.
func (m *MyAudioMetrics) IncrementRingOverflows() {
	m.RingOverflowsTotal.Inc()
}

// IncrementCaptureRestarts increments the capture restart counter.
func (m *MyAudioMetrics) IncrementCaptureRestarts() {
	m.CaptureRestarts.Inc()
}

// UpdateAudioLevel records the latest level reading and clipping status.
func (m *MyAudioMetrics) UpdateAudioLevel(level int, clipping bool) {
	m.AudioLevel.Set(float64(level))
	if clipping {
		m.ClippingTotal.Inc()
	}
}

// SetDeviceSampleRate records the negotiated device sample rate.
func (m *MyAudioMetrics) SetDeviceSampleRate(rate int) {
	m.DeviceSampleRate.Set(float64(rate))
}

// ObserveCallbackFrames records the frame count of one capture callback.
func (m *MyAudioMetrics) ObserveCallbackFrames(frames int) {
	m.CallbackFrames.Observe(float64(frames))
}

// Collect implements the prometheus.Collector interface.
func (m *MyAudioMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.RingFillFrames
	ch <- m.RingOverflowsTotal
	ch <- m.CaptureRestarts
	ch <- m.AudioLevel
	ch <- m.ClippingTotal
	ch <- m.DeviceSampleRate
	ch <- m.CallbackFrames
}

// Describe implements the prometheus.Collector interface.
func (m *MyAudioMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.RingFillFrames.Desc()
	ch <- m.RingOverflowsTotal.Desc()
	ch <- m.CaptureRestarts.Desc()
	ch <- m.AudioLevel.Desc()
	ch <- m.ClippingTotal.Desc()
	ch <- m.DeviceSampleRate.Desc()
	ch <- m.CallbackFrames.Desc()
}
