package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains all Prometheus metrics related to the API server.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	SSEClients      prometheus.Gauge
	WSClients       prometheus.Gauge
	registry        *prometheus.Registry
}

// NewHTTPMetrics creates a new instance of HTTPMetrics and registers it with
// the given registry.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() error {
	m.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	m.RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP request handling",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	m.SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_sse_clients",
		Help: "Number of connected SSE event stream clients",
	})

	m.WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_ws_clients",
		Help: "Number of connected websocket audio level clients",
	})

	return nil
}

// RecordRequest records one handled HTTP request.
func (m *HTTPMetrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.Observe(duration.Seconds())
}

// AddSSEClient adjusts the SSE client gauge by the given delta.
func (m *HTTPMetrics) AddSSEClient(delta int) {
	m.SSEClients.Add(float64(delta))
}

// AddWSClient adjusts the websocket client gauge by the given delta.
func (m *HTTPMetrics) AddWSClient(delta int) {
	m.WSClients.Add(float64(delta))
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RequestsTotal.Collect(ch)
	ch <- m.RequestDuration
	ch <- m.SSEClients
	ch <- m.WSClients
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RequestsTotal.Describe(ch)
	ch <- m.RequestDuration.Desc()
	ch <- m.SSEClients.Desc()
	ch <- m.WSClients.Desc()
}
