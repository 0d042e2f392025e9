package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains all Prometheus metrics related to note event
// persistence.
type DatastoreMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration prometheus.Histogram
	EventsSavedTotal  prometheus.Counter
	registry          *prometheus.Registry
}

// NewDatastoreMetrics creates a new instance of DatastoreMetrics and
// registers it with the given registry.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize datastore metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() error {
	m.OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_operations_total",
		Help: "Total datastore operations by operation and status",
	}, []string{"operation", "status"})

	m.OperationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "datastore_operation_duration_seconds",
		Help:    "Duration of datastore operations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	m.EventsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "datastore_note_events_saved_total",
		Help: "Total note events written to the datastore",
	})

	return nil
}

// RecordOperation records one datastore operation with its outcome.
func (m *DatastoreMetrics) RecordOperation(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.Observe(duration.Seconds())
}

// IncrementEventsSaved increments the saved note event counter.
func (m *DatastoreMetrics) IncrementEventsSaved() {
	m.EventsSavedTotal.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.OperationsTotal.Collect(ch)
	ch <- m.OperationDuration
	ch <- m.EventsSavedTotal
}

// Describe implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.OperationsTotal.Describe(ch)
	ch <- m.OperationDuration.Desc()
	ch <- m.EventsSavedTotal.Desc()
}
