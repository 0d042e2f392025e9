package observability

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestNewMetrics_AllCollectorsRegistered(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	// Touch one metric per collector so every family appears in Gather.
	m.MyAudio.SetRingFill(123)
	m.Pitch.RecordEstimation(true, 0.97, 0.002)
	m.Detector.RecordTick("highlighted", false)
	m.MQTT.UpdateConnectionStatus(true)
	m.Datastore.RecordOperation("save", nil, 3*time.Millisecond)
	m.HTTP.RecordRequest("GET", "/api/v1/state", 200, time.Millisecond)

	families, err := m.Gather()
	require.NoError(t, err)

	for _, name := range []string{
		"myaudio_ring_fill_frames",
		"pitch_estimations_total",
		"detector_ticks_total",
		"mqtt_connection_status",
		"datastore_operations_total",
		"http_requests_total",
	} {
		findFamily(t, families, name)
	}
}

func TestMetrics_CounterValues(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Pitch.RecordEstimation(true, 0.95, 0.001)
	m.Pitch.RecordEstimation(false, 0, 0.001)
	m.Pitch.RecordEstimation(false, 0, 0.001)

	families, err := m.Gather()
	require.NoError(t, err)

	total := findFamily(t, families, "pitch_estimations_total")
	require.Len(t, total.GetMetric(), 1)
	assert.InDelta(t, 3, total.GetMetric()[0].GetCounter().GetValue(), 0.001)

	invalid := findFamily(t, families, "pitch_invalid_estimations_total")
	assert.InDelta(t, 2, invalid.GetMetric()[0].GetCounter().GetValue(), 0.001)
}

func TestMetrics_TickOutcomeLabels(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Detector.RecordTick("highlighted", false)
	m.Detector.RecordTick("highlighted", false)
	m.Detector.RecordTick("no_estimate", true)

	families, err := m.Gather()
	require.NoError(t, err)

	ticks := findFamily(t, families, "detector_ticks_total")
	byLabel := map[string]float64{}
	for _, metric := range ticks.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				byLabel[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.InDelta(t, 2, byLabel["highlighted"], 0.001)
	assert.InDelta(t, 1, byLabel["no_estimate"], 0.001)

	resets := findFamily(t, families, "detector_stale_resets_total")
	assert.InDelta(t, 1, resets.GetMetric()[0].GetCounter().GetValue(), 0.001)
}
