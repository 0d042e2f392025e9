package diagnostics

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtoivola/fretwatch-go/internal/conf"
)

func TestCollect(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Main.Name = "test-node"

	report := Collect(settings)
	require.NotNil(t, report)

	assert.Equal(t, runtime.Version(), report.Runtime.GoVersion)
	assert.Equal(t, runtime.GOOS, report.Runtime.GOOS)
	assert.Positive(t, report.Runtime.Goroutines)
	assert.False(t, report.CollectedAt.IsZero())
	require.NotNil(t, report.Config)
	assert.Equal(t, "test-node", report.Config.Main.Name)
}

func TestRedactSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Realtime.MQTT.Username = "alice"
	settings.Realtime.MQTT.Password = "hunter2"
	settings.Output.MySQL.Password = "dbsecret"
	settings.Output.MySQL.Username = "fretwatch"
	settings.Sentry.DSN = "https://key@sentry.example.com/1"

	redacted := redactSettings(settings)

	assert.Equal(t, "[redacted]", redacted.Realtime.MQTT.Password)
	assert.Equal(t, "[redacted]", redacted.Realtime.MQTT.Username)
	assert.Equal(t, "[redacted]", redacted.Output.MySQL.Password)
	assert.Equal(t, "[redacted]", redacted.Sentry.DSN)
	assert.Equal(t, "fretwatch", redacted.Output.MySQL.Username, "non-secret fields stay intact")

	// The original is left untouched.
	assert.Equal(t, "hunter2", settings.Realtime.MQTT.Password)
}

func TestRedactSettings_Nil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, redactSettings(nil))
}

func TestSystemReport_YAML(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Main.Name = "yaml-node"
	settings.Realtime.MQTT.Password = "secret"

	data, err := Collect(settings).YAML()
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "collected_at:")
	assert.Contains(t, text, "go_version:")
	assert.Contains(t, text, "yaml-node")
	assert.NotContains(t, text, "secret")
}
