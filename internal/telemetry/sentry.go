// Package telemetry provides opt-in crash reporting through Sentry. Nothing
// is sent unless the user has enabled it in the configuration.
package telemetry

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/errors"
	"github.com/jtoivola/fretwatch-go/internal/logging"
)

var (
	enabled atomic.Bool
	logger  *slog.Logger
)

// Init configures the Sentry SDK and hooks it into the error builder. It is
// a no-op when crash reporting is disabled in the settings.
func Init(settings *conf.Settings) error {
	return initWithTransport(settings, nil)
}

// initWithTransport allows tests to substitute the HTTP transport.
func initWithTransport(settings *conf.Settings, transport http.RoundTripper) error {
	logger = logging.ForService("telemetry")
	if logger == nil {
		logger = slog.Default()
	}

	if !settings.Sentry.Enabled {
		logger.Info("crash reporting is disabled (opt-in required)")
		return nil
	}

	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		Debug:            settings.Sentry.Debug,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		HTTPTransport:    transport,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
	})

	errors.AddErrorHook(captureEnhancedError)
	enabled.Store(true)
	logger.Info("crash reporting enabled")
	return nil
}

// scrubEvent strips identifying fields before an event leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if event.Contexts != nil {
		delete(event.Contexts, "device")
	}
	return event
}

// captureEnhancedError forwards a built error to Sentry with its component
// and category as tags and its context as extra data.
func captureEnhancedError(ee *errors.EnhancedError) {
	if !enabled.Load() || ee.IsReported() {
		return
	}
	ee.MarkReported()

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		for key, value := range ee.GetContext() {
			scope.SetExtra(key, fmt.Sprintf("%v", value))
		}
		sentry.CaptureException(ee)
	})
}

// CaptureMessage sends a plain informational message.
func CaptureMessage(message string) {
	if !enabled.Load() {
		return
	}
	sentry.CaptureMessage(message)
}

// Enabled reports whether crash reporting is active.
func Enabled() bool {
	return enabled.Load()
}

// Flush waits for queued events to be delivered, bounded by the timeout.
// Call before process exit.
func Flush(timeout time.Duration) {
	if enabled.Load() {
		sentry.Flush(timeout)
	}
}

// shutdownForTest disables reporting and detaches the error hook.
func shutdownForTest() {
	enabled.Store(false)
	errors.ClearErrorHooks()
}
