package analysis

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jtoivola/fretwatch-go/internal/analysis/detector"
	"github.com/jtoivola/fretwatch-go/internal/analysis/processor"
	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/datastore"
	"github.com/jtoivola/fretwatch-go/internal/errors"
	"github.com/jtoivola/fretwatch-go/internal/guitar"
	"github.com/jtoivola/fretwatch-go/internal/httpcontroller"
	"github.com/jtoivola/fretwatch-go/internal/logging"
	"github.com/jtoivola/fretwatch-go/internal/mqtt"
	"github.com/jtoivola/fretwatch-go/internal/myaudio"
	"github.com/jtoivola/fretwatch-go/internal/observability"
	"github.com/jtoivola/fretwatch-go/internal/pitch"
)

const (
	// defaultRingSeconds matches the audio.ringduration configuration default
	// for settings built without the config loader.
	defaultRingSeconds = 30
	defaultSampleRate  = 44100
	audioLevelBuffer   = 100
)

// RealtimeAnalysis runs the live capture and detection stack until SIGINT.
func RealtimeAnalysis(settings *conf.Settings) error {
	logger := logging.ForService("analysis")
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	dataStore := datastore.New(settings, metrics.Datastore)
	if dataStore != nil {
		if err := dataStore.Open(); err != nil {
			return err
		}
		defer closeDataStore(dataStore, logger)
	}

	var levelChan chan myaudio.AudioLevelData
	if settings.Audio.LevelReporting {
		levelChan = make(chan myaudio.AudioLevelData, audioLevelBuffer)
	}

	var mqttClient mqtt.Client
	if settings.Realtime.MQTT.Enabled {
		mqttClient = mqtt.NewClient(settings, metrics.MQTT)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := mqttClient.Connect(ctx); err != nil {
				logger.Warn("initial MQTT connection failed", "error", err)
			}
		}()
	}

	var httpServer *httpcontroller.Server
	var sink processor.EventSink
	if settings.Realtime.API.Enabled {
		httpServer = httpcontroller.New(settings, dataStore, levelChan, metrics)
		sink = httpServer.Hub
	}

	ring, err := newSessionRing(settings)
	if err != nil {
		return err
	}
	session, err := myaudio.OpenCapture(settings, ring, levelChan)
	if err != nil {
		return err
	}

	det, err := buildDetector(settings, session.SampleRate())
	if err != nil {
		return err
	}
	metrics.MyAudio.SetDeviceSampleRate(session.SampleRate())

	pipeline, err := NewPitchPipeline(settings, ring, det, metrics)
	if err != nil {
		return err
	}

	quitChan := make(chan struct{})
	restartChan := make(chan struct{}, 3)
	var wg sync.WaitGroup

	if httpServer != nil {
		httpServer.Start(&wg, quitChan)
	}
	startTelemetryEndpoint(&wg, settings, metrics, quitChan, logger)

	wg.Add(1)
	go session.Run(&wg, quitChan, restartChan)
	pipeline.Start(&wg, quitChan)

	proc := processor.New(settings, det.Events(), dataStore, mqttClient, sink, metrics)
	proc.Start(&wg, quitChan)

	monitorCtrlC(quitChan, logger)

	for {
		select {
		case <-quitChan:
			wg.Wait()
			if mqttClient != nil {
				mqttClient.Disconnect()
			}
			return nil

		case err := <-session.Errors():
			logger.Error("audio capture failed", "error", err)
			close(quitChan)

		case <-restartChan:
			// The ring tolerates a producer swap: the old session's callback
			// is dead before the new device starts writing.
			logger.Info("restarting audio capture")
			session, err = myaudio.OpenCapture(settings, ring, levelChan)
			if err != nil {
				logger.Error("audio capture restart failed", "error", err)
				close(quitChan)
				continue
			}
			if session.SampleRate() != det.SampleRate() {
				logger.Warn("device sample rate changed across restart, detection accuracy degraded",
					"expected", det.SampleRate(), "got", session.SampleRate())
			}
			metrics.MyAudio.IncrementCaptureRestarts()
			wg.Add(1)
			go session.Run(&wg, quitChan, restartChan)
		}
	}
}

// newSessionRing sizes the sample ring for the configured duration at the
// highest rate the device might negotiate.
func newSessionRing(settings *conf.Settings) (*myaudio.SampleRing, error) {
	rate := defaultSampleRate
	for _, preferred := range settings.Audio.PreferredRates {
		if preferred > rate {
			rate = preferred
		}
	}

	seconds := settings.Audio.RingDuration
	if seconds <= 0 {
		seconds = defaultRingSeconds
	}

	return myaudio.NewSampleRing(rate*seconds, 1)
}

// buildDetector derives the detector configuration from the settings and the
// negotiated sample rate.
func buildDetector(settings *conf.Settings, sampleRate int) (*detector.NoteDetector, error) {
	lowest, err := guitar.ParseNote(settings.Detection.LowestNote)
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Context("setting", "detection.lowestnote").
			Build()
	}
	highest, err := guitar.ParseNote(settings.Detection.HighestNote)
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Context("setting", "detection.highestnote").
			Build()
	}

	minPeriod, maxPeriod, err := pitch.PeriodBounds(sampleRate,
		guitar.SemitoneToFrequency(lowest), guitar.SemitoneToFrequency(highest))
	if err != nil {
		return nil, err
	}

	tuning := guitar.StandardTuning()
	if len(settings.Guitar.Tuning) > 0 {
		tuning, err = guitar.TuningFromNames(settings.Guitar.Tuning)
		if err != nil {
			return nil, err
		}
	}

	return detector.New(detector.Config{
		SampleRate:       sampleRate,
		MinPeriod:        minPeriod,
		MaxPeriod:        maxPeriod,
		Tuning:           tuning,
		MaxFrets:         settings.Guitar.Frets,
		QualityThreshold: settings.Detection.QualityThreshold,
		MinAmplitude:     settings.Detection.MinAmplitude,
		AttackDelta:      settings.Detection.AttackDelta,
		Source:           settings.Main.Name,
	})
}

func startTelemetryEndpoint(wg *sync.WaitGroup, settings *conf.Settings, metrics *observability.Metrics,
	quitChan <-chan struct{}, logger *slog.Logger) {
	if !settings.Realtime.Telemetry.Enabled {
		return
	}

	endpoint, err := observability.NewEndpoint(settings, metrics)
	if err != nil {
		logger.Error("failed to initialize telemetry endpoint", "error", err)
		return
	}
	endpoint.Start(wg, quitChan)
}

// monitorCtrlC closes quitChan on the first SIGINT or SIGTERM.
func monitorCtrlC(quitChan chan struct{}, logger *slog.Logger) {
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutdown signal received")
		close(quitChan)
	}()
}

func closeDataStore(store datastore.Interface, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	} else {
		logger.Info("database closed")
	}
}
