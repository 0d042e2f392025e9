// Package analysis drives the realtime and offline detection pipelines.
package analysis

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jtoivola/fretwatch-go/internal/analysis/detector"
	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/errors"
	"github.com/jtoivola/fretwatch-go/internal/logging"
	"github.com/jtoivola/fretwatch-go/internal/myaudio"
	"github.com/jtoivola/fretwatch-go/internal/observability"
)

// PitchPipeline owns one sample ring and one note detector and drives the
// periodic analysis tick. It is the ring's single consumer.
type PitchPipeline struct {
	settings *conf.Settings
	ring     *myaudio.SampleRing
	det      *detector.NoteDetector
	metrics  *observability.Metrics
	logger   *slog.Logger

	pollInterval time.Duration

	// window is sized to the full ring capacity at construction so the tick
	// path never allocates.
	window []float32

	// dropLogLimiter throttles logging of recoverable estimation failures,
	// which otherwise flood the log at every silent tick.
	dropLogLimiter *rate.Limiter
}

// NewPitchPipeline wires a pipeline over an existing ring and detector.
// metrics may be nil, e.g. in file mode.
func NewPitchPipeline(settings *conf.Settings, ring *myaudio.SampleRing, det *detector.NoteDetector, metrics *observability.Metrics) (*PitchPipeline, error) {
	if ring.Capacity() < det.WindowSize() {
		return nil, errors.Newf("ring capacity %d frames below analysis window of %d", ring.Capacity(), det.WindowSize()).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}

	pollInterval := time.Duration(settings.Audio.PollInterval) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 20 * time.Millisecond
	}

	logger := logging.ForService("analysis")
	if logger == nil {
		logger = slog.Default()
	}

	return &PitchPipeline{
		settings:       settings,
		ring:           ring,
		det:            det,
		metrics:        metrics,
		logger:         logger,
		pollInterval:   pollInterval,
		window:         make([]float32, ring.Capacity()),
		dropLogLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}, nil
}

// Start launches the analysis goroutine. It stops when quitChan closes,
// running one final tick over whatever is still buffered so the tail of a
// session is not discarded.
func (p *PitchPipeline) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.run(quitChan)
	}()
}

func (p *PitchPipeline) run(quitChan <-chan struct{}) {
	p.det.Reset()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.logger.Info("analysis loop started",
		"poll_interval", p.pollInterval,
		"window_frames", p.det.WindowSize())

	for {
		select {
		case <-quitChan:
			p.tick()
			p.det.Flush()
			p.logger.Info("analysis loop stopped")
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick consumes every currently buffered frame and runs one detection pass
// when at least a full analysis window is available.
func (p *PitchPipeline) tick() {
	available := p.ring.ReaderAvailable()
	if p.metrics != nil {
		p.metrics.MyAudio.SetRingFill(available)
	}
	if available < p.det.WindowSize() {
		return
	}
	if available > len(p.window) {
		available = len(p.window)
	}

	view := p.ring.ReaderView()
	copied := view.CopyTo(p.window[:available])

	start := time.Now()
	result := p.det.Process(p.window[:copied])
	elapsed := time.Since(start)

	if err := p.ring.ReaderAdvance(available); err != nil {
		p.logger.Error("reader advance failed", "error", err)
	}

	p.record(result, elapsed)
}

// record publishes tick telemetry and throttled debug logging.
func (p *PitchPipeline) record(result detector.TickResult, elapsed time.Duration) {
	if p.metrics != nil {
		p.metrics.Pitch.RecordEstimation(result.Estimate.Valid, result.Estimate.Quality, elapsed.Seconds())
		p.metrics.Detector.RecordTick(result.Outcome.String(), result.StaleReset)
		if result.Outcome == detector.OutcomeHighlighted {
			p.metrics.Pitch.SetDetectedFrequency(result.Estimate.Frequency(p.det.SampleRate()))
			p.metrics.Detector.SetLastNote(int(result.Note))
		}
	}

	if p.settings.Detection.ProcessingTime {
		p.logger.Debug("analysis tick",
			"outcome", result.Outcome.String(),
			"duration", elapsed)
	}

	if result.Outcome == detector.OutcomeNoEstimate && p.dropLogLimiter.Allow() {
		p.logger.Debug("no accepted estimate",
			"valid", result.Estimate.Valid,
			"quality", result.Estimate.Quality)
	}
}
