// Package detector turns raw period estimates into stable, debounced note
// events. It owns the Silent/Sounding state machine sitting between the
// period estimator and every downstream consumer.
package detector

import (
	"log/slog"
	"math"

	"github.com/jtoivola/fretwatch-go/internal/errors"
	"github.com/jtoivola/fretwatch-go/internal/guitar"
	"github.com/jtoivola/fretwatch-go/internal/logging"
	"github.com/jtoivola/fretwatch-go/internal/pitch"
)

// peakHistorySize is the number of per-period peak amplitudes retained.
const peakHistorySize = 100

// eventBufferSize bounds the event channel. The consumer is expected to keep
// up; when it does not, the oldest event is replaced rather than blocking the
// analysis tick.
const eventBufferSize = 32

// Outcome summarizes what a single analysis tick did.
type Outcome int

const (
	// OutcomeNoEstimate means the estimator found no usable periodic peak or
	// its quality was below the acceptance gate.
	OutcomeNoEstimate Outcome = iota
	// OutcomeUnplayable means a note was detected but no string can play it.
	OutcomeUnplayable
	// OutcomeBelowMinimum means the note was playable but too quiet to count
	// as sounding.
	OutcomeBelowMinimum
	// OutcomeSustained means the same note kept sounding, no event emitted.
	OutcomeSustained
	// OutcomeHighlighted means a highlight event was emitted.
	OutcomeHighlighted
)

// String returns the snake_case outcome name used as a metrics label.
func (o Outcome) String() string {
	switch o {
	case OutcomeNoEstimate:
		return "no_estimate"
	case OutcomeUnplayable:
		return "unplayable"
	case OutcomeBelowMinimum:
		return "below_minimum"
	case OutcomeSustained:
		return "sustained"
	case OutcomeHighlighted:
		return "highlighted"
	default:
		return "unknown"
	}
}

// TickResult reports the outcome of one Process call to the pipeline, which
// uses it for metrics and debug logging. Events still flow only through the
// event channel.
type TickResult struct {
	Outcome    Outcome
	Estimate   pitch.Estimate
	Note       guitar.Semitone
	StaleReset bool
}

// Config holds the immutable per-session detector parameters.
type Config struct {
	SampleRate int
	MinPeriod  int
	MaxPeriod  int

	Tuning   []guitar.Semitone
	MaxFrets int

	// QualityThreshold is the minimum normalized autocorrelation for an
	// estimate to be accepted.
	QualityThreshold float64
	// MinAmplitude is the peak amplitude below which a note is not sounding.
	MinAmplitude float64
	// AttackDelta is the peak amplitude rise treated as a re-attack of the
	// same note.
	AttackDelta float64

	// Source is the node name stamped onto events.
	Source string
}

// NoteDetector consumes analysis windows and emits Highlight/Clear events.
// Not safe for concurrent use; a session owns exactly one instance driven
// from the analysis goroutine.
type NoteDetector struct {
	cfg       Config
	estimator *pitch.Estimator
	logger    *slog.Logger

	events chan Event

	// lastNote is InvalidSemitone in the Silent state.
	lastNote guitar.Semitone

	peaks   [peakHistorySize]float64
	peakIdx int

	// droppedSamples counts samples consumed without an accepted periodic
	// segment since the last one. Crossing one second of audio forces a
	// stale reset to Silent.
	droppedSamples int

	frets []int // scratch, one entry per string
}

// New validates the configuration and returns a detector in the Silent state.
func New(cfg Config) (*NoteDetector, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.Newf("sample rate must be positive, got %d", cfg.SampleRate).
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.MinPeriod <= 1 || cfg.MaxPeriod <= cfg.MinPeriod {
		return nil, errors.Newf("invalid period bounds [%d, %d]", cfg.MinPeriod, cfg.MaxPeriod).
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(cfg.Tuning) == 0 {
		return nil, errors.Newf("tuning table is empty").
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.MaxFrets <= 0 {
		return nil, errors.Newf("max frets must be positive, got %d", cfg.MaxFrets).
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.QualityThreshold <= 0 || cfg.QualityThreshold > 1 {
		return nil, errors.Newf("quality threshold %g outside (0, 1]", cfg.QualityThreshold).
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}

	logger := logging.ForService("detector")
	if logger == nil {
		logger = slog.Default()
	}

	return &NoteDetector{
		cfg:       cfg,
		estimator: pitch.NewEstimator(),
		logger:    logger,
		events:    make(chan Event, eventBufferSize),
		lastNote:  guitar.InvalidSemitone,
		frets:     make([]int, len(cfg.Tuning)),
	}, nil
}

// Events returns the channel carrying Highlight and Clear events.
func (d *NoteDetector) Events() <-chan Event {
	return d.events
}

// WindowSize returns the number of samples Process needs per tick.
func (d *NoteDetector) WindowSize() int {
	return 2 * d.cfg.MaxPeriod
}

// SampleRate returns the session sample rate the detector was built for.
func (d *NoteDetector) SampleRate() int {
	return d.cfg.SampleRate
}

// Reset returns the detector to the Silent state without emitting events.
// Called at session start.
func (d *NoteDetector) Reset() {
	d.lastNote = guitar.InvalidSemitone
	d.peaks = [peakHistorySize]float64{}
	d.peakIdx = 0
	d.droppedSamples = 0
}

// Flush emits a Clear for a still-sounding note and resets. Called at session
// stop so a highlight is never left dangling across shutdown.
func (d *NoteDetector) Flush() {
	if d.lastNote != guitar.InvalidSemitone {
		d.emit(newEvent(EventClear, d.cfg.Source))
	}
	d.Reset()
}

// Process runs one analysis tick over a window of at least WindowSize
// samples. The caller consumes the window from its buffer regardless of the
// outcome; every non-accepting path here accounts the window as dropped.
func (d *NoteDetector) Process(samples []float32) TickResult {
	var result TickResult

	// Stale state: a second of audio without an accepted periodic segment
	// means whatever was sounding is long gone.
	if d.droppedSamples > d.cfg.SampleRate {
		result.StaleReset = true
		d.droppedSamples = 0
		if d.lastNote != guitar.InvalidSemitone {
			d.lastNote = guitar.InvalidSemitone
			d.emit(newEvent(EventClear, d.cfg.Source))
		}
	}

	est := d.estimator.Estimate(samples, d.cfg.MinPeriod, d.cfg.MaxPeriod)
	result.Estimate = est

	if !est.Valid || est.Quality < d.cfg.QualityThreshold || est.IntegerPeriod <= 0 {
		d.droppedSamples += len(samples)
		result.Outcome = OutcomeNoEstimate
		return result
	}

	frequency := est.Frequency(d.cfg.SampleRate)
	note := guitar.FrequencyToSemitones(frequency, nil)
	result.Note = note

	playable := guitar.MapNoteInto(note, d.cfg.Tuning, d.cfg.MaxFrets, d.frets)
	if playable == 0 {
		d.droppedSamples += len(samples)
		result.Outcome = OutcomeUnplayable
		return result
	}

	minSurpassed, quickRaise := d.recordPeaks(samples, est.IntegerPeriod)

	// A valid periodic segment is itself progress, even when the note ends
	// up filtered below.
	d.droppedSamples = 0

	if !minSurpassed {
		result.Outcome = OutcomeBelowMinimum
		if d.lastNote != guitar.InvalidSemitone {
			d.lastNote = guitar.InvalidSemitone
			d.emit(newEvent(EventClear, d.cfg.Source))
		}
		return result
	}

	delta := noteDelta(note, d.lastNote)
	if quickRaise || (delta != 0 && delta != 7) || d.lastNote == guitar.InvalidSemitone {
		d.lastNote = note
		d.emit(d.highlightEvent(note, frequency, est.Quality))
		result.Outcome = OutcomeHighlighted
		return result
	}

	result.Outcome = OutcomeSustained
	return result
}

// recordPeaks appends the peak absolute amplitude of each full period-length
// segment in the window to the peak history. It reports whether any peak
// cleared the sounding threshold and whether any peak rose enough over its
// predecessor to count as a re-attack.
func (d *NoteDetector) recordPeaks(samples []float32, period int) (minSurpassed, quickRaise bool) {
	for start := 0; start+period <= len(samples); start += period {
		var peak float64
		for _, v := range samples[start : start+period] {
			if a := math.Abs(float64(v)); a > peak {
				peak = a
			}
		}

		previous := d.peaks[d.peakIdx]
		d.peakIdx = (d.peakIdx + 1) % peakHistorySize
		d.peaks[d.peakIdx] = peak

		if peak > d.cfg.MinAmplitude {
			minSurpassed = true
		}
		if peak-previous > d.cfg.AttackDelta {
			quickRaise = true
		}
	}
	return minSurpassed, quickRaise
}

// highlightEvent builds a Highlight event with a copy of the current fret
// mapping and the lowest playable position.
func (d *NoteDetector) highlightEvent(note guitar.Semitone, frequency, quality float64) Event {
	ev := newEvent(EventHighlight, d.cfg.Source)
	ev.Note = note
	ev.NoteName = guitar.SemitoneName(note)
	ev.Frequency = frequency
	ev.Quality = quality

	ev.Frets = make([]int, len(d.frets))
	copy(ev.Frets, d.frets)

	ev.StringIdx, ev.Fret = lowestPosition(d.frets)
	return ev
}

// lowestPosition returns the string and fret of the lowest playable fret in
// the mapping, preferring the higher string on ties.
func lowestPosition(frets []int) (stringIdx, fret int) {
	stringIdx, fret = -1, -1
	for s, f := range frets {
		if f == guitar.NotPlayable {
			continue
		}
		if fret == -1 || f < fret {
			stringIdx, fret = s, f
		}
	}
	return stringIdx, fret
}

// noteDelta returns |note - lastNote| mod 12, or -1 when there is no last
// note. Deltas of 0 (same chroma, octave errors included) and 7 (perfect
// fifth harmonic mistracking) are treated as the same sustained note.
func noteDelta(note, lastNote guitar.Semitone) int {
	if lastNote == guitar.InvalidSemitone {
		return -1
	}
	delta := int(note) - int(lastNote)
	if delta < 0 {
		delta = -delta
	}
	return delta % 12
}

// emit delivers an event without ever blocking the analysis tick. When the
// consumer has fallen behind the oldest queued event is discarded.
func (d *NoteDetector) emit(ev Event) {
	select {
	case d.events <- ev:
		return
	default:
	}

	select {
	case dropped := <-d.events:
		d.logger.Warn("event consumer behind, dropping oldest event",
			"dropped_type", dropped.Type.String(),
			"dropped_id", dropped.ID)
	default:
	}

	select {
	case d.events <- ev:
	default:
	}
}
