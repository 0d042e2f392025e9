package detector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtoivola/fretwatch-go/internal/guitar"
)

const (
	testRate      = 44100
	testMinPeriod = 16
	testMaxPeriod = 1071
)

func testConfig() Config {
	return Config{
		SampleRate:       testRate,
		MinPeriod:        testMinPeriod,
		MaxPeriod:        testMaxPeriod,
		Tuning:           guitar.StandardTuning(),
		MaxFrets:         22,
		QualityThreshold: 0.85,
		MinAmplitude:     0.1,
		AttackDelta:      0.12,
		Source:           "test",
	}
}

func newTestDetector(t *testing.T) *NoteDetector {
	t.Helper()
	d, err := New(testConfig())
	require.NoError(t, err)
	return d
}

// sineWindow synthesizes one analysis window of a sine at frequency f.
func sineWindow(f, amplitude float64) []float32 {
	x := make([]float32, 2*testMaxPeriod)
	p := testRate / f
	for i := range x {
		x[i] = float32(amplitude * math.Sin(2*math.Pi*float64(i)/p))
	}
	return x
}

func noiseWindow(seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float32, 2*testMaxPeriod)
	for i := range x {
		x[i] = float32(rng.Float64()*2 - 1)
	}
	return x
}

// drainEvents collects every event currently queued.
func drainEvents(d *NoteDetector) []Event {
	var events []Event
	for {
		select {
		case ev := <-d.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero_sample_rate", func(c *Config) { c.SampleRate = 0 }},
		{"bad_period_bounds", func(c *Config) { c.MinPeriod = 100; c.MaxPeriod = 100 }},
		{"empty_tuning", func(c *Config) { c.Tuning = nil }},
		{"zero_frets", func(c *Config) { c.MaxFrets = 0 }},
		{"quality_above_one", func(c *Config) { c.QualityThreshold = 1.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestProcess_HighlightOnNewNote(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	result := d.Process(sineWindow(110.0, 0.3))
	assert.Equal(t, OutcomeHighlighted, result.Outcome)

	events := drainEvents(d)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, EventHighlight, ev.Type)
	assert.Equal(t, "A2", ev.NoteName)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "test", ev.Source)
	assert.InEpsilon(t, 110.0, ev.Frequency, 0.01)

	// A2 on standard tuning: open A string, frettable on the lower strings.
	require.Len(t, ev.Frets, 6)
	assert.Equal(t, 0, ev.Frets[4])
	assert.Equal(t, 5, ev.Frets[5])
	assert.Equal(t, guitar.NotPlayable, ev.Frets[0])

	assert.Equal(t, 4, ev.StringIdx)
	assert.Equal(t, 0, ev.Fret)
}

func TestProcess_SustainedNoteEmitsOnce(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
	require.Equal(t, OutcomeSustained, d.Process(sineWindow(110.0, 0.3)).Outcome)
	require.Equal(t, OutcomeSustained, d.Process(sineWindow(110.0, 0.3)).Outcome)

	events := drainEvents(d)
	require.Len(t, events, 1)
	assert.Equal(t, EventHighlight, events[0].Type)
}

func TestProcess_ReattackEmitsSecondHighlight(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	// Same note twice, with the peak amplitude rising well past the attack
	// delta between the two windows: a plucked re-attack, two events.
	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.6)).Outcome)

	events := drainEvents(d)
	require.Len(t, events, 2)
	assert.Equal(t, EventHighlight, events[0].Type)
	assert.Equal(t, EventHighlight, events[1].Type)
	assert.Equal(t, events[0].NoteName, events[1].NoteName)
}

func TestProcess_PerfectFifthTreatedAsSustain(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	// A2 then E3, seven semitones up at unchanged amplitude. A perfect fifth
	// is a common autocorrelation mistrack and does not retrigger.
	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
	assert.Equal(t, OutcomeSustained, d.Process(sineWindow(164.81, 0.3)).Outcome)

	// An octave reads as delta 0 and sustains too.
	assert.Equal(t, OutcomeSustained, d.Process(sineWindow(220.0, 0.3)).Outcome)

	require.Len(t, drainEvents(d), 1)
}

func TestProcess_SemitoneChangeRetriggers(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
	// A#2, one semitone up, same amplitude.
	assert.Equal(t, OutcomeHighlighted, d.Process(sineWindow(116.54, 0.3)).Outcome)

	events := drainEvents(d)
	require.Len(t, events, 2)
	assert.Equal(t, "A2", events[0].NoteName)
	assert.Equal(t, "A#2", events[1].NoteName)
}

func TestProcess_QuietNoteClears(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)

	// Still periodic and playable, but below the sounding amplitude.
	result := d.Process(sineWindow(110.0, 0.05))
	assert.Equal(t, OutcomeBelowMinimum, result.Outcome)

	events := drainEvents(d)
	require.Len(t, events, 2)
	assert.Equal(t, EventClear, events[1].Type)

	// Already silent, a second quiet window emits nothing.
	d.Process(sineWindow(110.0, 0.05))
	assert.Empty(t, drainEvents(d))
}

func TestProcess_NoiseDropsWithoutEvents(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	result := d.Process(noiseWindow(1))
	assert.Equal(t, OutcomeNoEstimate, result.Outcome)
	assert.Empty(t, drainEvents(d))
}

func TestProcess_UnplayableNoteDropped(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	// 2000 Hz is detectable but above the highest fret of standard tuning.
	result := d.Process(sineWindow(2000.0, 0.3))
	assert.Equal(t, OutcomeUnplayable, result.Outcome)
	assert.Empty(t, drainEvents(d))
}

func TestProcess_StaleResetClearsSoundingNote(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
	drainEvents(d)

	// Feed noise until more than a second of samples has been dropped.
	window := noiseWindow(7)
	ticks := testRate/len(window) + 1
	for i := 0; i < ticks; i++ {
		d.Process(window)
	}
	result := d.Process(window)
	assert.True(t, result.StaleReset)

	events := drainEvents(d)
	require.Len(t, events, 1)
	assert.Equal(t, EventClear, events[0].Type)

	// Silent now; further stale resets stay event free.
	for i := 0; i < ticks+1; i++ {
		d.Process(window)
	}
	assert.Empty(t, drainEvents(d))
}

func TestProcess_ValidSegmentResetsDropCounter(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	window := noiseWindow(3)
	halfSecondTicks := testRate / (2 * len(window))

	// Alternate noise below the stale threshold with valid audio; the reset
	// must never fire because valid segments clear the counter.
	for round := 0; round < 4; round++ {
		for i := 0; i < halfSecondTicks; i++ {
			require.False(t, d.Process(window).StaleReset)
		}
		require.False(t, d.Process(sineWindow(110.0, 0.3)).StaleReset)
	}
}

func TestReset_ReturnsToSilentWithoutEvents(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
	drainEvents(d)

	d.Reset()
	assert.Empty(t, drainEvents(d))

	// After a reset the same note highlights again as if new.
	assert.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
}

func TestFlush_ClearsSoundingNote(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)

	require.Equal(t, OutcomeHighlighted, d.Process(sineWindow(110.0, 0.3)).Outcome)
	drainEvents(d)

	d.Flush()
	events := drainEvents(d)
	require.Len(t, events, 1)
	assert.Equal(t, EventClear, events[0].Type)

	// Silent detector flushes without emitting.
	d.Flush()
	assert.Empty(t, drainEvents(d))
}

func TestWindowSize(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t)
	assert.Equal(t, 2*testMaxPeriod, d.WindowSize())
}

func TestLowestPosition(t *testing.T) {
	t.Parallel()

	np := guitar.NotPlayable

	cases := []struct {
		name      string
		frets     []int
		stringIdx int
		fret      int
	}{
		{"open_string", []int{np, np, np, np, 0, 5}, 4, 0},
		{"all_unplayable", []int{np, np, np, np, np, np}, -1, -1},
		{"prefers_lower_fret", []int{0, 5, 9, 14, 19, np}, 0, 0},
		{"prefers_higher_string_on_tie", []int{3, 3, np, np, np, np}, 0, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, f := lowestPosition(tc.frets)
			assert.Equal(t, tc.stringIdx, s)
			assert.Equal(t, tc.fret, f)
		})
	}
}
