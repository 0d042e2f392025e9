package pitch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRate = 44100

	// E7 to E1, the default detectable range at 44100 Hz.
	testMinPeriod = 16
	testMaxPeriod = 1071
)

// makeSine synthesizes a sine at frequency f with the given harmonic
// amplitudes, harmonics[0] being the fundamental.
func makeSine(f float64, length int, harmonics ...float64) []float32 {
	x := make([]float32, length)
	p := testRate / f
	for i := range x {
		var v float64
		for h, amp := range harmonics {
			v += amp * math.Sin(2*math.Pi*float64(i)*float64(h+1)/p)
		}
		x[i] = float32(v)
	}
	return x
}

func TestEstimate_PureSine(t *testing.T) {
	t.Parallel()

	const f = 440.0
	x := makeSine(f, 2*testMaxPeriod, 1.0)

	est := NewEstimator().Estimate(x, testMinPeriod, testMaxPeriod)
	require.True(t, est.Valid)
	require.Positive(t, est.Period)

	// Allow 0.1% of frequency error.
	assert.InEpsilon(t, f, est.Frequency(testRate), 0.001)
	assert.InDelta(t, 1.0, est.Quality, 0.05)
}

func TestEstimate_SineWithHarmonics(t *testing.T) {
	t.Parallel()

	// Strong harmonics at 2f and 3f tempt the peak search onto a multiple
	// of the true period; octave correction must still resolve f.
	const f = 440.0
	x := makeSine(f, 2*testMaxPeriod, 1.0, 0.6, 0.3)

	est := NewEstimator().Estimate(x, testMinPeriod, testMaxPeriod)
	require.True(t, est.Valid)

	assert.InEpsilon(t, f, est.Frequency(testRate), 0.001)
	assert.InDelta(t, 1.0, est.Quality, 0.05)
}

func TestEstimate_SubSamplePrecision(t *testing.T) {
	t.Parallel()

	// 432 Hz has a period of 102.08 samples at 44100 Hz, so a correct
	// result requires the parabolic interpolation step.
	const f = 432.0
	x := makeSine(f, 2*testMaxPeriod, 1.0)

	est := NewEstimator().Estimate(x, testMinPeriod, testMaxPeriod)
	require.True(t, est.Valid)

	assert.InEpsilon(t, f, est.Frequency(testRate), 0.001)
	assert.NotEqual(t, float64(est.IntegerPeriod), est.Period)
}

func TestEstimate_GuitarRange(t *testing.T) {
	t.Parallel()

	// Every open string of a standard tuned guitar must resolve cleanly.
	openStrings := map[string]float64{
		"E2": 82.41,
		"A2": 110.00,
		"D3": 146.83,
		"G3": 196.00,
		"B3": 246.94,
		"E4": 329.63,
	}

	e := NewEstimator()
	for name, f := range openStrings {
		x := makeSine(f, 2*testMaxPeriod, 1.0, 0.5, 0.2)
		est := e.Estimate(x, testMinPeriod, testMaxPeriod)
		require.True(t, est.Valid, "string %s", name)
		assert.InEpsilon(t, f, est.Frequency(testRate), 0.001, "string %s", name)
	}
}

func TestEstimate_Silence(t *testing.T) {
	t.Parallel()

	x := make([]float32, 2*testMaxPeriod)
	est := NewEstimator().Estimate(x, testMinPeriod, testMaxPeriod)

	// All-zero input has no periodic content: either no peak at all or a
	// quality far below any acceptance gate.
	if est.Valid {
		assert.Less(t, est.Quality, 0.85)
	}
}

func TestEstimate_WhiteNoise(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	x := make([]float32, 2*testMaxPeriod)
	for i := range x {
		x[i] = float32(rng.Float64()*2 - 1)
	}

	est := NewEstimator().Estimate(x, testMinPeriod, testMaxPeriod)
	if est.Valid {
		assert.Less(t, est.Quality, 0.85)
	}
}

func TestEstimate_PeriodAboveRange(t *testing.T) {
	t.Parallel()

	// 10 Hz has a period of 4410 samples, far above maxPeriod. The NAC is
	// then monotonically decreasing over the whole candidate range and the
	// maximum pins to the low edge, which downstream maps to a frequency
	// above the playable range and is dropped as unplayable.
	x := makeSine(10.0, 4*testMaxPeriod, 1.0)

	est := NewEstimator().Estimate(x, testMinPeriod, testMaxPeriod)
	require.True(t, est.Valid)
	assert.Equal(t, testMinPeriod, est.IntegerPeriod)
	assert.InDelta(t, float64(testMinPeriod), est.Period, maxShiftRatio*float64(testMinPeriod))
}

func TestEstimate_CorruptedInput(t *testing.T) {
	t.Parallel()

	x := makeSine(440.0, 2*testMaxPeriod, 1.0)
	for i := 0; i < len(x); i += 97 {
		x[i] = float32(math.NaN())
	}

	est := NewEstimator().Estimate(x, testMinPeriod, testMaxPeriod)
	assert.False(t, est.Valid)
}

func TestEstimate_PreconditionViolations(t *testing.T) {
	t.Parallel()

	x := makeSine(440.0, 2*testMaxPeriod, 1.0)
	e := NewEstimator()

	assert.False(t, e.Estimate(x, 1, testMaxPeriod).Valid, "minPeriod too small")
	assert.False(t, e.Estimate(x, testMinPeriod, testMinPeriod).Valid, "empty range")
	assert.False(t, e.Estimate(x[:100], testMinPeriod, testMaxPeriod).Valid, "window too short")
}

func TestEstimate_ScratchReuse(t *testing.T) {
	t.Parallel()

	e := NewEstimator()

	// A run over a small range must not leave state that corrupts a later
	// run over a larger range, and vice versa.
	x := makeSine(440.0, 2*testMaxPeriod, 1.0)

	small := e.Estimate(x, 50, 200)
	require.True(t, small.Valid)
	assert.InEpsilon(t, 440.0, small.Frequency(testRate), 0.001)

	full := e.Estimate(x, testMinPeriod, testMaxPeriod)
	require.True(t, full.Valid)
	assert.InEpsilon(t, 440.0, full.Frequency(testRate), 0.001)
}

func TestEstimate_IndependentInstances(t *testing.T) {
	t.Parallel()

	a := NewEstimator()
	b := NewEstimator()

	xa := makeSine(440.0, 2*testMaxPeriod, 1.0)
	xb := makeSine(110.0, 2*testMaxPeriod, 1.0)

	ea := a.Estimate(xa, testMinPeriod, testMaxPeriod)
	eb := b.Estimate(xb, testMinPeriod, testMaxPeriod)

	require.True(t, ea.Valid)
	require.True(t, eb.Valid)
	assert.InEpsilon(t, 440.0, ea.Frequency(testRate), 0.001)
	assert.InEpsilon(t, 110.0, eb.Frequency(testRate), 0.001)
}

func TestPeriodBounds(t *testing.T) {
	t.Parallel()

	t.Run("default_detection_range", func(t *testing.T) {
		t.Parallel()

		// E1 (41.20 Hz) to E7 (2637.02 Hz) at 44100 Hz.
		minP, maxP, err := PeriodBounds(testRate, 41.203, 2637.02)
		require.NoError(t, err)
		assert.Equal(t, testMinPeriod, minP)
		assert.Equal(t, testMaxPeriod, maxP)
	})

	t.Run("rejects_zero_rate", func(t *testing.T) {
		t.Parallel()
		_, _, err := PeriodBounds(0, 41.2, 2637.0)
		assert.Error(t, err)
	})

	t.Run("rejects_inverted_bounds", func(t *testing.T) {
		t.Parallel()
		_, _, err := PeriodBounds(testRate, 2637.0, 41.2)
		assert.Error(t, err)
	})

	t.Run("rejects_degenerate_range", func(t *testing.T) {
		t.Parallel()

		// Bounds so close together that no usable period range remains.
		_, _, err := PeriodBounds(100, 40.0, 60.0)
		assert.Error(t, err)
	})
}
