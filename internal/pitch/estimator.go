// Package pitch estimates the fundamental period of a sampled signal using
// normalized autocorrelation (NAC).
//
// The normalization is such that a perfectly periodic signal with integer
// period p has NAC exactly 1.0 at p. This also holds for periodic signals
// with exponential decay or growth in magnitude, which makes the measure a
// usable quality score for plucked strings.
package pitch

import (
	"math"

	"github.com/jtoivola/fretwatch-go/internal/errors"
)

// subMulThreshold is the octave correction acceptance bound: if the NAC at
// every submultiple of the peak position is at least this strong relative to
// the peak, the submultiple is assumed to be the real period.
const subMulThreshold = 0.90

// maxShiftRatio bounds the parabolic interpolation shift relative to the
// integer peak. Larger shifts indicate an ill-conditioned peak and are
// discarded in favor of the unshifted integer period.
const maxShiftRatio = 0.2

// Estimate is the result of a single period estimation.
type Estimate struct {
	// Period is the estimated period in fractional samples, 0 when invalid.
	Period float64
	// Quality is the normalized autocorrelation at the integer peak. Ideally
	// in [0, 1] but noise can push it slightly above 1.
	Quality float64
	// IntegerPeriod is the index of the discrete NAC peak, which may be an
	// integer multiple of the corrected Period.
	IntegerPeriod int
	// Valid is false when the signal has no usable periodic peak in range.
	Valid bool
}

// Frequency returns the frequency in Hz corresponding to the estimate at the
// given sample rate, or 0 when the estimate is invalid.
func (e Estimate) Frequency(sampleRate int) float64 {
	if !e.Valid || e.Period <= 0 {
		return 0
	}
	return float64(sampleRate) / e.Period
}

// Estimator holds the reusable scratch buffer for NAC computation. Each
// instance owns its buffer, so independent estimators can run concurrently.
// A single instance must not be shared between goroutines.
type Estimator struct {
	nac []float64
}

// NewEstimator returns an Estimator with an empty scratch buffer. The buffer
// is sized on first use and reused across calls.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate computes the fundamental period of samples in the candidate range
// [minPeriod, maxPeriod].
//
// Preconditions: minPeriod > 1, maxPeriod > minPeriod and
// len(samples) >= 2*maxPeriod. These are checked at session construction by
// the caller; violating them here yields an invalid estimate rather than a
// panic.
//
// Degenerate input (silence, white noise, a period outside the candidate
// range, NaN propagation from corrupted samples) is reported through the
// Valid flag, never by aborting the caller.
func (e *Estimator) Estimate(samples []float32, minPeriod, maxPeriod int) Estimate {
	if minPeriod <= 1 || maxPeriod <= minPeriod || len(samples) < 2*maxPeriod {
		return Estimate{}
	}

	nac := e.scratch(maxPeriod + 2)
	computeNac(samples, minPeriod, maxPeriod, nac)

	best, period, ok := findPeak(nac, minPeriod, maxPeriod)
	if !ok {
		return Estimate{}
	}

	// Quality is measured at the discrete peak, which may still be a
	// multiple of the real period.
	quality := nac[best]

	period = fixOctaves(nac, minPeriod, maxPeriod, period, best)

	if math.IsNaN(period) {
		return Estimate{}
	}

	return Estimate{
		Period:        period,
		Quality:       quality,
		IntegerPeriod: best,
		Valid:         true,
	}
}

// scratch returns the NAC buffer, growing it when a larger candidate range is
// requested. Size is maxPeriod+2 because element maxPeriod+1 is needed to
// decide whether maxPeriod itself is a peak.
func (e *Estimator) scratch(size int) []float64 {
	if cap(e.nac) < size {
		e.nac = make([]float64, size)
	}
	return e.nac[:size]
}

// computeNac fills nac[p] for p in [minPeriod-1, maxPeriod+1] with
//
//	NAC(p) = sum(x[i]*x[i+p]) / sqrt(sum(x[i]^2) * sum(x[i+p]^2))
//
// over the overlap window i in [0, n-p). The two sum-of-squares terms are
// maintained incrementally: growing p by one shrinks the window by one
// sample at each end, so one term leaves each sum per step instead of
// recomputing both from scratch for every candidate period.
func computeNac(x []float32, minPeriod, maxPeriod int, nac []float64) {
	n := len(x)
	first := minPeriod - 1

	var sumSqBeg, sumSqEnd float64
	for i := 0; i < n-first; i++ {
		sumSqBeg += float64(x[i]) * float64(x[i])
	}
	for i := first; i < n; i++ {
		sumSqEnd += float64(x[i]) * float64(x[i])
	}

	for p := first; p <= maxPeriod+1; p++ {
		if p > first {
			sumSqBeg -= float64(x[n-p]) * float64(x[n-p])
			sumSqEnd -= float64(x[p-1]) * float64(x[p-1])
		}

		var ac float64
		for i := 0; i < n-p; i++ {
			ac += float64(x[i]) * float64(x[i+p])
		}

		if sumSqBeg != 0 && sumSqEnd != 0 {
			nac[p] = ac / math.Sqrt(sumSqBeg*sumSqEnd)
		} else {
			nac[p] = 0
		}
	}
}

// findPeak locates the NAC maximum in [minPeriod, maxPeriod] and refines it
// with parabolic interpolation against both neighbors. It reports ok=false
// when the maximum is not a strict local peak, which happens when the real
// period lies outside the candidate range or the signal is aperiodic.
func findPeak(nac []float64, minPeriod, maxPeriod int) (best int, period float64, ok bool) {
	best = minPeriod
	for p := minPeriod; p <= maxPeriod; p++ {
		if nac[p] > nac[best] {
			best = p
		}
	}

	if nac[best] < nac[best-1] && nac[best] < nac[best+1] {
		return 0, 0, false
	}

	// Corrupted input propagates NaN into the NAC; every comparison above
	// is false for NaN, so it must be rejected explicitly.
	if math.IsNaN(nac[best]) {
		return 0, 0, false
	}

	// If the value to the right is bigger than the value to the left the
	// real peak is a bit right of the discrete peak, and vice versa:
	//   left == right -> peak at mid
	//   left == mid   -> peak at mid - 0.5
	//   right == mid  -> peak at mid + 0.5
	mid := nac[best]
	left := nac[best-1]
	right := nac[best+1]

	period = float64(best)
	if denom := 2*mid - left - right; denom != 0 {
		shift := 0.5 * (right - left) / denom
		if math.Abs(shift) < maxShiftRatio*float64(best) {
			period += shift
		}
	}

	return best, period, true
}

// fixOctaves corrects the common error where the NAC peak sits at an integer
// multiple of the real period. A signal periodic with period p is also
// periodic with period 2p, so when the candidate range spans more than an
// octave the peak search can land an octave (or more) too low in frequency.
//
// The hypothesis that the real period is period/mul is accepted when the NAC
// at every submultiple position round(k*period/mul) is nearly as strong as
// the peak itself. The largest passing mul wins.
func fixOctaves(nac []float64, minPeriod, maxPeriod int, period float64, best int) float64 {
	maxMul := best / minPeriod
	for mul := maxMul; mul >= 1; mul-- {
		subsAllStrong := true
		for k := 1; k < mul; k++ {
			subP := int(math.Round(float64(k) * period / float64(mul)))
			if subP < minPeriod-1 {
				subP = minPeriod - 1
			} else if subP > maxPeriod+1 {
				subP = maxPeriod + 1
			}
			if nac[subP] < subMulThreshold*nac[best] {
				subsAllStrong = false
				break
			}
		}
		if subsAllStrong {
			return period / float64(mul)
		}
	}
	return period
}

// PeriodBounds derives the candidate period range from a sample rate and the
// detectable frequency bounds. The highest frequency gives the minimum
// period and vice versa.
func PeriodBounds(sampleRate int, lowestFreq, highestFreq float64) (minPeriod, maxPeriod int, err error) {
	if sampleRate <= 0 {
		return 0, 0, errors.Newf("sample rate must be positive, got %d", sampleRate).
			Component("pitch").
			Category(errors.CategoryValidation).
			Build()
	}
	if lowestFreq <= 0 || highestFreq <= lowestFreq {
		return 0, 0, errors.Newf("invalid frequency bounds [%g, %g]", lowestFreq, highestFreq).
			Component("pitch").
			Category(errors.CategoryValidation).
			Build()
	}

	minPeriod = int(math.Floor(float64(sampleRate) / highestFreq))
	maxPeriod = int(math.Ceil(float64(sampleRate) / lowestFreq))

	if minPeriod <= 1 || maxPeriod <= minPeriod {
		return 0, 0, errors.Newf("period bounds [%d, %d] unusable at %d Hz", minPeriod, maxPeriod, sampleRate).
			Component("pitch").
			Category(errors.CategoryValidation).
			Context("sample_rate", sampleRate).
			Build()
	}

	return minPeriod, maxPeriod, nil
}
