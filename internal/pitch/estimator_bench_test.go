package pitch

import (
	"testing"
)

// BenchmarkEstimate measures the analysis tick hot path over the default
// candidate range at 44100 Hz. The result bounds how short the pipeline poll
// interval can be.
func BenchmarkEstimate(b *testing.B) {
	x := makeSine(110.0, 2*testMaxPeriod, 1.0, 0.5, 0.2)
	e := NewEstimator()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		est := e.Estimate(x, testMinPeriod, testMaxPeriod)
		if !est.Valid {
			b.Fatal("estimate unexpectedly invalid")
		}
	}
}

// BenchmarkEstimateNarrowRange covers the cost when the configuration
// restricts detection to a single octave.
func BenchmarkEstimateNarrowRange(b *testing.B) {
	x := makeSine(110.0, 2*testMaxPeriod, 1.0)
	e := NewEstimator()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Estimate(x, 200, 536)
	}
}
