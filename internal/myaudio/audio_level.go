package myaudio

import "math"

// clipThreshold is the absolute sample value treated as clipping for float
// audio. Converters from fixed point formats rarely produce exactly 1.0.
const clipThreshold = 0.999

// CalculateAudioLevel computes the RMS level of float32 samples scaled to
// 0-100 together with a clipping flag.
func CalculateAudioLevel(samples []float32) AudioLevelData {
	if len(samples) == 0 {
		return AudioLevelData{}
	}

	var sumSq float64
	clipping := false
	for _, v := range samples {
		f := float64(v)
		sumSq += f * f
		if f >= clipThreshold || f <= -clipThreshold {
			clipping = true
		}
	}

	return scaleAudioLevel(sumSq, len(samples), clipping)
}

// scaleAudioLevel converts an accumulated sum of squares to the 0-100 level
// scale. Full scale float audio sits at 0 dBFS; the displayed range covers
// -60 dBFS to -10 dBFS, which matches typical instrument input levels.
func scaleAudioLevel(sumSq float64, sampleCount int, clipping bool) AudioLevelData {
	if sampleCount == 0 || sumSq <= 0 {
		return AudioLevelData{Clipping: clipping}
	}

	rms := math.Sqrt(sumSq / float64(sampleCount))
	db := 20 * math.Log10(rms)

	scaled := (db + 60) * (100.0 / 50.0)

	// Clipping pins the meter at or near the top.
	if clipping {
		scaled = math.Max(scaled, 95)
	}

	if scaled < 0 {
		scaled = 0
	} else if scaled > 100 {
		scaled = 100
	}

	return AudioLevelData{
		Level:    int(scaled),
		Clipping: clipping,
	}
}
