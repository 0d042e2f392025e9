// Package benchmark implements the pitch estimator benchmark command.
package benchmark

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/guitar"
	"github.com/jtoivola/fretwatch-go/internal/pitch"
)

// duration holds the benchmark duration flag value
var duration time.Duration

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run pitch estimation benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration < time.Second || duration > 5*time.Minute {
				return fmt.Errorf("duration must be between 1s and 5m, got %v", duration)
			}
			return runBenchmark(settings)
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "t", 10*time.Second, "how long to run the benchmark (1s-5m)")

	return cmd
}

// benchmarkResults stores benchmark metrics
type benchmarkResults struct {
	totalWindows     int           // number of windows analyzed
	avgWindowTime    time.Duration // average time per window
	windowsPerSecond float64       // throughput in windows per second
}

func runBenchmark(settings *conf.Settings) error {
	const sampleRate = 44100

	lowest, err := guitar.ParseNote(settings.Detection.LowestNote)
	if err != nil {
		return fmt.Errorf("invalid lowest note: %w", err)
	}
	highest, err := guitar.ParseNote(settings.Detection.HighestNote)
	if err != nil {
		return fmt.Errorf("invalid highest note: %w", err)
	}
	minPeriod, maxPeriod, err := pitch.PeriodBounds(sampleRate,
		guitar.SemitoneToFrequency(lowest), guitar.SemitoneToFrequency(highest))
	if err != nil {
		return err
	}

	// Analysis window matches the realtime pipeline: twice the longest period.
	windowSize := 2 * maxPeriod
	window := make([]float32, windowSize)
	for i := range window {
		window[i] = float32(0.3 * math.Sin(2*math.Pi*110.0*float64(i)/sampleRate))
	}

	fmt.Printf("Window: %d samples at %d Hz (periods %d-%d)\n", windowSize, sampleRate, minPeriod, maxPeriod)
	fmt.Printf("⏳ Running benchmark for %v...\n", duration)

	estimator := pitch.NewEstimator()
	startTime := time.Now()
	var totalWindows int
	var totalDuration time.Duration

	for time.Since(startTime) < duration {
		windowStart := time.Now()
		estimate := estimator.Estimate(window, minPeriod, maxPeriod)
		totalDuration += time.Since(windowStart)
		totalWindows++

		if !estimate.Valid {
			return fmt.Errorf("estimator failed to lock onto the reference tone")
		}

		if totalWindows%500 == 0 {
			avgTime := totalDuration / time.Duration(totalWindows)
			fmt.Printf("\r🔄 Windows: \033[1;36m%d\033[0m, Average time: \033[1;33m%.3fms\033[0m",
				totalWindows, float64(avgTime.Microseconds())/1000.0)
		}
	}
	fmt.Println()

	var results benchmarkResults
	results.totalWindows = totalWindows
	results.avgWindowTime = totalDuration / time.Duration(totalWindows)
	results.windowsPerSecond = float64(totalWindows) / duration.Seconds()

	avgMs := float64(results.avgWindowTime.Microseconds()) / 1000.0

	fmt.Printf("\nResults:\n")
	fmt.Printf("Windows analyzed   %d\n", results.totalWindows)
	fmt.Printf("Average time       %.3f ms\n", avgMs)
	fmt.Printf("Throughput         %.1f windows/sec\n", results.windowsPerSecond)

	rating, description := getPerformanceRating(avgMs)
	fmt.Printf("System Rating: %s, %s\n", rating, description)

	return nil
}

// getPerformanceRating grades the average window time against the realtime
// poll budget: the pipeline analyzes a window every few milliseconds, so
// anything above that budget means dropped analysis ticks.
func getPerformanceRating(windowTime float64) (rating, description string) {
	switch {
	case windowTime > 20:
		return "❌ Failed", "System is too slow for real-time note detection"
	case windowTime > 10:
		return "⚠️ Poor", "System may struggle to keep up with the analysis interval"
	case windowTime > 5:
		return "👍 Decent", "System should handle real-time detection"
	case windowTime > 2:
		return "✨ Good", "System will perform well"
	case windowTime > 1:
		return "🌟 Very Good", "System will perform very well"
	default:
		return "🚀 Superb", "System will perform exceptionally well"
	}
}
