package analysis

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jtoivola/fretwatch-go/internal/analysis/detector"
	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/guitar"
	"github.com/jtoivola/fretwatch-go/internal/logging"
	"github.com/jtoivola/fretwatch-go/internal/myaudio"
)

// FileDetection is one note onset found in an audio file.
type FileDetection struct {
	Offset    time.Duration
	Note      guitar.Semitone
	NoteName  string
	Frequency float64
	Quality   float64
	Frets     []int
}

// FileResult collects the detections of one file.
type FileResult struct {
	Path       string
	Info       myaudio.AudioInfo
	Detections []FileDetection
}

// FileAnalysis runs note detection over the given audio files, processing
// them concurrently, and prints the detections per file in input order.
func FileAnalysis(settings *conf.Settings, paths []string) error {
	logger := logging.ForService("analysis")
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]*FileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			result, err := analyzeFile(settings, path, logger)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, result := range results {
		printFileResult(result)
	}
	return nil
}

// analyzeFile feeds the file through a detector sized for the file's own
// sample rate, windows advancing by half a window.
func analyzeFile(settings *conf.Settings, path string, logger *slog.Logger) (*FileResult, error) {
	info, err := myaudio.GetAudioInfo(path)
	if err != nil {
		return nil, err
	}

	det, err := buildDetector(settings, info.SampleRate)
	if err != nil {
		return nil, err
	}

	result := &FileResult{Path: path, Info: info}

	tuning := guitar.StandardTuning()
	if len(settings.Guitar.Tuning) > 0 {
		tuning, err = guitar.TuningFromNames(settings.Guitar.Tuning)
		if err != nil {
			return nil, err
		}
	}

	windowSize := det.WindowSize()
	hop := windowSize / 2
	var processed int

	start := time.Now()
	err = myaudio.ReadAudioFileBuffered(path, windowSize, hop, func(samples []float32) error {
		tick := det.Process(samples)
		if tick.Outcome == detector.OutcomeHighlighted {
			frets := make([]int, len(tuning))
			guitar.MapNoteInto(tick.Note, tuning, settings.Guitar.Frets, frets)
			result.Detections = append(result.Detections, FileDetection{
				Offset:    time.Duration(processed) * time.Second / time.Duration(info.SampleRate),
				Note:      tick.Note,
				NoteName:  guitar.SemitoneName(tick.Note),
				Frequency: tick.Estimate.Frequency(info.SampleRate),
				Quality:   tick.Estimate.Quality,
				Frets:     frets,
			})
		}
		processed += hop
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("file analyzed",
		"path", path,
		"sample_rate", info.SampleRate,
		"detections", len(result.Detections),
		"duration", time.Since(start))
	return result, nil
}

func printFileResult(result *FileResult) {
	fmt.Printf("%s (%d Hz, %d samples)\n", result.Path, result.Info.SampleRate, result.Info.TotalSamples)
	if len(result.Detections) == 0 {
		fmt.Println("  no notes detected")
		return
	}
	for _, d := range result.Detections {
		fmt.Printf("  %8s  %-4s %7.2f Hz  quality %.2f  frets %v\n",
			formatOffset(d.Offset), d.NoteName, d.Frequency, d.Quality, d.Frets)
	}
}

// formatOffset renders a file position as m:ss.mmm.
func formatOffset(offset time.Duration) string {
	minutes := int(offset.Minutes())
	seconds := offset.Seconds() - float64(minutes)*60
	return fmt.Sprintf("%d:%06.3f", minutes, seconds)
}
