package analysis

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jtoivola/fretwatch-go/internal/analysis/detector"
	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/myaudio"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testRate = 44100

func analysisSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.Name = "test-node"
	settings.Audio.PollInterval = 5
	settings.Audio.RingDuration = 2
	settings.Detection.LowestNote = "E1"
	settings.Detection.HighestNote = "E7"
	settings.Detection.QualityThreshold = 0.85
	settings.Detection.MinAmplitude = 0.1
	settings.Detection.AttackDelta = 0.12
	settings.Guitar.Frets = 17
	return settings
}

// writeSineWAV writes a mono 16-bit PCM file with the given tone.
func writeSineWAV(t *testing.T, path string, freq, amplitude float64, seconds float64) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	encoder := wav.NewEncoder(f, testRate, 16, 1, 1)
	total := int(seconds * testRate)
	data := make([]int, total)
	for i := range data {
		sample := amplitude * math.Sin(2*math.Pi*freq*float64(i)/testRate)
		data[i] = int(sample * 32767)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, encoder.Write(buf))
	require.NoError(t, encoder.Close())
	require.NoError(t, f.Close())
}

func TestBuildDetector(t *testing.T) {
	t.Parallel()

	det, err := buildDetector(analysisSettings(), testRate)
	require.NoError(t, err)
	assert.Equal(t, testRate, det.SampleRate())
	assert.Positive(t, det.WindowSize())
}

func TestBuildDetector_RejectsBadNotes(t *testing.T) {
	t.Parallel()

	settings := analysisSettings()
	settings.Detection.LowestNote = "H9"
	_, err := buildDetector(settings, testRate)
	assert.Error(t, err)
}

func TestNewSessionRing_SizedForPreferredRate(t *testing.T) {
	t.Parallel()

	settings := analysisSettings()
	settings.Audio.PreferredRates = []int{22050, 48000}
	ring, err := newSessionRing(settings)
	require.NoError(t, err)
	assert.Equal(t, 48000*2, ring.Capacity())
}

func TestNewSessionRing_DefaultDurationMatchesConfigDefault(t *testing.T) {
	t.Parallel()

	settings := analysisSettings()
	settings.Audio.PreferredRates = nil
	settings.Audio.RingDuration = 0
	ring, err := newSessionRing(settings)
	require.NoError(t, err)
	assert.Equal(t, 44100*30, ring.Capacity())
}

func TestPitchPipeline_DetectsSineFromRing(t *testing.T) {
	settings := analysisSettings()

	ring, err := newSessionRing(settings)
	require.NoError(t, err)

	det, err := buildDetector(settings, testRate)
	require.NoError(t, err)

	pipeline, err := NewPitchPipeline(settings, ring, det, nil)
	require.NoError(t, err)

	// Preload one second of a clean A2 string tone.
	region, err := ring.WriterReserve(testRate, testRate)
	require.NoError(t, err)
	for i := 0; i < region.Frames; i++ {
		region.Set(i, float32(0.3*math.Sin(2*math.Pi*110.0*float64(i)/testRate)))
	}
	require.NoError(t, ring.WriterCommit(region.Frames))

	var wg sync.WaitGroup
	quitChan := make(chan struct{})
	pipeline.Start(&wg, quitChan)

	var event detector.Event
	select {
	case event = <-det.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a detection event")
	}

	close(quitChan)
	wg.Wait()

	assert.Equal(t, detector.EventHighlight, event.Type)
	assert.Equal(t, "A2", event.NoteName)
	assert.InDelta(t, 110.0, event.Frequency, 1.0)
}

func TestPitchPipeline_RejectsUndersizedRing(t *testing.T) {
	t.Parallel()

	settings := analysisSettings()
	ring, err := myaudio.NewSampleRing(64, 1)
	require.NoError(t, err)

	det, err := buildDetector(settings, testRate)
	require.NoError(t, err)

	_, err = NewPitchPipeline(settings, ring, det, nil)
	assert.Error(t, err)
}

func TestFileAnalysis_DetectsTone(t *testing.T) {
	settings := analysisSettings()

	path := filepath.Join(t.TempDir(), "a2.wav")
	writeSineWAV(t, path, 110.0, 0.5, 2.0)

	result, err := analyzeFile(settings, path, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, testRate, result.Info.SampleRate)
	require.NotEmpty(t, result.Detections)
	first := result.Detections[0]
	assert.Equal(t, "A2", first.NoteName)
	assert.InDelta(t, 110.0, first.Frequency, 1.0)
	require.Len(t, first.Frets, 6)
	assert.Equal(t, 0, first.Frets[4], "A2 is the open fifth string")
}

func TestFileAnalysis_MissingFile(t *testing.T) {
	t.Parallel()

	err := FileAnalysis(analysisSettings(), []string{"/does/not/exist.wav"})
	assert.Error(t, err)
}

func TestFormatOffset(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0:00.000", formatOffset(0))
	assert.Equal(t, "1:02.500", formatOffset(62*time.Second+500*time.Millisecond))
}
