package myaudio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jtoivola/fretwatch-go/internal/errors"
)

// AudioInfo holds the format of a decodable audio file.
type AudioInfo struct {
	SampleRate   int
	TotalSamples int // per channel
	NumChannels  int
	BitDepth     int
}

// AudioChunkCallback receives one analysis window of mono samples. The slice
// is reused between calls; the callback must not retain it.
type AudioChunkCallback func(chunk []float32) error

// GetAudioInfo returns the format of a WAV or FLAC file without decoding the
// audio payload.
func GetAudioInfo(filePath string) (AudioInfo, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return AudioInfo{}, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".wav":
		return readWAVInfo(file)
	case ".flac":
		return readFLACInfo(file)
	default:
		return AudioInfo{}, errors.Newf("unsupported audio file format: %s", filepath.Ext(filePath)).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Context("file", filepath.Base(filePath)).
			Build()
	}
}

// ReadAudioFileBuffered decodes a WAV or FLAC file and delivers overlapping
// analysis windows of windowSize mono samples, advancing by hop samples
// between windows. Multichannel audio is downmixed by averaging. A trailing
// partial window at least half full is zero padded and delivered last.
func ReadAudioFileBuffered(filePath string, windowSize, hop int, callback AudioChunkCallback) error {
	if windowSize <= 0 || hop <= 0 || hop > windowSize {
		return errors.Newf("invalid windowing: window %d, hop %d", windowSize, hop).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := &chunkWindower{
		windowSize: windowSize,
		hop:        hop,
		callback:   callback,
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".wav":
		err = readWAVBuffered(file, w)
	case ".flac":
		err = readFLACBuffered(file, w)
	default:
		return errors.Newf("unsupported audio file format: %s", filepath.Ext(filePath)).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Context("file", filepath.Base(filePath)).
			Build()
	}
	if err != nil {
		return err
	}

	return w.flush()
}

// getAudioDivisor returns the conversion divisor from integer PCM samples to
// the [-1, 1] float range for the given bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported audio bit depth: %d", bitDepth).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}
}

// chunkWindower accumulates decoded mono samples and emits fixed analysis
// windows with the configured hop.
type chunkWindower struct {
	windowSize int
	hop        int
	callback   AudioChunkCallback
	pending    []float32
}

// push appends decoded samples and fires the callback for every complete
// window now available.
func (w *chunkWindower) push(samples []float32) error {
	w.pending = append(w.pending, samples...)

	for len(w.pending) >= w.windowSize {
		if err := w.callback(w.pending[:w.windowSize]); err != nil {
			return err
		}
		w.pending = w.pending[w.hop:]
	}
	return nil
}

// flush emits the trailing partial window, zero padded, when it holds at
// least half a window of real audio.
func (w *chunkWindower) flush() error {
	if len(w.pending) < w.windowSize/2 {
		return nil
	}
	for len(w.pending) < w.windowSize {
		w.pending = append(w.pending, 0)
	}
	return w.callback(w.pending)
}
