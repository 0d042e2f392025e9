package myaudio

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/jtoivola/fretwatch-go/internal/errors"
)

func readWAVInfo(file *os.File) (AudioInfo, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return AudioInfo{}, errors.Newf("invalid WAV file format").
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return AudioInfo{}, errors.Newf("unsupported WAV bit depth: %d", decoder.BitDepth).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	if decoder.NumChans != 1 && decoder.NumChans != 2 {
		return AudioInfo{}, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return AudioInfo{}, err
	}

	bytesPerSample := int(decoder.BitDepth / 8)
	totalSamples := int(fileInfo.Size()) / bytesPerSample / int(decoder.NumChans)

	return AudioInfo{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

func readWAVBuffered(file *os.File, w *chunkWindower) error {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return errors.Newf("input is not a valid WAV audio file").
			Component("myaudio").
			Category(errors.CategoryValidation).
			Build()
	}

	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return err
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		channels = 1
	}

	// One second of decode buffer regardless of channel count.
	bufferSize := int(decoder.SampleRate) * channels
	if bufferSize == 0 {
		bufferSize = 44100
	}
	buf := &audio.IntBuffer{
		Data: make([]int, bufferSize),
		Format: &audio.Format{
			SampleRate:  int(decoder.SampleRate),
			NumChannels: channels,
		},
	}

	mono := make([]float32, 0, bufferSize/channels)

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}

		// Downmix interleaved frames by averaging channels.
		mono = mono[:0]
		for i := 0; i+channels <= n; i += channels {
			var sum float32
			for c := 0; c < channels; c++ {
				sum += float32(buf.Data[i+c]) / divisor
			}
			mono = append(mono, sum/float32(channels))
		}

		if err := w.push(mono); err != nil {
			return err
		}
	}

	return nil
}
