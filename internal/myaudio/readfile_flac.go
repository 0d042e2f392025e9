package myaudio

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/tphakala/flac"
)

func readFLACInfo(file *os.File) (AudioInfo, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return AudioInfo{}, err
	}

	return AudioInfo{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}, nil
}

func readFLACBuffered(file *os.File, w *chunkWindower) error {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return err
	}

	channels := decoder.NChannels
	if channels < 1 {
		channels = 1
	}
	bytesPerSample := decoder.BitsPerSample / 8
	frameStride := bytesPerSample * channels

	var mono []float32

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		mono = mono[:0]
		for i := 0; i+frameStride <= len(frame); i += frameStride {
			var sum float32
			for c := 0; c < channels; c++ {
				off := i + c*bytesPerSample
				var sample int32
				switch decoder.BitsPerSample {
				case 16:
					sample = int32(int16(binary.LittleEndian.Uint16(frame[off:])))
				case 24:
					sample = int32(frame[off]) | int32(frame[off+1])<<8 | int32(frame[off+2])<<16
					// Sign extend from 24 bits.
					if sample&0x800000 != 0 {
						sample |= ^int32(0xffffff)
					}
				case 32:
					sample = int32(binary.LittleEndian.Uint32(frame[off:]))
				}
				sum += float32(sample) / divisor
			}
			mono = append(mono, sum/float32(channels))
		}

		if err := w.push(mono); err != nil {
			return err
		}
	}

	return nil
}
