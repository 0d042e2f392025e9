// Package myaudio bridges the audio capture backend and the analysis loop.
//
// The central type is SampleRing, a lock-free single-producer single-consumer
// ring of float32 frames. The capture callback is the only writer and the
// analysis loop the only reader; correctness relies on each cursor having
// exactly one writing goroutine, with atomic loads and stores providing the
// cross-thread handoff.
package myaudio

import (
	"sync/atomic"

	"github.com/jtoivola/fretwatch-go/internal/errors"
)

// ErrRingOverflow is returned by WriterReserve when free space is below the
// producer's minimum. It is a plain sentinel so the real-time capture path
// never allocates; the session owner wraps it with context. Overflow means
// the consumer cannot keep up and is fatal for the session.
var ErrRingOverflow = errors.NewStd("sample ring overflow")

// Region is a view into the ring. Because the ring wraps, a contiguous span
// of frames may map to two slices; Second is empty when no wrap occurred.
// Lengths are in samples, Frames counts frames.
type Region struct {
	First  []float32
	Second []float32
	Frames int
}

// Samples returns the region size in samples.
func (reg Region) Samples() int {
	return len(reg.First) + len(reg.Second)
}

// CopyTo copies the region's samples into dst, returning the number copied.
// Used by the consumer to obtain the contiguous window the estimator needs.
func (reg Region) CopyTo(dst []float32) int {
	n := copy(dst, reg.First)
	n += copy(dst[n:], reg.Second)
	return n
}

// Zero fills the first frames of the region with silence. The capture
// callback uses it for driver holes so that uninitialized memory is never
// published to the consumer.
func (reg Region) Zero(offset, samples int) {
	for i := offset; i < offset+samples; i++ {
		reg.Set(i, 0)
	}
}

// Set writes one sample at the given region-relative index.
func (reg Region) Set(i int, v float32) {
	if i < len(reg.First) {
		reg.First[i] = v
		return
	}
	reg.Second[i-len(reg.First)] = v
}

// SampleRing is a fixed-capacity circular buffer of audio frames. Cursors
// are monotonically increasing frame counts; the fill level, their distance,
// is the only datum shared between the two goroutines. All operations are
// non-blocking and allocation free.
type SampleRing struct {
	data      []float32
	capacity  int // frames
	frameSize int // samples per frame

	writePos atomic.Uint64 // owned by the producer
	readPos  atomic.Uint64 // owned by the consumer

	reserved int // frames handed out by the last WriterReserve, producer-owned
}

// NewSampleRing allocates a ring holding capacityFrames frames of
// frameSize samples each. Capacity is fixed for the ring's lifetime.
func NewSampleRing(capacityFrames, frameSize int) (*SampleRing, error) {
	if capacityFrames <= 0 {
		return nil, errors.Newf("ring capacity must be positive, got %d frames", capacityFrames).
			Component("myaudio").
			Category(errors.CategoryBuffer).
			Build()
	}
	if frameSize <= 0 {
		return nil, errors.Newf("frame size must be positive, got %d samples", frameSize).
			Component("myaudio").
			Category(errors.CategoryBuffer).
			Build()
	}

	return &SampleRing{
		data:      make([]float32, capacityFrames*frameSize),
		capacity:  capacityFrames,
		frameSize: frameSize,
	}, nil
}

// Capacity returns the ring capacity in frames.
func (r *SampleRing) Capacity() int {
	return r.capacity
}

// FrameSize returns the number of samples per frame.
func (r *SampleRing) FrameSize() int {
	return r.frameSize
}

// fill returns the current number of readable frames.
func (r *SampleRing) fill() int {
	return int(r.writePos.Load() - r.readPos.Load())
}

// region maps a span of frames starting at the given absolute frame position
// onto the underlying buffer, splitting at the wrap point.
func (r *SampleRing) region(pos uint64, frames int) Region {
	start := int(pos%uint64(r.capacity)) * r.frameSize
	total := frames * r.frameSize

	if start+total <= len(r.data) {
		return Region{First: r.data[start : start+total], Frames: frames}
	}
	return Region{
		First:  r.data[start:],
		Second: r.data[:total-(len(r.data)-start)],
		Frames: frames,
	}
}

// WriterReserve returns a writable region of at least minFrames and at most
// maxFrames frames. It returns ErrRingOverflow when free space is below
// minFrames, which the caller must treat as fatal for the session. Producer
// side only.
func (r *SampleRing) WriterReserve(minFrames, maxFrames int) (Region, error) {
	free := r.capacity - r.fill()
	if free < minFrames {
		return Region{}, ErrRingOverflow
	}

	frames := maxFrames
	if free < frames {
		frames = free
	}
	r.reserved = frames

	return r.region(r.writePos.Load(), frames), nil
}

// WriterCommit publishes frames written into the region handed out by the
// last WriterReserve and advances the write cursor. Committing less than was
// reserved is allowed; the tail of the reservation simply stays unpublished.
// Producer side only.
func (r *SampleRing) WriterCommit(frames int) error {
	if frames < 0 || frames > r.reserved {
		return errors.Newf("commit of %d frames exceeds reservation of %d", frames, r.reserved).
			Component("myaudio").
			Category(errors.CategoryBuffer).
			Build()
	}
	r.reserved = 0
	r.writePos.Add(uint64(frames))
	return nil
}

// ReaderAvailable returns the number of frames ready to read. Consumer side
// only.
func (r *SampleRing) ReaderAvailable() int {
	return r.fill()
}

// ReaderView returns the readable region covering every currently available
// frame. The region stays valid until ReaderAdvance. Consumer side only.
func (r *SampleRing) ReaderView() Region {
	return r.region(r.readPos.Load(), r.fill())
}

// ReaderAdvance consumes frames from the ring. Advancing past the current
// fill count is rejected rather than clamped, since it always indicates a
// consumer bookkeeping bug. Consumer side only.
func (r *SampleRing) ReaderAdvance(frames int) error {
	if frames < 0 || frames > r.fill() {
		return errors.Newf("advance of %d frames exceeds fill of %d", frames, r.fill()).
			Component("myaudio").
			Category(errors.CategoryBuffer).
			Context("operation", "reader_advance").
			Build()
	}
	r.readPos.Add(uint64(frames))
	return nil
}
