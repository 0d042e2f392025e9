// Package guitar provides conversions between note names, semitones,
// frequencies and playable fret positions.
//
// Semitones are the common unit for all note math: they are integers, they
// form a linear scale (frequencies are exponential), and on a guitar the
// distance between one fret and the next is exactly one semitone. Semitones
// are counted from A0, the lowest note of a piano, which is semitone 0.
package guitar

import (
	"math"
	"strconv"

	"github.com/jtoivola/fretwatch-go/internal/errors"
)

// Semitone is a signed semitone offset from A0.
type Semitone int

// InvalidSemitone marks a note that could not be determined. It sits far
// outside the audible range so arithmetic on valid notes can never produce it.
const InvalidSemitone Semitone = math.MinInt16

// A0 is the reference pitch in Hz for semitone 0.
const A0 = 27.5

// noteIntervals maps note letters A..G to their semitone distance from A
// within the same octave numbering. Octaves increment at C, hence the
// negative values for C through G below A.
var noteIntervals = [7]Semitone{0, 2, -9, -7, -5, -4, -2}

// NoteToSemitones converts an English note name and octave to semitones from
// A0. A trailing '#' raises and 'b' lowers by one semitone; B#, Cb, E# and Fb
// are accepted, doubled accidentals are not.
func NoteToSemitones(name string, octave int) Semitone {
	if name == "" {
		return InvalidSemitone
	}

	letter := name[0]
	switch {
	case letter >= 'A' && letter <= 'G':
		letter -= 'A'
	case letter >= 'a' && letter <= 'g':
		letter -= 'a'
	default:
		return InvalidSemitone
	}

	st := Semitone(octave)*12 + noteIntervals[letter]

	rest := name[1:]
	switch rest {
	case "":
	case "#":
		st++
	case "b":
		st--
	default:
		return InvalidSemitone
	}

	return st
}

// ParseNote converts a compact note label such as "E2", "F#3" or "Bb1" to
// semitones from A0. The octave is the trailing decimal digits.
func ParseNote(label string) (Semitone, error) {
	split := len(label)
	for split > 0 && label[split-1] >= '0' && label[split-1] <= '9' {
		split--
	}
	if split == 0 || split == len(label) {
		return InvalidSemitone, errors.Newf("invalid note %q", label).
			Component("guitar").
			Category(errors.CategoryValidation).
			Context("note", label).
			Build()
	}

	octave := 0
	for _, c := range label[split:] {
		octave = octave*10 + int(c-'0')
	}

	st := NoteToSemitones(label[:split], octave)
	if st == InvalidSemitone {
		return InvalidSemitone, errors.Newf("invalid note %q", label).
			Component("guitar").
			Category(errors.CategoryValidation).
			Context("note", label).
			Build()
	}
	return st, nil
}

// noteNames spells semitones within an octave starting from A, sharps only.
var noteNames = [12]string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"}

// SemitoneName returns the note label for a semitone value, e.g. "E2" for 19.
// Returns "none" for InvalidSemitone.
func SemitoneName(note Semitone) string {
	if note == InvalidSemitone {
		return "none"
	}

	idx := int(note) % 12
	if idx < 0 {
		idx += 12
	}

	// Octaves are counted from C, three semitones above A.
	octave := (int(note) + 9) / 12
	if int(note)+9 < 0 && (int(note)+9)%12 != 0 {
		octave--
	}

	return noteNames[idx] + strconv.Itoa(octave)
}

// SemitoneToFrequency returns the frequency in Hz of a semitone value using
// the formula f = A0 * 2^(n/12).
func SemitoneToFrequency(note Semitone) float64 {
	if note == InvalidSemitone {
		return -1.0
	}
	return A0 * math.Pow(2, float64(note)/12.0)
}

// NoteToFrequency returns the frequency in Hz of a named note, or -1 if the
// name is not a valid note.
func NoteToFrequency(name string, octave int) float64 {
	return SemitoneToFrequency(NoteToSemitones(name, octave))
}

// FrequencyToSemitones converts a frequency to the nearest semitone from A0.
// The returned ratio is the frequency of that semitone divided by the input
// frequency, so a perfectly tuned input yields 1.0. Pass nil to ignore it.
//
// Zero and negative frequencies are rejected; very small positive values
// still produce usable logarithms.
func FrequencyToSemitones(frequency float64, ratio *float64) Semitone {
	if frequency <= 0.0 {
		return InvalidSemitone
	}

	note := Semitone(math.Round(math.Log2(frequency/A0) * 12))

	if ratio != nil {
		*ratio = SemitoneToFrequency(note) / frequency
	}

	return note
}
