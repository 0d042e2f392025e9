package guitar

// Strings is the number of strings on a standard guitar.
const Strings = 6

// Frets is the default number of frets on a standard guitar.
const Frets = 22

// NotPlayable marks a string that cannot produce the requested note.
const NotPlayable = -1

// StandardTuning returns the open-string semitones of a standard tuned
// guitar, first string (high E) first.
func StandardTuning() []Semitone {
	return []Semitone{
		43, // E4
		38, // B3
		34, // G3
		29, // D3
		24, // A2
		19, // E2
	}
}

// TuningFromNames parses a tuning given as note labels, e.g.
// ["E4" "B3" "G3" "D3" "A2" "E2"]. Order is preserved.
func TuningFromNames(names []string) ([]Semitone, error) {
	tuning := make([]Semitone, len(names))
	for i, name := range names {
		st, err := ParseNote(name)
		if err != nil {
			return nil, err
		}
		tuning[i] = st
	}
	return tuning, nil
}

// MapNote computes the fret on which the note can be played for every string
// of the given tuning. Open string is fret 0, NotPlayable means the note is
// below the open string or above maxFrets. The first return value is the
// number of strings that can play the note.
func MapNote(note Semitone, tuning []Semitone, maxFrets int) (int, []int) {
	frets := make([]int, len(tuning))
	valid := 0

	for i, open := range tuning {
		fret := int(note - open)
		if fret < 0 || fret > maxFrets {
			frets[i] = NotPlayable
			continue
		}
		frets[i] = fret
		valid++
	}

	return valid, frets
}

// MapNoteInto is the allocation-free variant of MapNote for callers on the
// analysis path. The frets slice must have the same length as tuning.
func MapNoteInto(note Semitone, tuning []Semitone, maxFrets int, frets []int) int {
	valid := 0
	for i, open := range tuning {
		fret := int(note - open)
		if fret < 0 || fret > maxFrets {
			frets[i] = NotPlayable
			continue
		}
		frets[i] = fret
		valid++
	}
	return valid
}
