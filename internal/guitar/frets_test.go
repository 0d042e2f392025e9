package guitar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardTuning(t *testing.T) {
	t.Parallel()

	tuning := StandardTuning()
	require.Len(t, tuning, Strings)

	assert.Equal(t, NoteToSemitones("E", 4), tuning[0])
	assert.Equal(t, NoteToSemitones("B", 3), tuning[1])
	assert.Equal(t, NoteToSemitones("G", 3), tuning[2])
	assert.Equal(t, NoteToSemitones("D", 3), tuning[3])
	assert.Equal(t, NoteToSemitones("A", 2), tuning[4])
	assert.Equal(t, NoteToSemitones("E", 2), tuning[5])
}

func TestTuningFromNames(t *testing.T) {
	t.Parallel()

	tuning, err := TuningFromNames([]string{"E4", "B3", "G3", "D3", "A2", "E2"})
	require.NoError(t, err)
	assert.Equal(t, StandardTuning(), tuning)

	_, err = TuningFromNames([]string{"E4", "X9"})
	assert.Error(t, err)
}

func TestMapNote(t *testing.T) {
	t.Parallel()

	tuning := StandardTuning()

	tests := []struct {
		name string
		note Semitone
		want []int
	}{
		// Open strings: fret 0 on their own string, unplayable on lower ones.
		{"open_high_e", NoteToSemitones("E", 4), []int{0, 5, 9, 14, 19, -1}},
		{"open_b", NoteToSemitones("B", 3), []int{-1, 0, 4, 9, 14, 19}},
		{"open_g", NoteToSemitones("G", 3), []int{-1, -1, 0, 5, 10, 15}},
		{"open_d", NoteToSemitones("D", 3), []int{-1, -1, -1, 0, 5, 10}},
		{"open_a", NoteToSemitones("A", 2), []int{-1, -1, -1, -1, 0, 5}},
		{"open_low_e", NoteToSemitones("E", 2), []int{-1, -1, -1, -1, -1, 0}},

		// A minor pentatonic positions.
		{"c3", NoteToSemitones("C", 3), []int{-1, -1, -1, -1, 3, 8}},
		{"e3", NoteToSemitones("E", 3), []int{-1, -1, -1, 2, 7, 12}},
		{"a3", NoteToSemitones("A", 3), []int{-1, -1, 2, 7, 12, 17}},
		{"c4", NoteToSemitones("C", 4), []int{-1, 1, 5, 10, 15, 20}},
		{"d4", NoteToSemitones("D", 4), []int{-1, 3, 7, 12, 17, 22}},
		{"g4", NoteToSemitones("G", 4), []int{3, 8, 12, 17, 22, -1}},
		{"a4", NoteToSemitones("A", 4), []int{5, 10, 14, 19, -1, -1}},
		{"c5", NoteToSemitones("C", 5), []int{8, 13, 17, 22, -1, -1}},

		// Out of instrument range in both directions.
		{"below_lowest", NoteToSemitones("C", 1), []int{-1, -1, -1, -1, -1, -1}},
		{"above_highest", NoteToSemitones("C", 8), []int{-1, -1, -1, -1, -1, -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			valid, frets := MapNote(tc.note, tuning, Frets)
			assert.Equal(t, tc.want, frets)

			wantValid := 0
			for _, f := range tc.want {
				if f >= 0 {
					wantValid++
				}
			}
			assert.Equal(t, wantValid, valid)
		})
	}
}

func TestMapNoteInto_MatchesMapNote(t *testing.T) {
	t.Parallel()

	tuning := StandardTuning()
	frets := make([]int, len(tuning))

	for note := Semitone(0); note <= 79; note++ {
		wantValid, want := MapNote(note, tuning, Frets)
		valid := MapNoteInto(note, tuning, Frets, frets)

		assert.Equal(t, wantValid, valid, "semitone %d", note)
		assert.Equal(t, want, frets, "semitone %d", note)
	}
}
