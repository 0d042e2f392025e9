package datastore

import "time"

// NoteEvent is one persisted detection event.
type NoteEvent struct {
	ID      uint      `gorm:"primaryKey"`
	EventID string    `gorm:"uniqueIndex;size:36"`
	Time    time.Time `gorm:"index"`
	Type    string    `gorm:"size:16;index"` // highlight or clear

	// Note fields, empty on clear events.
	Note      string `gorm:"size:8;index"`
	Semitone  int
	Frequency float64
	Quality   float64
	StringIdx int
	Fret      int

	Source string `gorm:"size:64"`
}

// NoteCount is a per-note roll-up of highlight events.
type NoteCount struct {
	Note  string
	Count int64
}
