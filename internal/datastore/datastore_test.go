package datastore

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtoivola/fretwatch-go/internal/conf"
)

func sqliteSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "fretwatch.db")
	return settings
}

func openSQLite(t *testing.T) Interface {
	t.Helper()
	store := New(sqliteSettings(t), nil)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeEvent(id int, note string, eventType string, when time.Time) *NoteEvent {
	return &NoteEvent{
		EventID:   fmt.Sprintf("00000000-0000-0000-0000-%012d", id),
		Time:      when,
		Type:      eventType,
		Note:      note,
		Semitone:  24,
		Frequency: 110.0,
		Quality:   0.95,
		StringIdx: 4,
		Fret:      0,
		Source:    "test",
	}
}

func TestNew_PicksEngine(t *testing.T) {
	t.Parallel()

	sqliteEnabled := &conf.Settings{}
	sqliteEnabled.Output.SQLite.Enabled = true
	assert.IsType(t, &SQLiteStore{}, New(sqliteEnabled, nil))

	mysqlEnabled := &conf.Settings{}
	mysqlEnabled.Output.MySQL.Enabled = true
	assert.IsType(t, &MySQLStore{}, New(mysqlEnabled, nil))

	neither := &conf.Settings{}
	assert.Nil(t, New(neither, nil))
}

func TestSQLiteStore_SaveAndQuery(t *testing.T) {
	t.Parallel()

	store := openSQLite(t)

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(makeEvent(1, "A2", "highlight", base)))
	require.NoError(t, store.Save(makeEvent(2, "A2", "highlight", base.Add(time.Second))))
	require.NoError(t, store.Save(makeEvent(3, "E3", "highlight", base.Add(2*time.Second))))
	require.NoError(t, store.Save(makeEvent(4, "", "clear", base.Add(3*time.Second))))

	recent, err := store.GetRecentEvents(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "clear", recent[0].Type)
	assert.Equal(t, "E3", recent[1].Note)

	counts, err := store.CountByNote()
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "A2", counts[0].Note)
	assert.EqualValues(t, 2, counts[0].Count)
	assert.Equal(t, "E3", counts[1].Note)
	assert.EqualValues(t, 1, counts[1].Count)

	total, err := store.CountEventsSince(base.Add(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestSQLiteStore_DuplicateEventIDRejected(t *testing.T) {
	t.Parallel()

	store := openSQLite(t)

	when := time.Now()
	require.NoError(t, store.Save(makeEvent(1, "A2", "highlight", when)))
	assert.Error(t, store.Save(makeEvent(1, "A2", "highlight", when)))
}

func TestSQLiteStore_SaveWithoutOpen(t *testing.T) {
	t.Parallel()

	store := &SQLiteStore{DataStore: newDataStore(nil), Settings: sqliteSettings(t)}
	assert.Error(t, store.Save(makeEvent(1, "A2", "highlight", time.Now())))
}

func TestSQLiteStore_EmptyPathRejected(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	store := &SQLiteStore{DataStore: newDataStore(nil), Settings: settings}
	assert.Error(t, store.Open())
}
