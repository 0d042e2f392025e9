// Package datastore persists note events and serves the queries behind the
// stats command and the HTTP API.
package datastore

import (
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/errors"
	"github.com/jtoivola/fretwatch-go/internal/logging"
	"github.com/jtoivola/fretwatch-go/internal/observability/metrics"
)

// Interface abstracts the underlying database engine.
type Interface interface {
	Open() error
	Close() error
	Save(event *NoteEvent) error
	GetRecentEvents(limit int) ([]NoteEvent, error)
	CountByNote() ([]NoteCount, error)
	CountEventsSince(since time.Time) (int64, error)
}

// DataStore implements the event queries shared by every engine; the
// engine-specific stores embed it and provide Open/Close.
type DataStore struct {
	DB      *gorm.DB
	metrics *metrics.DatastoreMetrics
	logger  *slog.Logger
}

// New returns the datastore configured in the settings, SQLite taking
// precedence when both engines are enabled. metrics may be nil.
func New(settings *conf.Settings, m *metrics.DatastoreMetrics) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: newDataStore(m),
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: newDataStore(m),
			Settings:  settings,
		}
	default:
		return nil
	}
}

func newDataStore(m *metrics.DatastoreMetrics) DataStore {
	logger := logging.ForService("datastore")
	if logger == nil {
		logger = slog.Default()
	}
	return DataStore{metrics: m, logger: logger}
}

// gormConfig returns the shared gorm configuration. Query logging is off
// unless debug mode is set; slow queries always surface.
func gormConfig(debug bool) *gorm.Config {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	}
}

// performAutoMigration creates or updates the schema for the event model.
func performAutoMigration(db *gorm.DB, engine string) error {
	if err := db.AutoMigrate(&NoteEvent{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migration").
			Context("engine", engine).
			Build()
	}
	return nil
}

// Save inserts one note event.
func (ds *DataStore) Save(event *NoteEvent) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	start := time.Now()
	err := ds.DB.Create(event).Error
	if ds.metrics != nil {
		ds.metrics.RecordOperation("save", err, time.Since(start))
		if err == nil {
			ds.metrics.IncrementEventsSaved()
		}
	}
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save").
			Build()
	}
	return nil
}

// GetRecentEvents returns the most recent events, newest first.
func (ds *DataStore) GetRecentEvents(limit int) ([]NoteEvent, error) {
	var events []NoteEvent

	start := time.Now()
	err := ds.DB.Order("time DESC").Limit(limit).Find(&events).Error
	if ds.metrics != nil {
		ds.metrics.RecordOperation("get_recent", err, time.Since(start))
	}
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_recent").
			Build()
	}
	return events, nil
}

// CountByNote returns highlight counts per note, most played first.
func (ds *DataStore) CountByNote() ([]NoteCount, error) {
	var counts []NoteCount

	start := time.Now()
	err := ds.DB.Model(&NoteEvent{}).
		Select("note, count(*) as count").
		Where("type = ?", "highlight").
		Group("note").
		Order("count DESC").
		Scan(&counts).Error
	if ds.metrics != nil {
		ds.metrics.RecordOperation("count_by_note", err, time.Since(start))
	}
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_by_note").
			Build()
	}
	return counts, nil
}

// CountEventsSince returns the number of events recorded after the given
// time.
func (ds *DataStore) CountEventsSince(since time.Time) (int64, error) {
	var count int64

	start := time.Now()
	err := ds.DB.Model(&NoteEvent{}).Where("time > ?", since).Count(&count).Error
	if ds.metrics != nil {
		ds.metrics.RecordOperation("count_since", err, time.Since(start))
	}
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_since").
			Build()
	}
	return count, nil
}

// close releases the underlying connection pool.
func (ds *DataStore) close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
