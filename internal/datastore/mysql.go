package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/errors"
)

// MySQLStore implements the datastore on a MySQL server.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open connects to the configured MySQL server and migrates the schema.
func (store *MySQLStore) Open() error {
	cfg := store.Settings.Output.MySQL
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(store.Settings.Debug))
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("engine", "mysql").
			Context("host", cfg.Host).
			Context("database", cfg.Database).
			Build()
	}

	store.DB = db
	store.logger.Info("mysql datastore opened", "host", cfg.Host, "database", cfg.Database)
	return performAutoMigration(db, "mysql")
}

// Close releases the database connection.
func (store *MySQLStore) Close() error {
	return store.close()
}
