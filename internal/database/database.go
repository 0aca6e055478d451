package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pathakanu/remindbot/internal/model"
)

// Options select the backend. SQLitePath is used only by the sqlite driver.
type Options struct {
	Driver     string
	URL        string
	SQLitePath string
}

// New creates a GORM database connection for the configured driver and
// migrates the reminders table.
func New(opts Options, log *zap.SugaredLogger) (*gorm.DB, error) {
	db, err := Open(opts)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logBackend(db, opts, log)
	return db, nil
}

// Open connects without migrating.
func Open(opts Options) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dialector = postgres.Open(opts.URL)
	case "mysql":
		dialector = mysql.Open(strings.TrimPrefix(opts.URL, "mysql://"))
	case "sqlite", "":
		path := opts.SQLitePath
		if path == "" {
			path = "reminders.db"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", opts.Driver, err)
	}
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Reminder{}); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

func logBackend(db *gorm.DB, opts Options, log *zap.SugaredLogger) {
	dialector := db.Dialector.Name()
	switch strings.ToLower(dialector) {
	case "postgres":
		log.Info("database: connected to PostgreSQL")
	case "mysql":
		log.Info("database: connected to MySQL")
	case "sqlite":
		log.Infof("database: using SQLite %s", opts.SQLitePath)
	default:
		log.Infof("database: connected via %s", dialector)
	}
}
