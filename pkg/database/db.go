package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dbehnke/dstar-gateway/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Pure Go sqlite driver
	"gorm.io/driver/sqlite"
	_ "modernc.org/sqlite"
)

const (
	// DefaultPath is the database file used when none is configured
	DefaultPath = "dstar-gateway.db"
	// MemoryPath keeps the database in memory for the life of the process
	MemoryPath = ":memory:"
)

// models lists every table the gateway keeps
var models = []interface{}{
	&Transmission{},
	&HeaderLog{},
	&HostEntry{},
	&UserRoute{},
}

// pragmas tune sqlite for one writer (the journal) alongside the web
// readers. WAL does not apply to memory databases.
var pragmas = []struct {
	stmt string
	file bool
}{
	{"PRAGMA journal_mode=WAL", true},
	{"PRAGMA synchronous=NORMAL", false},
	{"PRAGMA busy_timeout=5000", false},
}

// DB is the gateway's sqlite store
type DB struct {
	db     *gorm.DB
	path   string
	logger *logger.Logger
}

// Config holds database configuration
type Config struct {
	Path string // sqlite file, or MemoryPath
}

// NewDB opens the database at cfg.Path and migrates the schema
func NewDB(cfg Config, log *logger.Logger) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	memory := cfg.Path == MemoryPath
	log = log.WithComponent("database")

	if dir := filepath.Dir(cfg.Path); !memory && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: cfg.Path}, &gorm.Config{
		Logger: gormlogger.New(&gormLogAdapter{log: log}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// Every connection to :memory: is a separate, empty database
	if memory {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	}

	for _, p := range pragmas {
		if p.file && memory {
			continue
		}
		if _, err := sqlDB.Exec(p.stmt); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p.stmt, err)
		}
	}

	if err := db.AutoMigrate(models...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database initialized", logger.String("path", cfg.Path), logger.Bool("memory", memory))

	return &DB{
		db:     db,
		path:   cfg.Path,
		logger: log,
	}, nil
}

// Path returns the database file, with the default applied
func (d *DB) Path() string {
	return d.path
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the underlying GORM database instance
func (d *DB) GetDB() *gorm.DB {
	return d.db
}

// gormLogAdapter sends GORM's slow query and error reports to the gateway log
type gormLogAdapter struct {
	log *logger.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}
