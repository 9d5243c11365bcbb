// Package database opens the sqlite region store and owns its schema.
package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/killallgit/transcript-sync/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BusyTimeout is how long a file database waits on a locked table before
// failing a statement
const BusyTimeout = 5 * time.Second

// ErrNotOpen is returned by operations on a nil or closed-over DB
var ErrNotOpen = errors.New("database not initialized")

// DB wraps the gorm connection to the region store
type DB struct {
	*gorm.DB
	inMemory bool
}

// TableState reports whether one owned table exists
type TableState struct {
	Name    string
	Present bool
}

// Open connects to the region store at path. An empty path or ":memory:"
// opens a private in-memory store on a single connection. File stores run in
// WAL mode so snapshot reads do not block the writer.
func Open(path string, verbose bool) (*DB, error) {
	inMemory := path == "" || path == ":memory:"

	if !inMemory {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	logLevel := logger.Error
	if verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn(path, inMemory)), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if inMemory {
		// every pooled connection would open its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	return &DB{DB: db, inMemory: inMemory}, nil
}

// dsn adds the connection options of a file store to path
func dsn(path string, inMemory bool) string {
	if inMemory {
		return ":memory:"
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", path, BusyTimeout.Milliseconds())
}

// ConfigurePool sizes the connection pool of a file database. Zero values
// keep the driver defaults. In-memory databases stay on one connection.
func (db *DB) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	if db.inMemory {
		return nil
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(maxLifetime)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the store answers within ctx
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.DB == nil {
		return ErrNotOpen
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Models lists every model the store owns
func Models() []any {
	return []any{&models.RegionRecord{}}
}

// Migrate creates or updates every owned table. Nothing is dropped.
func (db *DB) Migrate() error {
	owned := Models()
	if err := db.DB.AutoMigrate(owned...); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	log.Printf("Database: migrated %d model(s)", len(owned))
	return nil
}

// Tables reports which owned tables exist
func (db *DB) Tables() []TableState {
	migrator := db.Migrator()
	var states []TableState
	for _, model := range Models() {
		states = append(states, TableState{Name: tableName(model), Present: migrator.HasTable(model)})
	}
	return states
}

func tableName(model any) string {
	if t, ok := model.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", model)
}
