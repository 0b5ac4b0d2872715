package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the SQLite connection for all garage-scoped stores.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens the database at path, tunes the connection pool and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL mode keeps readers unblocked while reservation writes commit.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS weekly_schedules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			garage_id INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL,
			is_open BOOLEAN NOT NULL DEFAULT 1,
			open_time TEXT NOT NULL,
			close_time TEXT NOT NULL,
			slot_duration INTEGER NOT NULL DEFAULT 60,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (garage_id, day_of_week)
		)`,

		`CREATE TABLE IF NOT EXISTS schedule_exceptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			garage_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			is_closed BOOLEAN NOT NULL DEFAULT 0,
			open_time TEXT,
			close_time TEXT,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (garage_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS time_slot_blocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			garage_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			time_slot TEXT NOT NULL,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (garage_id, date, time_slot)
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL UNIQUE,
			garage_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			time_slot TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			customer_id INTEGER NOT NULL,
			vehicle_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// The core invariant: at most one non-cancelled booking per slot.
		// The partial unique index makes reserve and reschedule atomic at the
		// storage boundary instead of check-then-act in the application.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot
			ON bookings(garage_id, date, time_slot) WHERE status != 'cancelled'`,

		`CREATE INDEX IF NOT EXISTS idx_schedules_garage ON weekly_schedules(garage_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_exceptions_garage_date ON schedule_exceptions(garage_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_garage_date ON time_slot_blocks(garage_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_garage_date ON bookings(garage_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// Any other storage failure must not be interpreted as a business conflict.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Ping checks the connection for readiness probes.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
