package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't handle concurrent writes well
	db.SetMaxIdleConns(1)

	return &DB{db}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationUsers,
		migrationWatches,
		migrationPriceObservations,
		migrationClicks,
		migrationPriceCache,
		migrationIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const migrationWatches = `
CREATE TABLE IF NOT EXISTS watches (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	keywords TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	max_price INTEGER NOT NULL DEFAULT 0,
	min_discount INTEGER NOT NULL DEFAULT 0,
	asin TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

	FOREIGN KEY (user_id) REFERENCES users(id)
);
`

const migrationPriceObservations = `
CREATE TABLE IF NOT EXISTS price_observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	watch_id TEXT NOT NULL,
	asin TEXT NOT NULL,
	price INTEGER NOT NULL,
	source TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,

	FOREIGN KEY (watch_id) REFERENCES watches(id)
);
`

const migrationClicks = `
CREATE TABLE IF NOT EXISTS clicks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	watch_id TEXT NOT NULL,
	asin TEXT NOT NULL,
	clicked_at DATETIME NOT NULL,

	FOREIGN KEY (watch_id) REFERENCES watches(id)
);
`

// price_cache carries no foreign key to watches: it is keyed by ASIN alone
// and outlives any single watch that happens to reference that ASIN.
const migrationPriceCache = `
CREATE TABLE IF NOT EXISTS price_cache (
	asin TEXT PRIMARY KEY,
	price INTEGER NOT NULL,
	source TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	stale_until DATETIME NOT NULL
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_watches_user_id ON watches(user_id);
CREATE INDEX IF NOT EXISTS idx_watches_mode ON watches(mode);
CREATE INDEX IF NOT EXISTS idx_price_observations_watch_id ON price_observations(watch_id);
CREATE INDEX IF NOT EXISTS idx_price_observations_source ON price_observations(source);
CREATE INDEX IF NOT EXISTS idx_clicks_watch_id ON clicks(watch_id);
`
