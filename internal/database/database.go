// Package database provides database access for the token store and the
// call journal
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates all required tables
func (db *DB) Migrate() error {
	schema := `
	-- Sealed auth tokens, one per API key
	CREATE TABLE IF NOT EXISTS tokens (
		api_key VARCHAR(64) PRIMARY KEY,
		sealed BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	-- Call journal
	CREATE TABLE IF NOT EXISTS api_calls (
		id UUID PRIMARY KEY,
		method VARCHAR(255) NOT NULL,
		outcome VARCHAR(32) NOT NULL,
		http_status INTEGER NOT NULL,
		error_code INTEGER NOT NULL DEFAULT 0,
		cached BOOLEAN NOT NULL DEFAULT FALSE,
		duration_ms BIGINT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_api_calls_requested ON api_calls(requested_at);
	CREATE INDEX IF NOT EXISTS idx_api_calls_method ON api_calls(method);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Reset drops all tables (for testing)
func (db *DB) Reset() error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS api_calls CASCADE;
		DROP TABLE IF EXISTS tokens CASCADE;
	`)
	return err
}

// CleanData truncates all tables without dropping them (for testing)
func (db *DB) CleanData() error {
	_, err := db.Exec(`TRUNCATE TABLE api_calls, tokens;`)
	return err
}
