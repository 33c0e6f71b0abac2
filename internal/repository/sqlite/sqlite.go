// Package sqlite implements the repository interfaces using SQLite as the
// Record Store.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. The database lives in a single file (DB_PATH); tests use
// ":memory:".
//
// Calendar dates (start_date, end_date) are stored as TEXT in ISO form
// (YYYY-MM-DD). That keeps range filters and ORDER BY correct with plain
// string comparison. Timestamps use DATETIME columns, which the driver maps
// to time.Time.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const dateLayout = "2006-01-02"

// DB wraps a sql.DB connection pool and implements both
// repository.UserRepository and repository.SickLeaveRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/krankmeldung.db" → file-based database (persistent)
//   - ":memory:"             → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	// Pragmas in the DSN run on every new connection of the pool. Foreign
	// keys are OFF by default in SQLite and projects cascade with their leave.
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dsn := dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is its own empty database, so the pool
	// must never open a second one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			manager       TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sick_leaves (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			start_date         TEXT NOT NULL,
			end_date           TEXT NOT NULL,
			customer_info_type TEXT NOT NULL,
			substitute_name    TEXT NOT NULL DEFAULT '',
			customer_contact   TEXT NOT NULL DEFAULT '',
			tasks              TEXT NOT NULL DEFAULT '',
			cc_recipients      TEXT NOT NULL DEFAULT '[]',
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sick_leaves_user_start ON sick_leaves(user_id, start_date);
	`)
	if err != nil {
		return fmt.Errorf("creating sick_leaves table: %w", err)
	}

	// position keeps projects in the order they were submitted.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id            TEXT PRIMARY KEY,
			sick_leave_id TEXT NOT NULL REFERENCES sick_leaves(id) ON DELETE CASCADE,
			position      INTEGER NOT NULL,
			customer      TEXT NOT NULL CHECK (length(customer) > 0),
			project       TEXT NOT NULL CHECK (length(project) > 0)
		);
		CREATE INDEX IF NOT EXISTS idx_projects_sick_leave ON projects(sick_leave_id, position);
	`)
	if err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
