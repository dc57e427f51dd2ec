// Package sqlite implements the repository interfaces on SQLite, for local
// development without an AWS account or DynamoDB Local.
//
// WHY A SECOND BACKEND?
// The production store is DynamoDB. Running the whole portal on a laptop
// should not need AWS credentials, so STORE_BACKEND=sqlite swaps in this
// package. It honours the same contract as repository/dynamodb: misses
// return (nil, nil), deletes are idempotent, updates touch only the
// ProfileUpdate whitelist and fail with ErrNotFound on a missing row.
//
// WHY modernc.org/sqlite?
// Pure Go, no CGo, so `go build` works everywhere without a C toolchain.
//
// TIMESTAMPS are stored as RFC 3339 TEXT (same format as the DynamoDB
// items) and parsed back in Go, so both backends round-trip identically.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/vaccine-portal/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/portal.db" → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// Every new connection to ":memory:" gets its own empty database. Pinning
	// the pool to one connection keeps tests (and the dev server) on the
	// schema that migrate() created.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}

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

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every start.
//
// There are deliberately no foreign keys: deleting a user leaves their chat
// history in place, the same as the DynamoDB table.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			email         TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL DEFAULT '',
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			date_of_birth TEXT NOT NULL DEFAULT '',
			gender        TEXT NOT NULL DEFAULT '',
			phone         TEXT NOT NULL DEFAULT '',
			address       TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'user',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One link per (email, provider).
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS oauth_links (
			email       TEXT NOT NULL,
			provider    TEXT NOT NULL,
			provider_id TEXT NOT NULL DEFAULT '',
			first_name  TEXT NOT NULL DEFAULT '',
			last_name   TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			PRIMARY KEY (email, provider)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating oauth_links table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS chat_sessions (
			user_id    TEXT NOT NULL,
			id         TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			session_id TEXT NOT NULL,
			id         TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, id)
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_created_at ON chat_messages(session_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating chat tables: %w", err)
	}

	// questions is filled by the tagging service in production. Locally it
	// stays empty unless seeded by hand; tags are a JSON array.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id        TEXT PRIMARY KEY,
			question  TEXT NOT NULL,
			tags      TEXT NOT NULL DEFAULT '[]',
			timestamp TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("creating questions table: %w", err)
	}

	return nil
}

// timeLayout is fixed width so that text order in ORDER BY matches time
// order; RFC3339Nano trims trailing zeros from the fraction.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
