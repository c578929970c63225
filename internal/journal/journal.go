// Package journal records operator actions and their outcomes in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	at_ms        INTEGER NOT NULL,
	action       TEXT    NOT NULL,
	device_index INTEGER NOT NULL,
	device_name  TEXT    NOT NULL DEFAULT '',
	outcome      TEXT    NOT NULL,
	detail       TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_actions_at ON actions (at_ms);
`

// NoIndex marks an entry that is not tied to an existing device (add).
const NoIndex = -1

// Entry is one recorded action.
type Entry struct {
	ID      int64
	At      time.Time
	Action  string
	Index   int
	Name    string
	Outcome string
	Detail  string
}

// Store is a SQLite-backed action journal.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the journal at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends an entry. A zero At is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (at_ms, action, device_index, device_name, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		e.At.UnixMilli(), e.Action, e.Index, e.Name, e.Outcome, e.Detail)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at_ms, action, device_index, device_name, outcome, detail
		 FROM actions ORDER BY at_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var atMS int64
		if err := rows.Scan(&e.ID, &atMS, &e.Action, &e.Index, &e.Name, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		e.At = time.UnixMilli(atMS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DefaultPath returns the default journal location.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "fleetdash", "journal.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "fleetdash-journal.db"
	}
	return filepath.Join(home, ".local", "state", "fleetdash", "journal.db")
}
