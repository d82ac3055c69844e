// Package audit persists a trail of every tool decision and execution.
// Recording is best-effort: a failed insert is the caller's to log, never
// a reason to fail the request.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/execbox/execbox-mcp/internal/errors"
)

// Event is one audited tool invocation.
type Event struct {
	ID        int64
	Timestamp time.Time
	Tool      string
	Command   string
	Allowed   bool
	Success   bool
	Detail    string
}

// Store records and retrieves audit events.
type Store interface {
	Record(event Event) error
	Recent(limit int) ([]Event, error)
	Close() error
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates (or opens) the audit database at dbPath and ensures the
// schema exists.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create audit directory: %v", errors.ErrAudit, err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open audit database: %v", errors.ErrAudit, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		tool TEXT NOT NULL,
		command TEXT NOT NULL,
		allowed BOOLEAN NOT NULL,
		success BOOLEAN NOT NULL,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_tool ON audit_events(tool);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: failed to initialize audit schema: %v", errors.ErrAudit, err)
	}
	return nil
}

// Record inserts one event. A zero Timestamp is filled with the current
// time.
func (s *SQLiteStore) Record(event Event) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO audit_events (timestamp, tool, command, allowed, success, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ts, event.Tool, event.Command, event.Allowed, event.Success, event.Detail)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrAudit, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *SQLiteStore) Recent(limit int) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, tool, command, allowed, success, detail
		FROM audit_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrAudit, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Tool, &e.Command, &e.Allowed, &e.Success, &e.Detail); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Nop is a Store that discards everything; used when auditing is disabled.
type Nop struct{}

func (Nop) Record(Event) error          { return nil }
func (Nop) Recent(int) ([]Event, error) { return nil, nil }
func (Nop) Close() error                { return nil }
