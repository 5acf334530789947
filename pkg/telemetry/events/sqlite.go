package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	category TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
`

// SQLiteSink appends events to a SQLite table.
type SQLiteSink struct {
	db        *sql.DB
	path      string
	writeStmt *sql.Stmt
	closeOnce sync.Once
}

// StoredEvent is an event as read back from the sink, with the payload
// left as JSON.
type StoredEvent struct {
	ID       string
	Time     time.Time
	Category string
	Kind     Kind
	Payload  json.RawMessage
}

// NewSQLiteSink opens (creating if necessary) an event database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(eventsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	stmt, err := db.Prepare(`
		INSERT INTO events (id, created_at, category, kind, payload)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare write statement: %w", err)
	}

	return &SQLiteSink{
		db:        db,
		path:      path,
		writeStmt: stmt,
	}, nil
}

// Write appends one event.
func (s *SQLiteSink) Write(ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = s.writeStmt.Exec(
		ev.ID,
		ev.Time.UnixNano(),
		ev.Category(),
		string(ev.Kind),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. A non-positive limit
// returns all events.
func (s *SQLiteSink) Recent(limit int) ([]StoredEvent, error) {
	query := `
		SELECT id, created_at, category, kind, payload
		FROM events
		ORDER BY created_at DESC, rowid DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var createdAt int64
		var payload string
		if err := rows.Scan(&ev.ID, &createdAt, &ev.Category, &ev.Kind, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Time = time.Unix(0, createdAt).UTC()
		ev.Payload = json.RawMessage(payload)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

// Close releases the database. Safe to call more than once.
func (s *SQLiteSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.writeStmt != nil {
			s.writeStmt.Close()
		}
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		err = s.db.Close()
	})
	return err
}
