package trace

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists dispatch records to SQLite.
// It is suitable for single-process host-side use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite trace store.
// The path should be a file path (e.g., "./trace.db") or ":memory:"
// for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatch_records (
			session TEXT NOT NULL,
			seq INTEGER NOT NULL,
			at TEXT NOT NULL,
			queue TEXT NOT NULL,
			kind INTEGER NOT NULL,
			payload BLOB,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (session, seq)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_dispatch_records_session
		ON dispatch_records(session)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append adds a record to the journal.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatch_records
			(session, seq, at, queue, kind, payload, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Session, rec.Seq, rec.At.UTC().Format(time.RFC3339Nano),
		rec.Queue, rec.Kind, rec.Payload, rec.Outcome, rec.Error)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// List returns all records for a session in sequence order.
func (s *SQLiteStore) List(ctx context.Context, session string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, at, queue, kind, payload, outcome, error
		FROM dispatch_records
		WHERE session = ?
		ORDER BY seq
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var at string
		if err := rows.Scan(&rec.Session, &rec.Seq, &at, &rec.Queue,
			&rec.Kind, &rec.Payload, &rec.Outcome, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Sessions returns the distinct session IDs in the store.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT session FROM dispatch_records ORDER BY session
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
