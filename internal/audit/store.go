// Package audit persists type-check violations to a local SQLite
// database so rejected calls can be inspected after the fact.
package audit

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Violation is one rejected call.
type Violation struct {
	ID       string
	Func     string
	Param    string
	Expected string
	Actual   string
	At       time.Time
}

// Store records violations. A nil *Store is a valid no-op sink.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the violation database at path. ":memory:" is
// accepted for ephemeral stores.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS violations (
		id TEXT PRIMARY KEY,
		func TEXT NOT NULL,
		param TEXT NOT NULL,
		expected TEXT NOT NULL,
		actual TEXT NOT NULL,
		at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a violation. ID and At are filled in when empty.
func (s *Store) Record(v Violation) error {
	if s == nil {
		return nil
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.At.IsZero() {
		v.At = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO violations (id, func, param, expected, actual, at) VALUES (?, ?, ?, ?, ?, ?)",
		v.ID, v.Func, v.Param, v.Expected, v.Actual, v.At,
	)
	if err != nil {
		return fmt.Errorf("recording violation: %w", err)
	}
	return nil
}

// Recent returns the n most recent violations, newest first.
func (s *Store) Recent(n int) ([]Violation, error) {
	if s == nil {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, func, param, expected, actual, at FROM violations ORDER BY at DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying violations: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.ID, &v.Func, &v.Param, &v.Expected, &v.Actual, &v.At); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Count returns the total number of recorded violations.
func (s *Store) Count() (int, error) {
	if s == nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM violations").Scan(&n)
	return n, err
}
