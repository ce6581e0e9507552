// Package state provides SQLite-backed persistence for council.
// It stores only user preferences (last-selected council set, last judge,
// judge isolation); run results are never persisted.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Preference keys.
const (
	KeyLastCouncil    = "last_council"
	KeyLastJudge      = "last_judge"
	KeyJudgeIsolation = "judge_isolation"
)

// Store wraps an SQLite database holding opaque key/value preferences.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the path of the council preference database.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "council", "council.db")
}

// Open opens the preference store at the given path, creating parent
// directories and the schema as needed. WAL mode is enabled for
// concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// OpenDefault opens the store at the default XDG data path.
func OpenDefault() (*Store, error) {
	return Open(DefaultPath())
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Get returns the value for key, or "" if unset.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.conn.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, nil
}

// Set stores the value for key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// LastCouncil returns the last-used ordered council agent IDs, or nil.
func (s *Store) LastCouncil() ([]string, error) {
	v, err := s.Get(KeyLastCouncil)
	if err != nil || v == "" {
		return nil, err
	}
	return strings.Split(v, ","), nil
}

// SetLastCouncil persists the ordered council agent IDs.
func (s *Store) SetLastCouncil(ids []string) error {
	return s.Set(KeyLastCouncil, strings.Join(ids, ","))
}

// LastJudge returns the last-used judge agent ID, or "".
func (s *Store) LastJudge() (string, error) {
	return s.Get(KeyLastJudge)
}

// SetLastJudge persists the judge agent ID.
func (s *Store) SetLastJudge(id string) error {
	return s.Set(KeyLastJudge, id)
}

// JudgeIsolation reports whether the judge should get a session handle
// independent of any council handle for the same agent.
func (s *Store) JudgeIsolation() (bool, error) {
	v, err := s.Get(KeyJudgeIsolation)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// SetJudgeIsolation persists the judge isolation preference.
func (s *Store) SetJudgeIsolation(on bool) error {
	if on {
		return s.Set(KeyJudgeIsolation, "true")
	}
	return s.Set(KeyJudgeIsolation, "false")
}
