package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the session in a single-row table of a local SQLite
// database.
type SQLiteStore struct {
	db      *sql.DB
	owned   bool
	nowFunc func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the database file at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session database path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir session database dir: %w", err)
	}
	db, err := sql.Open("sqlite", cleanPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	s := &SQLiteStore{db: db, nowFunc: time.Now}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS client_session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL,
	username TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure client_session schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load() (Session, error) {
	var sess Session
	const q = `SELECT token, username FROM client_session WHERE id = 1`
	if err := s.db.QueryRow(q).Scan(&sess.Token, &sess.Username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("query session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) Save(sess Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	const q = `
INSERT INTO client_session (id, token, username, updated_at)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET token = excluded.token,
	username = excluded.username,
	updated_at = excluded.updated_at`
	if _, err := s.db.Exec(q, sess.Token, sess.Username, s.nowFunc().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM client_session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close closes the database only when the store opened it.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil || !s.owned {
		return nil
	}
	return s.db.Close()
}
