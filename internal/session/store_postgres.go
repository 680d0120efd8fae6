package session

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresStore keeps one session row per client key in a shared database,
// so several hosts acting for the same user see the same credentials.
type PostgresStore struct {
	db  *sql.DB
	key string
}

func NewPostgresStore(db *sql.DB, key string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("session key is required")
	}
	s := &PostgresStore{db: db, key: key}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	const q = `
CREATE TABLE IF NOT EXISTS client_sessions (
	client_key TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	username TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure client_sessions schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load() (Session, error) {
	var sess Session
	const q = `SELECT token, username FROM client_sessions WHERE client_key = $1`
	if err := s.db.QueryRow(q, s.key).Scan(&sess.Token, &sess.Username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("query client session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) Save(sess Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	const q = `
INSERT INTO client_sessions (client_key, token, username, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (client_key) DO UPDATE
SET token = EXCLUDED.token,
	username = EXCLUDED.username,
	updated_at = NOW()`
	if _, err := s.db.Exec(q, s.key, sess.Token, sess.Username); err != nil {
		return fmt.Errorf("upsert client session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM client_sessions WHERE client_key = $1`, s.key); err != nil {
		return fmt.Errorf("clear client session: %w", err)
	}
	return nil
}
