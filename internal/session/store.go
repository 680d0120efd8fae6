package session

import (
	"errors"
	"sync"
)

var ErrIncompleteSession = errors.New("token and username are required")

// Store persists a single Session record. Load returns the zero Session when
// nothing has been saved.
type Store interface {
	Load() (Session, error)
	Save(sess Session) error
	Clear() error
}

type MemoryStore struct {
	mu   sync.RWMutex
	sess Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess, nil
}

func (s *MemoryStore) Save(sess Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = Session{}
	return nil
}

func validate(sess Session) error {
	if sess.IsZero() || sess.Username == "" {
		return ErrIncompleteSession
	}
	return nil
}
