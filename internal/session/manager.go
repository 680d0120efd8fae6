package session

import (
	"fmt"
	"io"
	"log/slog"

	"gamerlink/client/internal/audit"
)

type AuditLogger interface {
	Record(username, action, outcome, detail string) error
}

type ManagerConfig struct {
	Logger *slog.Logger
	Audit  AuditLogger
}

// Manager is the single source of truth for the logged-in user. A nil Store
// means no persistent storage is available: reads report no session and
// writes are dropped.
type Manager struct {
	store Store
	log   *slog.Logger
	audit AuditLogger
}

func NewManager(store Store, cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		store: store,
		log:   logger,
		audit: cfg.Audit,
	}
}

// Current returns the stored session, or the zero Session when none is
// stored or the store cannot be read.
func (m *Manager) Current() Session {
	if m == nil || m.store == nil {
		return Session{}
	}
	sess, err := m.store.Load()
	if err != nil {
		m.log.Warn("session store unavailable", "err", err)
		return Session{}
	}
	if sess.IsZero() {
		return Session{}
	}
	return sess
}

func (m *Manager) IsAuthenticated() bool {
	return !m.Current().IsZero()
}

func (m *Manager) Token() string {
	return m.Current().Token
}

func (m *Manager) Username() string {
	return m.Current().Username
}

// Login replaces the stored pair in one write.
func (m *Manager) Login(token, username string) error {
	if m == nil || m.store == nil {
		return nil
	}
	if err := m.store.Save(Session{Token: token, Username: username}); err != nil {
		m.auditSafe(username, audit.ActionLogin, audit.OutcomeFailed, err.Error())
		return fmt.Errorf("save session: %w", err)
	}
	m.auditSafe(username, audit.ActionLogin, audit.OutcomeSuccess, "")
	m.log.Info("session stored", "username", username)
	return nil
}

func (m *Manager) Logout() error {
	if m == nil || m.store == nil {
		return nil
	}
	username := m.Username()
	if err := m.store.Clear(); err != nil {
		m.auditSafe(username, audit.ActionLogout, audit.OutcomeFailed, err.Error())
		return fmt.Errorf("clear session: %w", err)
	}
	m.auditSafe(username, audit.ActionLogout, audit.OutcomeSuccess, "")
	m.log.Info("session cleared", "username", username)
	return nil
}

func (m *Manager) auditSafe(username, action, outcome, detail string) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Record(username, action, outcome, detail); err != nil {
		m.log.Warn("audit record failed", "action", action, "err", err)
	}
}
