package track

import (
	"log/slog"
	"sync"

	"trackstream/internal/domain"
	"trackstream/internal/metrics"
)

// Manager owns the track sessions of the host process: one session per track
// URI, created on demand and torn down together. Sessions are explicit
// objects with an explicit Close; there are no process-wide singletons.
type Manager struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewManager(deps Deps, cfg Config) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for uri, creating it on first use. Returns nil
// after Close.
func (m *Manager) Session(uri string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	if session, ok := m.sessions[uri]; ok {
		return session
	}

	m.logger.Debug("creating track session", slog.String("uri", uri))
	session := NewSession(uri, m.deps, m.cfg)
	m.sessions[uri] = session
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return session
}

// Lookup returns the session for uri without creating one.
func (m *Manager) Lookup(uri string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[uri]
	return session, ok
}

// States snapshots every session for broadcast and diagnostics.
func (m *Manager) States() []domain.SessionState {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.Unlock()

	states := make([]domain.SessionState, 0, len(sessions))
	for _, session := range sessions {
		states = append(states, session.State())
	}
	return states
}

// Close tears down every session. Subsequent Session calls return nil.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	metrics.ActiveSessions.Set(0)
	m.logger.Debug("track manager closed", slog.Int("sessions", len(sessions)))
}
