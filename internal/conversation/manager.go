package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopmate/assistant-engine/internal/observability"
)

var (
	// ErrSessionNotFound is returned for unknown or evicted session ids.
	ErrSessionNotFound = errors.New("conversation: session not found")
	// ErrTooManySessions is returned when the registry is full of active sessions.
	ErrTooManySessions = errors.New("conversation: too many sessions")
)

// ManagerConfig holds session registry settings.
type ManagerConfig struct {
	IdleTTL     time.Duration
	MaxSessions int
	SweepEvery  time.Duration
	Delay       time.Duration
	Welcome     string
	Suggestions []string
	// ListenerFor builds the listener attached to a new session.
	ListenerFor func(sessionID string) Listener
}

// Manager is an in-memory registry of sessions keyed by id.
type Manager struct {
	responder Responder
	config    ManagerConfig
	logger    *observability.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	stop      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a registry and, when SweepEvery is positive, starts a
// goroutine evicting idle sessions. Call Close to stop it.
func NewManager(responder Responder, cfg ManagerConfig, logger *observability.Logger) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10000
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	m := &Manager{
		responder: responder,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		stop:      make(chan struct{}),
	}
	if cfg.SweepEvery > 0 {
		go m.sweep(cfg.SweepEvery)
	}
	return m
}

// Create starts a new session. When the registry is full, idle sessions are
// evicted first; ErrTooManySessions is returned if none were idle.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		m.evictIdleLocked()
		if len(m.sessions) >= m.config.MaxSessions {
			return nil, ErrTooManySessions
		}
	}

	id := uuid.NewString()
	opts := SessionOptions{
		Delay:       m.config.Delay,
		Welcome:     m.config.Welcome,
		Suggestions: m.config.Suggestions,
		Logger:      m.logger,
		Now:         m.now,
	}
	if m.config.ListenerFor != nil {
		opts.Listener = m.config.ListenerFor(id)
	}

	s := NewSession(id, m.responder, opts)
	m.sessions[id] = s

	m.logger.Info().
		Str("conversation_id", id).
		Int("sessions", len(m.sessions)).
		Msg("Conversation started")
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	m.logger.Info().Str("conversation_id", id).Msg("Conversation ended")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle removes sessions idle for longer than IdleTTL and returns how
// many were removed.
func (m *Manager) EvictIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictIdleLocked()
}

// Close stops the sweeper and closes every session.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)

		m.mu.Lock()
		defer m.mu.Unlock()
		for id, s := range m.sessions {
			s.Close()
			delete(m.sessions, id)
		}
	})
}

func (m *Manager) evictIdleLocked() int {
	cutoff := m.now().Add(-m.config.IdleTTL)
	evicted := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			s.Close()
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Debug().Int("evicted", evicted).Msg("Evicted idle conversations")
	}
	return evicted
}

func (m *Manager) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}
