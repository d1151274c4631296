package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"habitat-server/internal/editor"
	"habitat-server/internal/shared/errors"

	"github.com/google/uuid"
)

type Config struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
}

// Manager owns every live session. Sessions and their hubs live until they
// are deleted, evicted for idleness, or the manager's context ends.
type Manager struct {
	ctx        context.Context
	catalog    editor.Catalog
	settings   editor.Settings
	config     Config
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
	editorOpts []editor.Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

type ManagerOption func(*Manager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithEditorOptions appends options applied to every new editor.
func WithEditorOptions(opts ...editor.Option) ManagerOption {
	return func(m *Manager) { m.editorOpts = append(m.editorOpts, opts...) }
}

func NewManager(ctx context.Context, catalog editor.Catalog, settings editor.Settings, config Config, metrics *Metrics, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	m := &Manager{
		ctx:      ctx,
		catalog:  catalog,
		settings: settings,
		config:   config,
		metrics:  metrics,
		logger:   logger.With("component", "session_manager"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		return nil, errors.Unavailablef("session limit of %d reached", m.config.MaxSessions)
	}

	id := uuid.NewString()
	logger := m.logger.With("session_id", id)
	ctx, cancel := context.WithCancel(m.ctx)

	opts := append([]editor.Option{editor.WithSettings(m.settings)}, m.editorOpts...)
	now := m.now()
	s := &Session{
		ID:         id,
		CreatedAt:  now,
		editor:     editor.New(m.catalog, opts...),
		lastActive: now,
		hub:        NewHub(m.metrics, logger),
		cancel:     cancel,
		now:        m.now,
		metrics:    m.metrics,
		logger:     logger,
	}
	go s.hub.Run(ctx)

	m.sessions[id] = s
	m.metrics.SessionCreated()
	logger.Info("Session created", "sessions", len(m.sessions))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NotFoundf("session %s not found", id)
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return errors.NotFoundf("session %s not found", id)
	}
	s.close()
	m.metrics.SessionRemoved(false)
	m.logger.Info("Session deleted", "session_id", id)
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire evicts sessions idle for longer than the configured TTL as of now
// and returns how many were removed.
func (m *Manager) Expire(now time.Time) int {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.config.IdleTTL {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		m.metrics.SessionRemoved(true)
		m.logger.Info("Session expired", "session_id", s.ID)
	}
	return len(expired)
}

// Run evicts idle sessions every cleanup interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	m.logger.Debug("Session cleanup loop started",
		"interval", m.config.CleanupInterval, "idle_ttl", m.config.IdleTTL)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Session cleanup loop stopped")
			return
		case <-ticker.C:
			if n := m.Expire(m.now()); n > 0 {
				m.logger.Info("Evicted idle sessions", "count", n, "remaining", m.Count())
			}
		}
	}
}
