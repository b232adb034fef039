// Package session tracks the per-visitor chat sessions. A session is created
// on the first visit, reset on clear and discarded when it ends or idles out.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/RichardoC/vischat/internal/conversation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreFactory returns the conversation store for a new session.
type StoreFactory func(id string) conversation.Store

type Session struct {
	ID           string
	Conversation conversation.Store
	CreatedAt    time.Time

	// mu serializes the interactions of one visitor.
	mu       sync.Mutex
	lastSeen time.Time
}

// Lock blocks until the session has no other active caller.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	newStore StoreFactory
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewManager(newStore StoreFactory, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		newStore: newStore,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create starts a new session. Idle sessions are swept first so abandoned
// conversations do not accumulate.
func (m *Manager) Create(ctx context.Context) *Session {
	m.Sweep(ctx)

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastSeen:  now,
	}
	s.Conversation = m.newStore(s.ID)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("session created", zap.String("sessionID", s.ID))
	return s
}

// Get returns a live session and marks it as seen. An expired session is
// discarded and reported as missing.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	now := m.now()
	if m.expired(s, now) {
		delete(m.sessions, id)
		m.mu.Unlock()
		m.discard(ctx, s)
		return nil, false
	}
	s.lastSeen = now
	m.mu.Unlock()
	return s, true
}

// End discards the session and its conversation.
func (m *Manager) End(ctx context.Context, id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.discard(ctx, s)
	}
	return ok
}

// Sweep discards every idle session and returns how many were dropped.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()
	var stale []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if m.expired(s, now) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		m.discard(ctx, s)
	}
	return len(stale)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.lastSeen) > m.ttl
}

func (m *Manager) discard(ctx context.Context, s *Session) {
	s.Lock()
	defer s.Unlock()
	if err := s.Conversation.Clear(ctx); err != nil {
		m.logger.Error("failed to clear ended session", zap.String("sessionID", s.ID), zap.Error(err))
	}
	m.logger.Debug("session ended", zap.String("sessionID", s.ID))
}
