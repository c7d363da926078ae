// Package session keeps the server side of logins: a token is only honoured
// while its session record exists.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/cardmarket/internal/domain"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Store persists sessions with a time to live.
type Store interface {
	Save(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, userID string) error
}

// Manager issues and revokes sessions.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager builds a manager issuing sessions valid for ttl.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Start opens a new session for userID.
func (m *Manager) Start(ctx context.Context, userID string) (*domain.Session, error) {
	issued := m.now()
	s := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Lookup returns a live session.
func (m *Manager) Lookup(ctx context.Context, id string) (*domain.Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.now().Before(s.ExpiresAt) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return s, nil
}

// Restore saves s again, for example after EndAll when the current session
// should stay valid.
func (m *Manager) Restore(ctx context.Context, s domain.Session) error {
	if !m.now().Before(s.ExpiresAt) {
		return nil
	}
	return m.store.Save(ctx, s)
}

// End revokes one session. Ending an unknown session is not an error.
func (m *Manager) End(ctx context.Context, id string) error {
	err := m.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// EndAll revokes every session of userID.
func (m *Manager) EndAll(ctx context.Context, userID string) error {
	return m.store.DeleteUser(ctx, userID)
}

// MemoryStore keeps sessions in process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]domain.Session{}}
}

func (m *MemoryStore) Save(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}
