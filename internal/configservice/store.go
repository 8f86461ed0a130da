package configservice

import (
	"context"
	"sync"

	"github.com/imamik/chainfleet/internal/errdefs"
)

// SessionStore holds sessions. Sessions are never updated in place: a store
// only inserts when absent, reads, and removes.
type SessionStore interface {
	// Insert stores s under s.ID, failing with an errdefs.ErrConflict error
	// if the id is taken.
	Insert(ctx context.Context, s *Session) error
	// Get returns the session or an errdefs.ErrNotFound error.
	Get(ctx context.Context, id SessionID) (*Session, error)
	// Delete removes the session or fails with errdefs.ErrNotFound.
	Delete(ctx context.Context, id SessionID) error
}

// MemoryStore is a volatile SessionStore; sessions die with the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[SessionID]*Session)}
}

// Insert implements SessionStore.
func (m *MemoryStore) Insert(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return errdefs.Conflictf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s
	return nil
}

// Get implements SessionStore.
func (m *MemoryStore) Get(_ context.Context, id SessionID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, errdefs.NotFoundf("no configuration available for session id %s", id)
	}
	return s, nil
}

// Delete implements SessionStore.
func (m *MemoryStore) Delete(_ context.Context, id SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return errdefs.NotFoundf("no configuration available for session id %s", id)
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
