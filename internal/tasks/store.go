package tasks

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/imamik/chainfleet/internal/errdefs"
)

// Store persists tasks. Implementations must make Update a compare-and-swap
// on Version.
type Store interface {
	// Insert stores a new task with Version 1.
	Insert(ctx context.Context, t *Task) error
	// Get returns a copy of the stored task or an errdefs.ErrNotFound error.
	Get(ctx context.Context, id uuid.UUID) (*Task, error)
	// List returns all tasks in creation order.
	List(ctx context.Context) ([]*Task, error)
	// Update writes t if the stored version still equals t.Version, then
	// bumps t.Version. A stale version yields an errdefs.ErrConflict error.
	Update(ctx context.Context, t *Task) error
}

// MemoryStore is a volatile Store guarded by a mutex.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
	order []uuid.UUID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[uuid.UUID]*Task)}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; ok {
		return errdefs.Conflictf("task %s already exists", t.ID)
	}
	t.Version = 1
	s.tasks[t.ID] = t.Clone()
	s.order = append(s.order, t.ID)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, errdefs.NotFoundf("task %s not found", id)
	}
	return t.Clone(), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id].Clone())
	}
	return out, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[t.ID]
	if !ok {
		return errdefs.NotFoundf("task %s not found", t.ID)
	}
	if cur.Version != t.Version {
		return errdefs.Conflictf("task %s changed: stored version %d, write based on %d", t.ID, cur.Version, t.Version)
	}
	t.Version++
	s.tasks[t.ID] = t.Clone()
	return nil
}

// Len returns the number of stored tasks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// IDs returns the stored task ids in creation order.
func (s *MemoryStore) IDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}
