package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/util/retry"
)

const (
	defaultMergeRetries = 10
	defaultMergeDelay   = 5 * time.Millisecond
)

// Tracker creates tasks and applies merges with optimistic retry.
type Tracker struct {
	store        Store
	mergeRetries int
	mergeDelay   time.Duration
	now          func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithMergeRetries bounds how often a merge is re-run after losing a race.
func WithMergeRetries(n int, initialDelay time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.mergeRetries = n
		t.mergeDelay = initialDelay
	}
}

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a Tracker over store.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:        store,
		mergeRetries: defaultMergeRetries,
		mergeDelay:   defaultMergeDelay,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create stores a new RUNNING task.
func (t *Tracker) Create(ctx context.Context) (*Task, error) {
	now := t.now().UTC()
	task := &Task{
		ID:        uuid.New(),
		State:     Running,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.Insert(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	log.FromContext(ctx).V(1).Info("task created", "task", task.ID)
	return task.Clone(), nil
}

// Get returns the stored task.
func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return t.store.Get(ctx, id)
}

// List returns all tasks in creation order.
func (t *Tracker) List(ctx context.Context) ([]*Task, error) {
	return t.store.List(ctx)
}

// Merge applies mutate to the currently stored task and writes it back.
// A terminal task is returned unchanged without invoking mutate. Lost races
// are retried against a fresh read.
func (t *Tracker) Merge(ctx context.Context, id uuid.UUID, mutate Mutation) (*Task, error) {
	logger := log.FromContext(ctx).WithValues("task", id)

	var (
		result  *Task
		applied bool
	)
	attempt := 0
	err := retry.WithExponentialBackoff(ctx, func() error {
		attempt++
		cur, err := t.store.Get(ctx, id)
		if err != nil {
			return retry.Fatal(err)
		}
		if cur.IsTerminal() {
			result = cur
			recordMerge(mergeNoop)
			return nil
		}

		next := cur.Clone()
		mutate(next)
		// Identity and bookkeeping fields are not the mutation's to change.
		next.ID = cur.ID
		next.Version = cur.Version
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = t.now().UTC()

		if err := t.store.Update(ctx, next); err != nil {
			if !errdefs.IsConflict(err) {
				return retry.Fatal(err)
			}
			recordMerge(mergeConflict)
			logger.V(1).Info("task merge lost a race, retrying", "attempt", attempt)
			return err
		}
		result = next
		applied = true
		recordMerge(mergeApplied)
		return nil
	},
		retry.WithMaxRetries(t.mergeRetries),
		retry.WithInitialDelay(t.mergeDelay),
		retry.WithMaxDelay(250*time.Millisecond),
	)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to merge task %s: %w", id, err)
	}

	if applied && result.IsTerminal() {
		logger.Info("task finished", "state", result.State, "message", result.Message)
	}
	return result.Clone(), nil
}
