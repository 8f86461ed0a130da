package tasks

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a task.
type State string

// Task states.
const (
	Running   State = "RUNNING"
	Succeeded State = "SUCCEEDED"
	Failed    State = "FAILED"
)

// IsTerminal reports whether s is SUCCEEDED or FAILED.
func (s State) IsTerminal() bool {
	return s == Succeeded || s == Failed
}

// Task is the record reported to API callers for an asynchronous operation.
type Task struct {
	ID           uuid.UUID `json:"id"`
	State        State     `json:"state"`
	Message      string    `json:"message,omitempty"`
	ResourceID   string    `json:"resourceId,omitempty"`
	ResourceLink string    `json:"resourceLink,omitempty"`

	// Version is bumped by the store on every successful write.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsTerminal reports whether the task reached a final state.
func (t *Task) IsTerminal() bool {
	return t.State.IsTerminal()
}

// Clone returns a copy of t.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

// Mutation rewrites a task in place. It is applied to a private copy of the
// stored record and may run more than once when writers race.
type Mutation func(*Task)

// SetMessage returns a mutation that only rewrites the progress message.
func SetMessage(msg string) Mutation {
	return func(t *Task) {
		if t.IsTerminal() {
			return
		}
		t.Message = msg
	}
}

// Fail returns a mutation moving a task to FAILED with msg.
func Fail(msg string) Mutation {
	return func(t *Task) {
		if t.IsTerminal() {
			return
		}
		t.State = Failed
		t.Message = msg
	}
}

// Succeed returns a mutation moving a task to SUCCEEDED and pointing it at a resource.
func Succeed(msg, resourceID, resourceLink string) Mutation {
	return func(t *Task) {
		if t.IsTerminal() {
			return
		}
		t.State = Succeeded
		t.Message = msg
		t.ResourceID = resourceID
		t.ResourceLink = resourceLink
	}
}
