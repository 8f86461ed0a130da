// Package errdefs defines the error taxonomy shared by the provisioning core.
//
// Every error produced by the planner, task tracker, configuration service and
// deployment coordinator wraps one of the sentinel kinds below so callers can
// classify it with [errors.Is] without depending on the producing package.
package errdefs

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

var (
	// ErrValidation rejects a request before any side effect happens.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports an unknown task, session or node index.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a lost optimistic write or an id collision.
	ErrConflict = errors.New("conflict")
	// ErrTransport reports a failed deployment event stream.
	ErrTransport = errors.New("transport failure")
	// ErrStuck reports a deployment stream abandoned without a terminal event.
	ErrStuck = errors.New("deployment stalled")
)

// kindError attaches a sentinel kind to a human-readable message.
type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.err != nil {
		return []error{e.kind, e.err}
	}
	return []error{e.kind}
}

func newf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validationf returns a validation error with a specific reason.
func Validationf(format string, args ...any) error {
	return newf(ErrValidation, format, args...)
}

// NotFoundf returns a not-found error.
func NotFoundf(format string, args ...any) error {
	return newf(ErrNotFound, format, args...)
}

// Conflictf returns a conflict error.
func Conflictf(format string, args ...any) error {
	return newf(ErrConflict, format, args...)
}

// Stuckf returns a stalled-deployment error.
func Stuckf(format string, args ...any) error {
	return newf(ErrStuck, format, args...)
}

// Transport wraps a stream failure, keeping the root cause reachable.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: ErrTransport, msg: "deployment stream failed", err: err}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// GRPCCode maps an error kind to the status code returned over RPC.
// Conflicts surface as Internal: a session id collision is not the caller's fault.
func GRPCCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrTransport):
		return codes.Unavailable
	case errors.Is(err, ErrStuck), errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}
