package port

import (
	"context"
	"errors"
	"time"
)

// Task is a background job: a stable type name plus an opaque payload.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error asks the backend to retry.
// Handlers must tolerate redelivery.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption tunes a single enqueue. Zero values mean "backend default".
type EnqueueOption struct {
	Queue     string
	ProcessIn time.Duration
	MaxRetry  int
	Timeout   time.Duration
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs workers. Run blocks until ctx is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}

type skipRetry struct{ err error }

func (s skipRetry) Error() string { return s.err.Error() }
func (s skipRetry) Unwrap() error { return s.err }

// SkipRetry wraps err so the backend archives the task instead of retrying it.
func SkipRetry(err error) error {
	if err == nil {
		return nil
	}
	return skipRetry{err: err}
}

// IsSkipRetry reports whether err was produced by SkipRetry.
func IsSkipRetry(err error) bool {
	var s skipRetry
	return errors.As(err, &s)
}
