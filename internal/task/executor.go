package task

import "errors"

var (
	// ErrExecutorClosed is returned by executors that no longer accept jobs
	ErrExecutorClosed = errors.New("executor is shutting down")
	// ErrQueueFull is returned when a pool has no room for another job
	ErrQueueFull = errors.New("task queue is full")
)

// Executor runs jobs. Implementations decide whether a job runs on the
// caller's goroutine or elsewhere.
type Executor interface {
	Execute(job func()) error
}

// Inline runs every job synchronously on the caller's goroutine
type Inline struct{}

// Execute runs job before returning
func (Inline) Execute(job func()) error {
	job()
	return nil
}
