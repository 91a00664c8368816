package task

import (
	"context"
	"fmt"
	"sync"
)

// Future holds the eventual outcome of a task started with Go
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already complete
func Resolved[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(value, err)
	return f
}

func (f *Future[T]) complete(value T, err error) bool {
	completed := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
		completed = true
	})
	return completed
}

// Done is closed once the task has finished and its continuation has run
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ready reports whether the future has completed
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Go schedules fn on exec. Once fn returns, then (if non-nil) is called with
// its outcome and only afterwards is the future completed. If exec rejects
// the job, then runs on the caller's goroutine with the rejection error.
func Go[T any](exec Executor, ctx context.Context, fn func(context.Context) (T, error), then func(T, error)) *Future[T] {
	f := newFuture[T]()

	finish := func(value T, err error) {
		if then != nil {
			then(value, err)
		}
		f.complete(value, err)
	}

	err := exec.Execute(func() {
		finish(call(ctx, fn))
	})
	if err != nil {
		var zero T
		finish(zero, err)
	}
	return f
}

func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}
