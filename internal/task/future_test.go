package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type rejectingExecutor struct{}

func (rejectingExecutor) Execute(func()) error { return ErrExecutorClosed }

func TestGo_Inline(t *testing.T) {
	var got string
	f := Go(Inline{}, context.Background(), func(ctx context.Context) (string, error) {
		return "done", nil
	}, func(v string, err error) {
		got = v
	})

	if !f.Ready() {
		t.Fatal("inline future should be complete on return")
	}
	if got != "done" {
		t.Errorf("continuation got %q, want done", got)
	}

	v, err := f.Wait(context.Background())
	if err != nil || v != "done" {
		t.Errorf("Wait() = %q, %v", v, err)
	}
}

func TestGo_ContinuationRunsBeforeCompletion(t *testing.T) {
	pool := NewPool(2, zap.NewNop())
	pool.Start()
	defer pool.Stop()

	var thenRan atomic.Bool
	f := Go(pool, context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	}, func(int, error) {
		time.Sleep(10 * time.Millisecond)
		thenRan.Store(true)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := f.Wait(ctx)
	if err != nil || v != 42 {
		t.Fatalf("Wait() = %d, %v", v, err)
	}
	if !thenRan.Load() {
		t.Error("future completed before its continuation ran")
	}
}

func TestGo_Rejected(t *testing.T) {
	var thenErr error
	f := Go(rejectingExecutor{}, context.Background(), func(ctx context.Context) (int, error) {
		t.Error("fn must not run when the executor rejects the job")
		return 0, nil
	}, func(_ int, err error) {
		thenErr = err
	})

	if !errors.Is(thenErr, ErrExecutorClosed) {
		t.Errorf("continuation err = %v, want ErrExecutorClosed", thenErr)
	}
	if _, err := f.Wait(context.Background()); !errors.Is(err, ErrExecutorClosed) {
		t.Errorf("Wait err = %v", err)
	}
}

func TestGo_Panic(t *testing.T) {
	f := Go(Inline{}, context.Background(), func(ctx context.Context) (int, error) {
		panic("boom")
	}, nil)

	if _, err := f.Wait(context.Background()); err == nil {
		t.Error("expected panic to surface as error")
	}
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	f := newFuture[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait err = %v, want context.Canceled", err)
	}
	if f.Ready() {
		t.Error("future should still be pending")
	}
}

func TestResolved(t *testing.T) {
	want := errors.New("nope")
	f := Resolved(0, want)
	if !f.Ready() {
		t.Fatal("Resolved future should be ready")
	}
	if _, err := f.Wait(context.Background()); err != want {
		t.Errorf("err = %v, want %v", err, want)
	}
}
