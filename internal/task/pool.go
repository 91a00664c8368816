package task

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Pool manages a fixed set of worker goroutines fed from a bounded queue
type Pool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
	closed   bool
	logger   *zap.Logger
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4 // default to 4 workers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2), // buffer for 2x workers
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
}

// Start launches all worker goroutines
func (p *Pool) Start() {
	p.logger.Info("Starting task worker pool",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.jobQueue)))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop refuses new jobs, lets the workers drain what is already queued and waits for them
func (p *Pool) Stop() {
	p.logger.Info("Stopping task worker pool")

	p.cancel()

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Task worker pool stopped")
}

// Execute queues job without waiting. It returns ErrQueueFull when every
// queue slot is taken.
func (p *Pool) Execute(job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return ErrExecutorClosed
	}

	select {
	case p.jobQueue <- job:
		return nil
	default:
		p.logger.Warn("Task queue full, rejecting job", zap.Int("queue_size", cap(p.jobQueue)))
		return ErrQueueFull
	}
}

// worker is the main loop for a single worker
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Task worker started", zap.Int("worker_id", id))

	for job := range p.jobQueue {
		p.run(id, job)
	}

	p.logger.Debug("Task worker stopping (queue closed)", zap.Int("worker_id", id))
}

func (p *Pool) run(workerID int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panicked",
				zap.Int("worker_id", workerID),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	job()
}
