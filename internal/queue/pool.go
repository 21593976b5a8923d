package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/zfogg/bizfeed/backend/internal/logger"
	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is stopped")
)

// Job is one unit of background work
type Job func(ctx context.Context)

// Pool runs submitted jobs on a fixed set of workers
type Pool struct {
	name    string
	jobs    chan Job
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool with the given buffer size. workers <= 0 uses the
// CPU count, capped at 8.
func NewPool(name string, workers, buffer int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}
	if buffer <= 0 {
		buffer = 100
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		name:    name,
		jobs:    make(chan Job, buffer),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing jobs with the worker pool
func (p *Pool) Start() {
	logger.Log.Info("Starting worker pool", zap.String("pool", p.name), zap.Int("workers", p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop refuses new jobs, lets workers drain what is already queued, and
// returns once they exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

// Submit enqueues a job without blocking
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.run(workerID, job)
	}
	logger.Log.Debug("Worker shutting down", zap.String("pool", p.name), zap.Int("worker_id", workerID))
}

func (p *Pool) run(workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Worker job panicked",
				zap.String("pool", p.name),
				zap.Int("worker_id", workerID),
				zap.Any("panic", r),
			)
		}
	}()
	job(p.ctx)
}
