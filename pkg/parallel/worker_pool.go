package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// ErrPoolClosed is returned when a task is submitted after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// MaxWorkers bounds the queue buffer computation.
const MaxWorkers = math.MaxInt / 2

// WorkerPool runs CPU-bound tasks on a fixed set of goroutines.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // guards taskQueue against close during send
	closed    bool
	busy      atomic.Int64
	logger    logging.Logger
}

// NewWorkerPool starts a pool. workers <= 0 means runtime.GOMAXPROCS(0).
func NewWorkerPool(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
		logger:    logger.With(logging.Component("worker-pool")),
	}
	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Busy returns the number of tasks currently running.
func (wp *WorkerPool) Busy() int {
	return int(wp.busy.Load())
}

// Queued returns the number of tasks waiting for a worker.
func (wp *WorkerPool) Queued() int {
	return len(wp.taskQueue)
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		func() {
			wp.busy.Add(1)
			defer wp.busy.Add(-1)
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error("task panic recovered", logging.Any("panic", fmt.Sprint(r)))
				}
			}()
			task()
		}()
	}
}

// Submit queues a task, blocking while the queue is full.
// Returns false if the pool is closed.
func (wp *WorkerPool) Submit(task func()) bool {
	return wp.SubmitContext(context.Background(), task) == nil
}

// SubmitContext queues a task, giving up when ctx is done first.
func (wp *WorkerPool) SubmitContext(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}
	select {
	case wp.taskQueue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
