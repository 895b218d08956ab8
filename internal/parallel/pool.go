// Package parallel provides a small fixed-size worker pool used to fan out
// concurrent relation back-end fetches (backend.go's Dispatcher) without
// spawning an unbounded goroutine per request.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var poolLogger = hclog.New(&hclog.LoggerOptions{Name: "logicstream.parallel", Level: hclog.Warn})

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown
// pool.
var ErrPoolShutdown = fmt.Errorf("worker pool has been shutdown")

// WorkerPool runs submitted tasks across a fixed number of goroutines. It
// is deliberately simpler than a dynamically-scaling pool: relation
// back-end fetches are short, bursty, and bounded by how many sibling
// goals share a query group, so a pool sized to the CPU count is enough —
// there is no sustained queue depth to scale against.
type WorkerPool struct {
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool starts a pool of workers goroutines. workers<=0 defaults to
// the number of CPU cores.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	wp := &WorkerPool{
		taskChan:     make(chan func(), workers*4),
		shutdownChan: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		wp.workerWg.Add(1)
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()
	for {
		select {
		case task, ok := <-wp.taskChan:
			if !ok {
				return
			}
			wp.runTask(task)
		case <-wp.shutdownChan:
			for {
				select {
				case task := <-wp.taskChan:
					wp.runTask(task)
				default:
					return
				}
			}
		}
	}
}

func (wp *WorkerPool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			poolLogger.Error("worker pool task panicked", "panic", r)
		}
	}()
	task()
}

// Submit queues task for execution, blocking until a slot is free, ctx is
// done, or the pool has been shut down.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops accepting new tasks and waits for queued and in-flight
// ones to finish. It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}
