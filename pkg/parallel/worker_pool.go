package parallel

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
)

// Task is a unit of work run by the pool.
type Task func() error

// PanicError is reported in place of a task result when the task panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// WorkerPool runs tasks on a fixed number of goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
}

var (
	// ErrTooManyWorkers is returned when the worker count exceeds MaxWorkers.
	ErrTooManyWorkers = errors.New("worker count exceeds maximum")
	// ErrPoolClosed is reported for tasks submitted after Close.
	ErrPoolClosed = errors.New("worker pool closed")
)

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewWorkerPool creates a pool with the given number of workers; values below
// one mean one worker.
func NewWorkerPool(workers int) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
	}
	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		task()
	}
}

// safeRun runs task and converts a panic into a *PanicError.
func safeRun(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task()
}

// Submit queues task. done, if non-nil, receives the task's error (or a
// *PanicError) on the worker goroutine. Submit returns false, without calling
// done, when the pool is closed.
func (wp *WorkerPool) Submit(task Task, done func(error)) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	wp.taskQueue <- func() {
		err := safeRun(task)
		if done != nil {
			done(err)
		}
	}
	return true
}

// Close stops accepting tasks and waits for queued ones to finish
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Run executes tasks on a temporary pool and returns their errors in task
// order. One failing task never prevents the others from running.
func Run(workers int, tasks []Task) ([]error, error) {
	pool, err := NewWorkerPool(workers)
	if err != nil {
		return nil, err
	}
	errs := make([]error, len(tasks))
	for i, task := range tasks {
		i := i
		if !pool.Submit(task, func(err error) { errs[i] = err }) {
			errs[i] = ErrPoolClosed
		}
	}
	pool.Close()
	return errs, nil
}
