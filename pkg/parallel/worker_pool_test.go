package parallel

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolSizing(t *testing.T) {
	if _, err := NewWorkerPool(math.MaxInt); !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("Expected ErrTooManyWorkers, got %v", err)
	}

	for _, workers := range []int{-5, 0} {
		pool, err := NewWorkerPool(workers)
		if err != nil {
			t.Fatal(err)
		}
		if pool.workers != 1 {
			t.Errorf("NewWorkerPool(%d) has %d workers, want 1", workers, pool.workers)
		}
		pool.Close()
	}

	pool, _ := NewWorkerPool(8)
	if cap(pool.taskQueue) != 16 {
		t.Errorf("queue capacity = %d, want 16", cap(pool.taskQueue))
	}
	pool.Close()
}

func TestWorkerPoolReportsResults(t *testing.T) {
	pool, _ := NewWorkerPool(4)

	var mu sync.Mutex
	results := make(map[int]error)
	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		i := i
		ok := pool.Submit(func() error {
			if i%3 == 0 {
				return boom
			}
			return nil
		}, func(err error) {
			mu.Lock()
			results[i] = err
			mu.Unlock()
		})
		if !ok {
			t.Fatal("Task submission failed")
		}
	}
	pool.Close()

	if len(results) != 10 {
		t.Fatalf("Expected 10 results, got %d", len(results))
	}
	for i, err := range results {
		if (i%3 == 0) != errors.Is(err, boom) {
			t.Errorf("task %d: unexpected result %v", i, err)
		}
	}
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool, _ := NewWorkerPool(2)

	var panicErr error
	var after int64
	pool.Submit(func() error { panic("bad run") }, func(err error) { panicErr = err })
	for i := 0; i < 5; i++ {
		pool.Submit(func() error {
			atomic.AddInt64(&after, 1)
			return nil
		}, nil)
	}
	pool.Close()

	var pe *PanicError
	if !errors.As(panicErr, &pe) {
		t.Fatalf("Expected *PanicError, got %v", panicErr)
	}
	if pe.Value != "bad run" || len(pe.Stack) == 0 {
		t.Errorf("unexpected panic error %+v", pe)
	}
	if after != 5 {
		t.Errorf("workers stopped after panic: %d of 5 tasks ran", after)
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool, _ := NewWorkerPool(1)
	pool.Close()

	called := false
	if pool.Submit(func() error { return nil }, func(error) { called = true }) {
		t.Error("Submit on closed pool should return false")
	}
	if called {
		t.Error("done must not run for rejected tasks")
	}
	pool.Close()
}

func TestWorkerPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool, _ := NewWorkerPool(4)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() error {
						time.Sleep(time.Microsecond)
						return nil
					}, nil)
				}
			}()
		}
		time.Sleep(time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

func TestRunPreservesOrder(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task{
		func() error { return nil },
		func() error { return boom },
		func() error { panic("x") },
		func() error { return nil },
	}
	errs, err := Run(3, tasks)
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 4 {
		t.Fatalf("got %d results", len(errs))
	}
	if errs[0] != nil || errs[3] != nil {
		t.Errorf("unexpected errors %v", errs)
	}
	if !errors.Is(errs[1], boom) {
		t.Errorf("errs[1] = %v", errs[1])
	}
	var pe *PanicError
	if !errors.As(errs[2], &pe) {
		t.Errorf("errs[2] = %v", errs[2])
	}
}

func BenchmarkWorkerPool(b *testing.B) {
	pool, _ := NewWorkerPool(4)
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(func() error { return nil }, nil)
	}
}
