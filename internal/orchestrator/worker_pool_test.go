package orchestrator

import (
	"sync"
	"testing"
)

func TestNewWorkerPoolDefaultsWorkerCount(t *testing.T) {
	pool := NewWorkerPool(0)
	if pool == nil {
		t.Fatal("expected non-nil worker pool")
	}
	if pool.workers <= 0 {
		t.Errorf("expected worker count to default to NumCPU, got %d", pool.workers)
	}
}

func TestWorkerPoolSubmitAndWait(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			mu.Lock()
			counter++
			mu.Unlock()
		})
	}

	pool.Wait()

	if counter != 5 {
		t.Errorf("expected counter to be 5, got %d", counter)
	}
}

func TestWorkerPoolConcurrentJobs(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	var results []int
	var mu sync.Mutex

	for i := 0; i < 10; i++ {
		value := i
		pool.Submit(func() {
			mu.Lock()
			results = append(results, value*2)
			mu.Unlock()
		})
	}

	pool.Wait()

	if len(results) != 10 {
		t.Errorf("expected 10 results, got %d", len(results))
	}
}

func TestWorkerPoolStartIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)

	pool.Start()
	pool.Start()
	defer pool.Close()

	var executed bool
	var mu sync.Mutex
	pool.Submit(func() {
		mu.Lock()
		executed = true
		mu.Unlock()
	})

	pool.Wait()

	if !executed {
		t.Error("expected job to be executed")
	}
}

func TestWorkerPoolWaitIsReusable(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var first, second bool
	var mu sync.Mutex

	pool.Submit(func() {
		mu.Lock()
		first = true
		mu.Unlock()
	})
	pool.Wait()

	pool.Submit(func() {
		mu.Lock()
		second = true
		mu.Unlock()
	})
	pool.Wait()

	if !first || !second {
		t.Errorf("expected both rounds to run, got first=%v second=%v", first, second)
	}
}
