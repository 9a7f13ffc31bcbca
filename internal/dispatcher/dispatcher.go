// Package dispatcher fans a batch of independent tasks out to a fixed-size
// worker pool and joins on completion.
package dispatcher

import (
	"context"
	"runtime"
	"sync"
)

// Task processes one item. It must not touch state shared with other tasks.
type Task[T, R any] func(ctx context.Context, item T) R

// Dispatcher runs tasks on a fixed number of workers.
type Dispatcher struct {
	workers int
}

// New creates a Dispatcher with the given pool size. Sizes below one fall
// back to the number of available CPUs.
func New(workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Dispatcher{workers: workers}
}

// Workers reports the pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Map applies task to every item and blocks until all of them finish.
// results[i] always corresponds to items[i]; nothing is exposed before the
// whole batch completes.
func Map[T, R any](ctx context.Context, d *Dispatcher, items []T, task Task[T, R]) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	workers := d.workers
	if workers > len(items) {
		workers = len(items)
	}

	queue := make(chan int, len(items))
	for i := range items {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				results[idx] = task(ctx, items[idx])
			}
		}()
	}
	wg.Wait()
	return results
}
