// Package parallel implements the bounded worker pool the combiner uses
// to fan out both per-cloud index construction and per-cell filtering.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// Executor schedules work over a half-open integer range 0..N across a
// bounded number of worker goroutines, each carrying its own thread-local
// state from Init through every element it processes, down to Finalize.
//
// There is no ordering guarantee between workers. Within a single worker,
// elements are processed in increasing order. A panic in any worker fails
// the whole batch (spec.md §4.3).
type Executor struct {
	maxWorkers int
}

// New returns an Executor bounded to maxWorkers goroutines. A
// non-positive maxWorkers means "use every available core".
func New(maxWorkers int) *Executor {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Executor{maxWorkers: maxWorkers}
}

// Init is called once per worker goroutine, before that worker processes
// any element, and returns the thread-local state threaded through the
// worker's subsequent Work/Finalize calls.
type Init func(worker int) any

// Work processes element idx using (and potentially mutating) the
// worker's thread-local state.
type Work func(state any, idx int)

// Finalize is called once per worker after its last element, so the
// worker can flush thread-local results into shared state.
type Finalize func(state any)

// Run dispatches elements [0, n) across the executor's workers. It
// returns an error wrapping every worker panic observed; a successful
// Run means every worker reached Finalize without panicking.
func (e *Executor) Run(n int, init Init, work Work, finalize Finalize) error {
	if n <= 0 {
		return nil
	}

	workers := e.maxWorkers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)

	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		worker := w
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[worker] = fmt.Errorf("parallel: worker %d panicked: %v", worker, r)
				}
			}()

			state := init(worker)
			for idx := start; idx < end; idx++ {
				work(state, idx)
			}
			finalize(state)
		})
	}
	wg.Wait()

	var joined error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if joined == nil {
			joined = err
		} else {
			joined = fmt.Errorf("%w; %w", joined, err)
		}
	}
	return joined
}
