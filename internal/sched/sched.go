// Package sched is the bounded worker pool the engine runs its map-reduce
// batches on: tasks fan out over a fixed set of goroutines, results reduce
// serially as workers finish.
package sched

import (
	"context"
	"sync"
)

// Run executes mapFn for every task index on at most workers goroutines,
// then folds the results pairwise with reduce. reduce must be associative
// and commutative — results arrive in completion order, and the fold order
// carries no meaning. The first mapFn error fails the whole run; there are
// no retries.
func Run[R any](ctx context.Context, workers, tasks int, mapFn func(context.Context, int) (R, error), reduce func(R, R) R) (R, error) {
	var zero R
	if tasks <= 0 {
		return zero, nil
	}
	workers = min(workers, tasks)
	if workers < 1 {
		workers = 1
	}

	taskCh := make(chan int, tasks)
	for i := 0; i < tasks; i++ {
		taskCh <- i
	}
	close(taskCh)

	type result struct {
		value R
		err   error
	}
	resultCh := make(chan result, tasks)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				value, err := mapFn(ctx, task)
				resultCh <- result{value: value, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var (
		acc      R
		have     bool
		firstErr error
	)
	for res := range resultCh {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		if !have {
			acc = res.value
			have = true
			continue
		}
		acc = reduce(acc, res.value)
	}
	if firstErr != nil {
		return zero, firstErr
	}
	return acc, nil
}
