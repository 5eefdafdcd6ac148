package ping

import (
	"context"
	"sync"
)

// targetResult pairs a result with its position in the input target list.
type targetResult struct {
	index  int
	result *Result
	err    error
}

// RunMany pings multiple targets through a bounded worker pool and returns
// their results in input order. A target that fails to resolve yields a nil
// entry and the first such error is returned alongside the other results.
func (s *Session) RunMany(ctx context.Context, targets []string) ([]*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	concurrency := s.config.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	if concurrency > len(targets) {
		concurrency = len(targets)
	}

	jobs := make(chan int, len(targets))
	results := make(chan targetResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				res, err := s.Run(ctx, targets[idx])
				results <- targetResult{index: idx, result: res, err: err}
			}
		}()
	}

	go func() {
		for i := range targets {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			case jobs <- i:
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*Result, len(targets))
	var firstErr error
	for tr := range results {
		ordered[tr.index] = tr.result
		if tr.err != nil && firstErr == nil {
			firstErr = tr.err
		}
	}
	return ordered, firstErr
}
