// Package fanout provides a small bounded-concurrency worker pool, adapted
// from the sub-step fanout executor in orchid's plan execution engine
// (pkg/execution/fanout.go). That executor iterated plan sub-steps over a
// JMESPath-selected item list with a worker pool and abort propagation;
// here the same shape iterates over reference-resolution lookups instead,
// since spec §5 calls for "bounded fan-out... suggested cap of 8" for the
// enricher and the per-record FK resolver rather than a full plan-execution
// engine.
package fanout

import (
	"context"
	"sync"
)

// DefaultConcurrency is the suggested fan-out cap from spec §5.
const DefaultConcurrency = 8

type indexedItem[T any] struct {
	index int
	item  T
}

type indexedResult[R any] struct {
	index  int
	result R
	err    error
}

// Run executes fn for every item in items with at most `concurrency`
// in-flight calls (clamped to DefaultConcurrency when <= 0, and to
// len(items) when larger). Results are returned in input order. The first
// error does not cancel in-flight work — like the enricher's
// "failures are silently skipped" rule and the resolver's per-field
// independence, callers are expected to inspect per-item errors rather
// than treat any one failure as fatal to the batch.
func Run[T, R any](ctx context.Context, items []T, concurrency int, fn func(context.Context, T) (R, error)) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	if len(items) == 0 {
		return results, errs
	}

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	itemChan := make(chan indexedItem[T], len(items))
	resultChan := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range itemChan {
				select {
				case <-ctx.Done():
					resultChan <- indexedResult[R]{index: it.index, err: ctx.Err()}
					continue
				default:
				}
				res, err := fn(ctx, it.item)
				resultChan <- indexedResult[R]{index: it.index, result: res, err: err}
			}
		}()
	}

	for i, item := range items {
		itemChan <- indexedItem[T]{index: i, item: item}
	}
	close(itemChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for res := range resultChan {
		results[res.index] = res.result
		errs[res.index] = res.err
	}

	return results, errs
}
