// Package livequery keeps a read query's result current against the
// local cache database.
//
// A query runs once up-front and again every time the store reports a
// change. Consumers receive results over a channel: first a loading
// marker, then one result per run. Runs are serialized per query, and a
// burst of store changes coalesces into a single re-run because store
// notifications are level-triggered, not counted.
package livequery

import (
	"context"
)

// Notifier is the store-side surface a query watches. Subscribe returns
// a channel that receives after any mutation and a cancel function that
// releases the subscription.
type Notifier interface {
	Subscribe() (<-chan struct{}, func())
}

// Result is one emission from a running query. Exactly one of the three
// states holds: Loading is true before the first run completes, Err is
// set when a run failed, otherwise Value carries the run's result.
type Result[T any] struct {
	Loading bool
	Value   T
	Err     error
}

// Query re-runs a fetch function whenever the watched store changes.
type Query[T any] struct {
	notifier Notifier
	fetch    func(ctx context.Context) (T, error)
}

// New creates a query over fetch. The fetch function is called from a
// single goroutine, never concurrently with itself.
func New[T any](notifier Notifier, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{notifier: notifier, fetch: fetch}
}

// Run starts the query and returns its result stream. The first value
// on the channel is always a loading marker, followed by the initial
// run's result. The channel closes when ctx is canceled.
func (q *Query[T]) Run(ctx context.Context) <-chan Result[T] {
	results := make(chan Result[T], 1)
	changes, cancel := q.notifier.Subscribe()

	go func() {
		defer close(results)
		defer cancel()

		if !emit(ctx, results, Result[T]{Loading: true}) {
			return
		}
		if !emit(ctx, results, q.run(ctx)) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				if !emit(ctx, results, q.run(ctx)) {
					return
				}
			}
		}
	}()

	return results
}

func (q *Query[T]) run(ctx context.Context) Result[T] {
	value, err := q.fetch(ctx)
	if err != nil {
		return Result[T]{Err: err}
	}
	return Result[T]{Value: value}
}

// emit delivers r unless the context ends first. Returns false when the
// query should stop.
func emit[T any](ctx context.Context, ch chan<- Result[T], r Result[T]) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
