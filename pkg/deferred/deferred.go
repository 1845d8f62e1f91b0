// Package deferred provides independently awaitable tasks producing a result.Result.
//
// A Deferred task is started by the Go or Start function, it runs concurrently with the caller.
// Its outcome is obtained by the Await method, which may be called multiple times, from multiple goroutines.
//
// Cancellation of the task, or of the parent context, before the task is completed,
// is reported by Await as an error, it is never converted to a result.Failure.
//
// Group and AwaitAll are helpers for multiple concurrent tasks.
package deferred

import (
	"context"

	"github.com/keboola/go-result-client/pkg/result"
)

// Func is an operation producing a Result, or a cancellation error, see result.RunSafe.
type Func[T any] func(ctx context.Context) (result.Result[T], error)

// Deferred is a task that will eventually produce a result.Result[T].
type Deferred[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}
	// Written once before the done channel is closed.
	result result.Result[T]
	err    error
}

// Go starts the fallible fn in a new goroutine, the outcome of the fn is converted by result.RunSafe.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Deferred[T] {
	return Start(ctx, func(ctx context.Context) (result.Result[T], error) {
		return result.RunSafe(ctx, fn)
	})
}

// Start starts the fn in a new goroutine.
// The fn gets a child context of the ctx, which is cancelled by the Cancel method.
func Start[T any](ctx context.Context, fn Func[T]) *Deferred[T] {
	return start(ctx, fn, nil)
}

func start[T any](ctx context.Context, fn Func[T], onDone func(err error)) *Deferred[T] {
	ctx, cancel := context.WithCancel(ctx)
	d := &Deferred[T]{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(d.done)
		defer cancel()
		d.result, d.err = run(ctx, fn)
		if onDone != nil {
			onDone(d.err)
		}
	}()
	return d
}

func run[T any](ctx context.Context, fn Func[T]) (out result.Result[T], err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = result.FromPanic[T](ctx, v)
		}
	}()

	out, err = fn(ctx)

	// Cancellation before completion wins over the produced value
	if err == nil && ctx.Err() != nil {
		return result.Result[T]{}, ctx.Err()
	}
	return out, err
}

// Await waits until the task is completed and returns its Result,
// or the cancellation error, if the task has been cancelled before completion.
//
// If the ctx is done first, the ctx error is returned, the task is not affected.
func (d *Deferred[T]) Await(ctx context.Context) (result.Result[T], error) {
	// Prefer the completed value, if it is already available
	select {
	case <-d.done:
		return d.result, d.err
	default:
	}

	select {
	case <-d.done:
		return d.result, d.err
	case <-ctx.Done():
		return result.Result[T]{}, ctx.Err()
	}
}

// Cancel cancels the task context. It has no effect if the task is already completed.
func (d *Deferred[T]) Cancel() {
	d.cancel()
}

// Done returns a channel that is closed when the task is completed.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// IsCompleted returns true if the task is completed, successfully or not.
func (d *Deferred[T]) IsCompleted() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}
