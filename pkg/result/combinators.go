package result

import (
	"context"
)

// Fold calls exactly one of the callbacks, onSuccess with the value or onFailure with the error, and returns its output.
func Fold[T, R any](r Result[T], onSuccess func(value T) R, onFailure func(err error) R) R {
	if r.err != nil {
		return onFailure(r.err)
	}
	return onSuccess(r.value)
}

// Map transforms the value of a Success. A Failure is returned unchanged and the fn is not called.
//
// The fn is not guarded, a panic in the fn is propagated to the caller.
// Use MapCatching for a fallible transformation.
func Map[T, R any](r Result[T], fn func(value T) R) Result[R] {
	if r.err != nil {
		return Result[R]{err: r.err}
	}
	return Success(fn(r.value))
}

// MapCatching transforms the value of a Success by the fallible fn, the outcome of the fn is converted by RunSafe.
// A Failure is returned unchanged and the fn is not called.
func MapCatching[T, R any](ctx context.Context, r Result[T], fn func(ctx context.Context, value T) (R, error)) (Result[R], error) {
	if r.err != nil {
		return Result[R]{err: r.err}, nil
	}
	return RunSafe(ctx, func(ctx context.Context) (R, error) {
		return fn(ctx, r.value)
	})
}

// Recover converts a Failure to a Success with the value returned by the fn.
// A Success is returned unchanged and the fn is not called.
func Recover[T any](r Result[T], fn func(err error) T) Result[T] {
	if r.err != nil {
		return Success(fn(r.err))
	}
	return r
}

// OnSuccess calls the fn with the value, if the Result is a Success.
// The Result is returned unchanged, so calls can be chained.
func (r Result[T]) OnSuccess(fn func(value T)) Result[T] {
	if r.err == nil {
		fn(r.value)
	}
	return r
}

// OnFailure calls the fn with the error, if the Result is a Failure.
// The Result is returned unchanged, so calls can be chained.
func (r Result[T]) OnFailure(fn func(err error)) Result[T] {
	if r.err != nil {
		fn(r.err)
	}
	return r
}
