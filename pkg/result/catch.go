package result

import (
	"context"
	"errors"
)

// CancellationError signals that an operation has been cancelled.
// It matches context.Canceled, so errors.Is(err, context.Canceled) is true.
type CancellationError struct {
	msg string
}

func NewCancellationError(msg string) *CancellationError {
	return &CancellationError{msg: msg}
}

func (e *CancellationError) Error() string {
	return e.msg
}

func (e *CancellationError) Is(target error) bool {
	return target == context.Canceled //nolint:errorlint
}

// IsCancellation returns true if the err signals cancellation of the ctx, and not an operation error.
//
// An error is the cancellation, if it matches context.Canceled,
// or if the ctx is done and the error matches context.DeadlineExceeded.
// Timeouts of the operation itself, which do not come from the ctx, are ordinary errors.
func IsCancellation(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return ctx != nil && ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded)
}

// RunSafe calls the fn exactly once and converts its outcome to a Result.
//
// If the fn returns an error or panics, a Failure is returned.
// If the fn returns a cancellation error, see IsCancellation,
// the error is returned unchanged as the second return value and the Result is empty.
// So the returned error is not nil only if the operation has been cancelled.
func RunSafe[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (out Result[T], err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = FromPanic[T](ctx, v)
		}
	}()

	value, fnErr := fn(ctx)
	switch {
	case fnErr == nil:
		return Success(value), nil
	case IsCancellation(ctx, fnErr):
		return Result[T]{}, fnErr
	default:
		return Failure[T](fnErr), nil
	}
}

// RunSafeOn is RunSafe for an operation on the receiver value.
func RunSafeOn[R, T any](ctx context.Context, receiver R, fn func(ctx context.Context, receiver R) (T, error)) (Result[T], error) {
	return RunSafe(ctx, func(ctx context.Context) (T, error) {
		return fn(ctx, receiver)
	})
}

// RunCatching calls the fn and converts any error and any panic to a Failure.
// Cancellation is not distinguished, it also results in a Failure. Prefer RunSafe for cancellable operations.
func RunCatching[T any](fn func() (T, error)) (out Result[T]) {
	defer func() {
		if v := recover(); v != nil {
			out = Failure[T](NewPanicError(v))
		}
	}()
	value, err := fn()
	return New(value, err)
}

// RunCatchingOn is RunCatching for an operation on the receiver value.
func RunCatchingOn[R, T any](receiver R, fn func(receiver R) (T, error)) Result[T] {
	return RunCatching(func() (T, error) {
		return fn(receiver)
	})
}

// FromPanic converts a recovered panic value in the same way as the RunSafe does.
// A panic with a cancellation error is returned as the error, anything else results in a Failure with PanicError.
func FromPanic[T any](ctx context.Context, v any) (Result[T], error) {
	if err, ok := v.(error); ok && IsCancellation(ctx, err) {
		return Result[T]{}, err
	}
	return Failure[T](NewPanicError(v)), nil
}
