// Package result provides a generic success/failure value and helpers to produce it from fallible operations.
//
// Result[T] holds either a value (Success) or a non-nil error (Failure), never both.
// The zero value of Result[T] is a Success of the zero value of T.
//
// Use RunSafe to convert a fallible operation to a Result.
// Cancellation of the operation is not converted to a Failure,
// it is returned separately as an error, see IsCancellation.
//
// Combinators Fold, Map, MapCatching, Recover, OnSuccess and OnFailure compose over the Result.
// Go methods cannot declare type parameters, so the type-changing combinators are functions.
package result

import (
	"fmt"
)

// Result is an immutable success/failure value.
type Result[T any] struct {
	value T
	err   error
}

// Success creates a successful Result holding the value.
func Success[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Failure creates a failed Result holding the error.
func Failure[T any](err error) Result[T] {
	if err == nil {
		panic(fmt.Errorf("failure error cannot be nil"))
	}
	return Result[T]{err: err}
}

// New creates a Result from a (value, error) pair, as returned by the most of Go functions.
func New[T any](value T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(value)
}

// IsSuccess returns true if the Result holds a value.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// IsFailure returns true if the Result holds an error.
func (r Result[T]) IsFailure() bool {
	return r.err != nil
}

// Get returns the value and the error, for use in the common "if err != nil" style.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// Value returns the value and true on success, otherwise the zero value and false.
func (r Result[T]) Value() (T, bool) {
	if r.err != nil {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the error on failure, otherwise nil.
func (r Result[T]) Err() error {
	return r.err
}

// GetOrElse returns the value on success, otherwise the defaultValue.
func (r Result[T]) GetOrElse(defaultValue T) T {
	if r.err != nil {
		return defaultValue
	}
	return r.value
}

// GetOrElseFunc returns the value on success, otherwise the output of the fn called with the error.
func (r Result[T]) GetOrElseFunc(fn func(err error) T) T {
	if r.err != nil {
		return fn(r.err)
	}
	return r.value
}

func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Failure(%s)", r.err)
	}
	return fmt.Sprintf("Success(%v)", r.value)
}
