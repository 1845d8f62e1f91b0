package result

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// PanicError is a Failure error created from a recovered panic.
// Use "%+v" formatting to print the stack trace of the panic.
type PanicError struct {
	// Value passed to the panic call.
	Value any
	err   error
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// NewPanicError wraps the recovered panic value, the stack trace is captured at the call.
func NewPanicError(v any) *PanicError {
	var err error
	if e, ok := v.(error); ok {
		err = errors.WithStack(e)
	} else {
		err = errors.Errorf("%v", v)
	}
	return &PanicError{Value: v, err: err}
}

func (e *PanicError) Error() string {
	return "panic: " + e.err.Error()
}

// Unwrap returns the panic value, if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// StackTrace returns the stack trace of the panic.
func (e *PanicError) StackTrace() errors.StackTrace {
	if v, ok := e.err.(stackTracer); ok { //nolint:errorlint
		return v.StackTrace()
	}
	return nil
}

func (e *PanicError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		_, _ = fmt.Fprintf(s, "panic: %+v", e.err)
		return
	}
	_, _ = io.WriteString(s, e.Error())
}
