// Package counter measures request and response bodies.
package counter

import (
	"errors"
	"io"
	"sync"
)

// OnClose callback gets number of read bytes and the first unexpected error, if any.
type OnClose func(bytes int64, err error)

// ReadCloser wraps an io.ReadCloser (request/response body) to count bytes read from the reader.
// The optional OnClose callback is invoked once, on the first Close call.
type ReadCloser struct {
	wrapped   io.ReadCloser
	onClose   OnClose
	closeOnce sync.Once
	bytes     int64
	readErr   error
}

func NewReadCloser(wrapped io.ReadCloser, onClose OnClose) *ReadCloser {
	return &ReadCloser{wrapped: wrapped, onClose: onClose}
}

// Bytes returns number of bytes read so far.
func (w *ReadCloser) Bytes() int64 {
	return w.bytes
}

func (w *ReadCloser) Read(b []byte) (int, error) {
	n, err := w.wrapped.Read(b)
	w.bytes += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		w.readErr = err
	}
	return n, err
}

func (w *ReadCloser) Close() error {
	closeErr := w.wrapped.Close()
	w.closeOnce.Do(func() {
		if w.onClose != nil {
			// Prefer read error before close error, it is usually more useful
			if w.readErr != nil {
				w.onClose(w.bytes, w.readErr)
			} else {
				w.onClose(w.bytes, closeErr)
			}
		}
	})
	return closeErr
}
