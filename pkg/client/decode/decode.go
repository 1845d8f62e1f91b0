// Package decode decompresses HTTP bodies according to the Content-Encoding header.
package decode

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decode wraps the body with a decompressing reader.
// Supported encodings are "gzip" and "br", other encodings are returned unchanged.
// Closing of the returned reader closes the original body.
func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch strings.TrimSpace(strings.ToLower(contentEncoding)) {
	case "gzip":
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("cannot decode gzip: %w", err)
		}
		return readCloser{Reader: reader, closer: body}, nil
	case "br":
		return readCloser{Reader: brotli.NewReader(body), closer: body}, nil
	default:
		return body, nil
	}
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r readCloser) Close() error {
	return r.closer.Close()
}
