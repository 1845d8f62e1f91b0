package decode_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-result-client/pkg/client/decode"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	var gzipBody bytes.Buffer
	gzipWriter := gzip.NewWriter(&gzipBody)
	_, err := gzipWriter.Write([]byte("gzip content"))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	var brBody bytes.Buffer
	brWriter := brotli.NewWriter(&brBody)
	_, err = brWriter.Write([]byte("br content"))
	require.NoError(t, err)
	require.NoError(t, brWriter.Close())

	cases := []struct {
		encoding string
		body     []byte
		expected string
	}{
		{encoding: "", body: []byte("plain content"), expected: "plain content"},
		{encoding: "identity", body: []byte("plain content"), expected: "plain content"},
		{encoding: "gzip", body: gzipBody.Bytes(), expected: "gzip content"},
		{encoding: "GZIP", body: gzipBody.Bytes(), expected: "gzip content"},
		{encoding: "br", body: brBody.Bytes(), expected: "br content"},
	}

	for _, tc := range cases {
		reader, err := decode.Decode(io.NopCloser(bytes.NewReader(tc.body)), tc.encoding)
		require.NoError(t, err, tc.encoding)
		content, err := io.ReadAll(reader)
		require.NoError(t, err, tc.encoding)
		assert.Equal(t, tc.expected, string(content), tc.encoding)
		assert.NoError(t, reader.Close())
	}
}

func TestDecode_InvalidGzip(t *testing.T) {
	t.Parallel()
	_, err := decode.Decode(io.NopCloser(strings.NewReader("foo")), "gzip")
	assert.ErrorContains(t, err, "cannot decode gzip:")
}
