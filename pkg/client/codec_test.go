package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsJsonContentType(t *testing.T) {
	t.Parallel()

	assert.False(t, isJSONContentType(""))
	assert.False(t, isJSONContentType(" "))
	assert.False(t, isJSONContentType("foo"))
	assert.False(t, isJSONContentType("text/plain"))
	assert.False(t, isJSONContentType("application/yaml"))
	assert.False(t, isJSONContentType("application/vnd.foo.api+yaml"))
	assert.False(t, isJSONContentType("application/json-foo"))
	assert.False(t, isJSONContentType("application/foo-json"))

	assert.True(t, isJSONContentType("application/json"))
	assert.True(t, isJSONContentType("application/vnd.foo.api+json"))
	assert.True(t, isJSONContentType("application/x-collection+json"))
}

func TestMediaType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", mediaType(""))
	assert.Equal(t, "application/json", mediaType("application/json"))
	assert.Equal(t, "application/json", mediaType("application/json; charset=utf-8"))
	assert.Equal(t, "text/plain", mediaType("Text/Plain; charset=utf-8"))
	assert.Equal(t, "invalid;;", mediaType("invalid;;"))
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var target map[string]any
	assert.NoError(t, decodeJSON(strings.NewReader(`{"foo":"bar"}`), &target))
	assert.Equal(t, map[string]any{"foo": "bar"}, target)
	assert.Error(t, decodeJSON(strings.NewReader(`{invalid`), &target))

	// Map keys are sorted
	out, err := encodeJSON(map[string]int{"b": 2, "a": 1})
	assert.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(out))
}
