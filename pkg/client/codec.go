package client

import (
	"io"
	"mime"
	"regexp"

	jsoniter "github.com/json-iterator/go"
)

const (
	ContentTypeApplicationJSON       = "application/json"
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
)

//nolint:gochecknoglobals
var (
	// jsonAPI is compatible with the encoding/json package, it is faster for larger responses.
	jsonAPI               = jsoniter.ConfigCompatibleWithStandardLibrary
	jsonContentTypeRegexp = regexp.MustCompile(ContentTypeApplicationJSONRegexp)
)

func encodeJSON(v any) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

// decodeJSON decodes a single JSON value from the body into the target pointer.
func decodeJSON(body io.Reader, target any) error {
	return jsonAPI.NewDecoder(body).Decode(target)
}

// isJSONContentType expects a media type without parameters, see mediaType.
func isJSONContentType(contentType string) bool {
	return jsonContentTypeRegexp.MatchString(contentType)
}

// mediaType removes parameters from the Content-Type header value, for example "; charset=utf-8".
func mediaType(contentType string) string {
	if v, _, err := mime.ParseMediaType(contentType); err == nil {
		return v
	}
	return contentType
}
