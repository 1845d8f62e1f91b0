package client

import (
	"fmt"
	"net/http"
)

// HTTPError is returned if the server responds with an error status code (>399)
// and the response is not mapped to the error defined by the request.HTTPRequest.WithError.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: %d %s`, e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
