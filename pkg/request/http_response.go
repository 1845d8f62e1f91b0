package request

import "net/http"

// HTTPResponse is the outcome of a sent HTTPRequest: the raw response, the mapped result and the error.
// The raw response is nil if the request failed before the response headers have been received.
type HTTPResponse interface {
	httpRequestReadOnly
	// ResponseHeader returns HTTP response headers, or nil.
	ResponseHeader() http.Header
	// StatusCode returns HTTP status code, or 0.
	StatusCode() int
	// RawRequest returns the last sent HTTP request, after redirects, or nil.
	RawRequest() *http.Request
	// RawResponse returns the standard HTTP response, or nil.
	RawResponse() *http.Response
	// IsSuccess returns true for the status code 2xx.
	IsSuccess() bool
	// IsError returns true for the status code 4xx and 5xx.
	IsError() bool
	// Result returns the value the response body has been mapped to, see WithResult.
	Result() any
	// Error returns the mapped error response, see WithError, or any other error, for example a network error.
	Error() error
}

type httpResponse struct {
	httpRequest
	rawResponse *http.Response
	result      any
	err         error
}

func (r *httpResponse) ResponseHeader() http.Header {
	if res := r.rawResponse; res != nil {
		return res.Header
	}
	return nil
}

func (r *httpResponse) StatusCode() int {
	if res := r.rawResponse; res != nil {
		return res.StatusCode
	}
	return 0
}

func (r *httpResponse) RawRequest() *http.Request {
	if res := r.rawResponse; res != nil {
		return res.Request
	}
	return nil
}

func (r *httpResponse) RawResponse() *http.Response {
	return r.rawResponse
}

func (r *httpResponse) IsSuccess() bool {
	code := r.StatusCode()
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

func (r *httpResponse) IsError() bool {
	return r.StatusCode() >= http.StatusBadRequest
}

func (r *httpResponse) Result() any {
	return r.result
}

func (r *httpResponse) Error() error {
	return r.err
}
