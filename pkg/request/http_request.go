package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// NoResult type, the response body is not decoded.
type NoResult struct{}

// Listener is invoked when the request is completed, it can modify the returned error.
type Listener func(ctx context.Context, response HTTPResponse, err error) error

// HTTPRequest is an immutable HTTP request.
type HTTPRequest interface {
	httpRequestReadOnly
	// WithGet is shortcut for WithMethod(http.MethodGet).WithURL(url)
	WithGet(url string) HTTPRequest
	// WithPost is shortcut for WithMethod(http.MethodPost).WithURL(url)
	WithPost(url string) HTTPRequest
	// WithPut is shortcut for WithMethod(http.MethodPut).WithURL(url)
	WithPut(url string) HTTPRequest
	// WithDelete is shortcut for WithMethod(http.MethodDelete).WithURL(url)
	WithDelete(url string) HTTPRequest
	// WithPatch is shortcut for WithMethod(http.MethodPatch).WithURL(url)
	WithPatch(url string) HTTPRequest
	// WithHead is shortcut for WithMethod(http.MethodHead).WithURL(url)
	WithHead(url string) HTTPRequest
	// WithOptions is shortcut for WithMethod(http.MethodOptions).WithURL(url)
	WithOptions(url string) HTTPRequest
	// WithMethod method sets the HTTP method.
	WithMethod(method string) HTTPRequest
	// WithBaseURL method sets the base URL.
	WithBaseURL(baseURL string) HTTPRequest
	// WithURL method sets the URL.
	WithURL(url string) HTTPRequest
	// AndHeader method sets a single header field and its value.
	AndHeader(header string, value string) HTTPRequest
	// AndQueryParam method sets single parameter and its value.
	AndQueryParam(param, value string) HTTPRequest
	// WithQueryParams method sets multiple parameters and its values.
	WithQueryParams(params map[string]string) HTTPRequest
	// AndPathParam method sets single URL path key-value pair.
	AndPathParam(param, value string) HTTPRequest
	// WithPathParams method sets multiple URL path key-value pairs.
	WithPathParams(params map[string]string) HTTPRequest
	// WithFormBody method sets Form parameters and Content-Type header to "application/x-www-form-urlencoded".
	WithFormBody(form map[string]string) HTTPRequest
	// WithJSONBody method sets request body to the JSON value and Content-Type header to "application/json".
	WithJSONBody(body any) HTTPRequest
	// WithBody method sets request body.
	WithBody(body any) HTTPRequest
	// WithContentType method sets custom content type.
	WithContentType(contentType string) HTTPRequest
	// WithError method registers the request `Error` value for automatic mapping.
	WithError(err error) HTTPRequest
	// WithResult method registers the request `Result` value for automatic mapping.
	WithResult(result any) HTTPRequest
	// WithOnComplete method registers callback to be executed when the request is completed.
	WithOnComplete(fn Listener) HTTPRequest
	// WithOnSuccess method registers callback to be executed when the request is completed and `code >= 200 and <= 299`.
	WithOnSuccess(func(ctx context.Context, response HTTPResponse) error) HTTPRequest
	// WithOnError method registers callback to be executed when the request is completed and `code >= 400`.
	WithOnError(fn Listener) HTTPRequest
	// Send method sends defined request and returns response, mapped result and error.
	Send(ctx context.Context) (response HTTPResponse, result any, err error)
	// SendOrErr is Send, only the error is returned.
	SendOrErr(ctx context.Context) error
}

type httpRequestReadOnly interface {
	// Method returns HTTP method.
	Method() string
	// URL method returns HTTP URL.
	URL() *url.URL
	// RequestHeader method returns HTTP request headers.
	RequestHeader() http.Header
	// QueryParams method returns HTTP query parameters.
	QueryParams() url.Values
	// PathParams method returns HTTP path parameters mapped to a {placeholder} in the URL.
	PathParams() map[string]string
	// RequestBody method returns a definition of HTTP request body.
	// Supported request body data types are:
	// `string`, `[]byte`, `*struct`, `*map`, `*slice`, `io.Reader`.
	// Automatic marshaling for JSON is provided, if it is `*struct`, `*map`, or `*slice`.
	RequestBody() any
	// ErrorDef method returns a target value for error result mapping.
	ErrorDef() error
	// ResultDef method returns a target value for result mapping.
	ResultDef() any
}

// NewHTTPRequest creates immutable HTTP request.
func NewHTTPRequest(sender Sender) HTTPRequest {
	if sender == nil {
		panic(fmt.Errorf("request sender cannot be nil"))
	}
	return httpRequest{sender: sender, header: make(http.Header)}
}

// httpRequest implements HTTPRequest interface.
// Each With* method works with a copy, so the original value is never modified.
type httpRequest struct {
	sender      Sender
	method      string
	baseURL     *url.URL
	url         *url.URL
	header      http.Header
	queryParams url.Values
	pathParams  map[string]string
	body        any
	resultDef   any
	errorDef    error
	listeners   []Listener
}

func (r httpRequest) Method() string {
	if r.method == "" {
		panic(fmt.Errorf("request method is not set"))
	}
	return r.method
}

func (r httpRequest) URL() *url.URL {
	if r.url == nil {
		panic(fmt.Errorf("request url is not set"))
	}

	out := *r.url
	if r.baseURL != nil && !out.IsAbs() {
		out.Path = strings.TrimLeft(out.Path, "/")
		return r.baseURL.ResolveReference(&out)
	}
	return &out
}

func (r httpRequest) RequestHeader() http.Header {
	return r.header
}

func (r httpRequest) QueryParams() url.Values {
	return r.queryParams
}

func (r httpRequest) PathParams() map[string]string {
	return r.pathParams
}

func (r httpRequest) RequestBody() any {
	return r.body
}

func (r httpRequest) ErrorDef() error {
	return r.errorDef
}

func (r httpRequest) ResultDef() any {
	return r.resultDef
}

func (r httpRequest) WithGet(url string) HTTPRequest {
	return r.WithMethod(http.MethodGet).WithURL(url)
}

func (r httpRequest) WithPost(url string) HTTPRequest {
	return r.WithMethod(http.MethodPost).WithURL(url)
}

func (r httpRequest) WithPut(url string) HTTPRequest {
	return r.WithMethod(http.MethodPut).WithURL(url)
}

func (r httpRequest) WithDelete(url string) HTTPRequest {
	return r.WithMethod(http.MethodDelete).WithURL(url)
}

func (r httpRequest) WithPatch(url string) HTTPRequest {
	return r.WithMethod(http.MethodPatch).WithURL(url)
}

func (r httpRequest) WithHead(url string) HTTPRequest {
	return r.WithMethod(http.MethodHead).WithURL(url)
}

func (r httpRequest) WithOptions(url string) HTTPRequest {
	return r.WithMethod(http.MethodOptions).WithURL(url)
}

func (r httpRequest) WithMethod(method string) HTTPRequest {
	r.method = strings.ToUpper(method)
	return r
}

func (r httpRequest) WithURL(urlStr string) HTTPRequest {
	v, err := url.Parse(urlStr)
	if err != nil {
		panic(fmt.Errorf(`url "%s" is not valid: %w`, urlStr, err))
	}
	r.url = v
	return r
}

func (r httpRequest) WithBaseURL(baseURL string) HTTPRequest {
	v, err := url.Parse(baseURL)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURL, err))
	}
	// Normalize base URL, so r.baseURL.ResolveReference(...) will work
	v.Path = strings.TrimRight(v.Path, "/") + "/"
	r.baseURL = v
	return r
}

func (r httpRequest) AndHeader(header string, value string) HTTPRequest {
	r.header = r.header.Clone()
	r.header.Set(header, value)
	return r
}

func (r httpRequest) AndQueryParam(key, value string) HTTPRequest {
	r.queryParams = cloneURLValues(r.queryParams)
	r.queryParams.Set(key, value)
	return r
}

func (r httpRequest) WithQueryParams(params map[string]string) HTTPRequest {
	r.queryParams = make(url.Values, len(params))
	for k, v := range params {
		r.queryParams.Set(k, v)
	}
	return r
}

func (r httpRequest) AndPathParam(key, value string) HTTPRequest {
	r.pathParams = cloneParams(r.pathParams)
	r.pathParams[key] = value
	return r
}

func (r httpRequest) WithPathParams(params map[string]string) HTTPRequest {
	r.pathParams = cloneParams(params)
	return r
}

func (r httpRequest) WithFormBody(form map[string]string) HTTPRequest {
	values := make(url.Values, len(form))
	for k, v := range form {
		values.Set(k, v)
	}
	r.body = values.Encode()
	return r.WithContentType("application/x-www-form-urlencoded")
}

func (r httpRequest) WithJSONBody(body any) HTTPRequest {
	r.body = body
	return r.WithContentType("application/json")
}

func (r httpRequest) WithBody(body any) HTTPRequest {
	r.body = body
	return r
}

func (r httpRequest) WithContentType(contentType string) HTTPRequest {
	return r.AndHeader("Content-Type", contentType)
}

func (r httpRequest) WithError(err error) HTTPRequest {
	if reflect.ValueOf(err).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`error must be defined by a pointer`))
	}
	r.errorDef = err
	return r
}

func (r httpRequest) WithResult(result any) HTTPRequest {
	if _, ok := result.(io.Writer); !ok && reflect.ValueOf(result).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`result must be defined by a pointer`))
	}
	r.resultDef = result
	return r
}

func (r httpRequest) WithOnComplete(fn Listener) HTTPRequest {
	r.listeners = append(r.listeners[:len(r.listeners):len(r.listeners)], fn)
	return r
}

func (r httpRequest) WithOnSuccess(fn func(ctx context.Context, response HTTPResponse) error) HTTPRequest {
	return r.WithOnComplete(func(ctx context.Context, response HTTPResponse, err error) error {
		if err == nil {
			return fn(ctx, response)
		}
		return err
	})
}

func (r httpRequest) WithOnError(fn Listener) HTTPRequest {
	return r.WithOnComplete(func(ctx context.Context, response HTTPResponse, err error) error {
		if err != nil {
			return fn(ctx, response, err)
		}
		return nil
	})
}

func (r httpRequest) Send(ctx context.Context) (HTTPResponse, any, error) {
	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Send request
	rawResponse, result, err := r.sender.Send(ctx, r)
	out := &httpResponse{httpRequest: r, rawResponse: rawResponse, result: result, err: err}

	// Invoke listeners
	for _, fn := range r.listeners {
		// Stop if context has been cancelled
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out.err = fn(ctx, out, out.err)
	}

	return out, out.result, out.err
}

func (r httpRequest) SendOrErr(ctx context.Context) error {
	_, _, err := r.Send(ctx)
	return err
}
