// Package client provides a default implementation of the request.Sender interface.
//
// Client is based on the standard net/http package and contains tracing/telemetry support.
// It is easy to implement your custom HTTP client, by implementing the request.Sender interface.
//
// The Client does not retry requests.
// Cancellation of the request context is always preserved in the returned error,
// so errors.Is(err, context.Canceled) can be used by the caller.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/keboola/go-result-client/pkg/client/counter"
	"github.com/keboola/go-result-client/pkg/client/decode"
	"github.com/keboola/go-result-client/pkg/client/trace"
	"github.com/keboola/go-result-client/pkg/client/trace/otel"
	"github.com/keboola/go-result-client/pkg/request"
)

// DefaultUserAgent is sent, if no other User-Agent is configured.
const DefaultUserAgent = "keboola-go-result-client"

// Client is a default and configurable implementation of the Sender interface by Go native http.Client.
// It supports tracing/telemetry. All With* methods return a modified clone.
type Client struct {
	transport    http.RoundTripper
	baseURL      *url.URL
	header       http.Header
	timeout      time.Duration
	tokenSource  oauth2.TokenSource
	traceFactory trace.Factory
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header)}
	c.header.Set("User-Agent", DefaultUserAgent)
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithBaseURL returns a clone of the Client with base url set.
// The base url is used for all relative request urls.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	// Normalize base URL, so c.baseURL.ResolveReference(...) will work
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/"
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader("User-Agent", v)
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithTimeout returns a clone of the Client with the total request timeout set, 0 means no timeout.
// The client timeout is reported as an ordinary error, it is not a cancellation of the request.
func (c Client) WithTimeout(timeout time.Duration) Client {
	c.timeout = timeout
	return c
}

// WithTokenSource returns a clone of the Client, an OAuth2 token from the source is added to each request.
func (c Client) WithTokenSource(source oauth2.TokenSource) Client {
	if source == nil {
		panic(fmt.Errorf("token source cannot be nil"))
	}
	c.tokenSource = oauth2.ReuseTokenSource(nil, source)
	return c
}

// AndTrace returns a clone of the Client with Trace hooks added.
// Hooks of the previously registered factories are called first.
func (c Client) AndTrace(fn trace.Factory) Client {
	oldFactory := c.traceFactory
	if oldFactory == nil {
		c.traceFactory = fn
		return c
	}
	c.traceFactory = func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		ctx, oldTrace := oldFactory(ctx, reqDef)
		ctx, newTrace := fn(ctx, reqDef)
		if newTrace == nil {
			return ctx, oldTrace
		}
		newTrace.Compose(oldTrace)
		return ctx, newTrace
	}
	return c
}

// WithTelemetry returns a clone of the Client with OpenTelemetry tracing and metrics added.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider metric.MeterProvider, opts ...otel.Option) Client {
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// Send method sends HTTP request and returns HTTP response, it implements the Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (res *http.Response, result any, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// If method or url is not set, panic occurs. So we get these values first.
	method := reqDef.Method()
	reqURL, err := c.requestURL(reqDef)
	if err != nil {
		return nil, nil, err
	}

	// Init trace
	var tc *trace.ClientTrace
	if c.traceFactory != nil {
		ctx, tc = c.traceFactory(ctx, reqDef)
	}
	if tc != nil {
		ctx = httptrace.WithClientTrace(ctx, &tc.ClientTrace)
		if tc.RequestProcessed != nil {
			defer func() {
				tc.RequestProcessed(result, err)
			}()
		}
	}

	// Total request timeout
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, nil, err
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Request headers
	for k, values := range reqDef.RequestHeader() {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Body
	if reqDef.RequestBody() != nil {
		if err := setRequestBody(req, reqDef); err != nil {
			return nil, nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, req.Method, req.URL.String(), err)
		}
	}

	// Setup native client
	transport := c.transport
	if c.tokenSource != nil {
		transport = &oauth2.Transport{Source: c.tokenSource, Base: transport}
	}
	nativeClient := http.Client{Transport: roundTripper{trace: tc, wrapped: transport}}

	// Send request
	startedAt := time.Now()
	res, err = nativeClient.Do(req)
	if err != nil {
		return nil, nil, handleSendError(startedAt, req, err)
	}

	// Process body
	if tc != nil && tc.BodyParseStart != nil {
		tc.BodyParseStart(res)
	}
	result, err, parseErr := handleResponseBody(req, res, reqDef.ResultDef(), reqDef.ErrorDef())
	if tc != nil && tc.BodyParseDone != nil {
		tc.BodyParseDone(res, result, err, parseErr)
	}
	if parseErr != nil {
		// Unexpected error, for example the request has been cancelled during reading of the body
		return res, nil, fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), parseErr)
	}

	// Generic HTTP error
	if err == nil && res.StatusCode > 399 {
		return res, nil, &HTTPError{Method: req.Method, URL: req.URL.String(), StatusCode: res.StatusCode}
	}

	return res, result, err
}

// requestURL returns an absolute url with replaced path parameters and with query parameters.
func (c Client) requestURL(reqDef request.HTTPRequest) (*url.URL, error) {
	reqURL := reqDef.URL()
	if c.baseURL != nil && !reqURL.IsAbs() {
		reqURL.Path = strings.TrimLeft(reqURL.Path, "/")
		reqURL = c.baseURL.ResolveReference(reqURL)
	}

	// Replace path parameters
	urlStr := reqURL.String()
	for k, v := range reqDef.PathParams() {
		urlStr = strings.ReplaceAll(urlStr, url.PathEscape("{"+k+"}"), url.PathEscape(v))
	}
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	// Set query parameters
	if params := reqDef.QueryParams(); len(params) > 0 {
		query := reqURL.Query()
		for k, values := range params {
			query[k] = values
		}
		reqURL.RawQuery = query.Encode()
	}

	return reqURL, nil
}

func setRequestBody(req *http.Request, reqDef request.HTTPRequest) error {
	var content []byte
	switch v := reqDef.RequestBody().(type) {
	case string:
		content = []byte(v)
	case []byte:
		content = v
	case io.ReadSeeker:
		// Stream, it is rewound for each redirect
		req.GetBody = func() (io.ReadCloser, error) {
			if _, err := v.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
			return io.NopCloser(v), nil
		}
		body, err := req.GetBody()
		req.Body = body
		return err
	case io.Reader:
		// Stream, it cannot be read more than once
		req.Body = io.NopCloser(v)
		return nil
	default:
		// Json body
		contentType := reqDef.RequestHeader().Get("Content-Type")
		if contentType == "" {
			req.Header.Set("Content-Type", ContentTypeApplicationJSON)
		} else if !isJSONContentType(mediaType(contentType)) {
			return fmt.Errorf(`type %T cannot be encoded as "%s"`, v, contentType)
		}
		var err error
		if content, err = encodeJSON(v); err != nil {
			return fmt.Errorf(`cannot encode JSON body: %w`, err)
		}
	}

	// GetBody factory is used for requests when a redirect requires reading the body more than once.
	req.ContentLength = int64(len(content))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func handleResponseBody(req *http.Request, r *http.Response, resultDef any, errDef error) (result any, err error, unexpectedErr error) {
	defer r.Body.Close()

	if r.StatusCode == http.StatusNoContent || req.Method == http.MethodHead {
		return nil, nil, nil
	}

	// Process content encoding
	body, unexpectedErr := decode.Decode(r.Body, r.Header.Get("Content-Encoding"))
	if unexpectedErr != nil {
		return nil, nil, fmt.Errorf("cannot decode response: %w", unexpectedErr)
	}
	contentType := mediaType(r.Header.Get("Content-Type"))

	// Error response
	if r.StatusCode > 399 {
		if errDef != nil && isJSONContentType(contentType) {
			// Map JSON response to defined error
			if err := decodeJSON(body, errDef); err != nil {
				return nil, nil, fmt.Errorf(`cannot decode JSON error: %w`, err)
			}
			// Set HTTP request
			if v, ok := errDef.(errorWithRequest); ok {
				v.SetRequest(req)
			}
			// Set HTTP response
			if v, ok := errDef.(errorWithResponse); ok {
				v.SetResponse(r)
			}
			return nil, errDef, nil
		}
		return nil, nil, drain(body)
	}

	// Unexpected status, for example not followed redirect
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return nil, nil, drain(body)
	}

	// Map response to defined result
	switch v := resultDef.(type) {
	case nil, *request.NoResult:
		return resultDef, nil, drain(body)
	case *[]byte:
		// Load response body as []byte
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = bodyBytes
		return v, nil, nil
	case *string:
		// Load response body as string
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = string(bodyBytes)
		return v, nil, nil
	case io.Writer:
		// Stream response to io.Writer
		if _, err := io.Copy(v, body); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		if closer, ok := v.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
			}
		}
		return v, nil, nil
	default:
		// Map JSON response to defined result
		if !isJSONContentType(contentType) {
			return nil, nil, fmt.Errorf(`cannot decode "%s" response to %T`, contentType, resultDef)
		}
		if err := decodeJSON(body, resultDef); err != nil {
			return nil, nil, fmt.Errorf(`cannot decode JSON result: %w`, err)
		}
		return resultDef, nil, nil
	}
}

func handleSendError(startedAt time.Time, req *http.Request, err error) error {
	// Unwrap url error, the method and url are added below
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	// Cancellation and timeout, the original error is kept in the chain
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		err = fmt.Errorf("canceled after %s: %w", time.Since(startedAt), err)
	case errors.Is(err, context.DeadlineExceeded):
		if deadline, ok := req.Context().Deadline(); ok {
			err = fmt.Errorf("timeout after %s: %w", deadline.Sub(startedAt), err)
		} else {
			err = fmt.Errorf("timeout after %s: %w", time.Since(startedAt), err)
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		err = fmt.Errorf("timeout after %s: %w", time.Since(startedAt), err)
	}

	return fmt.Errorf(`request %s "%s" failed: %w`, req.Method, req.URL.String(), err)
}

// drain reads the rest of the body, so the connection can be reused.
func drain(body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return fmt.Errorf(`cannot read response body: %w`, err)
	}
	return nil
}

// roundTripper wraps a http.RoundTripper and adds trace functionality.
type roundTripper struct {
	trace   *trace.ClientTrace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	tc := rt.trace
	if tc == nil {
		return rt.wrapped.RoundTrip(req)
	}

	// Trace request start
	if tc.HTTPRequestStart != nil {
		tc.HTTPRequestStart(req)
	}

	// Count request body bytes, the request must not be modified, so a clone is used
	var reqBody *counter.ReadCloser
	if req.Body != nil && req.Body != http.NoBody {
		reqBody = counter.NewReadCloser(req.Body, nil)
		req = req.Clone(req.Context())
		req.Body = reqBody
	}
	sent := func() int64 {
		if reqBody == nil {
			return 0
		}
		return reqBody.Bytes()
	}

	// Send
	res, err := rt.wrapped.RoundTrip(req)

	// Trace response headers
	if tc.HTTPResponse != nil {
		tc.HTTPResponse(res, err)
	}

	// Trace request done
	if err != nil {
		if tc.HTTPRequestDone != nil {
			tc.HTTPRequestDone(res, sent(), 0, err)
		}
		return res, err
	}
	if res.Body == nil {
		res.Body = http.NoBody
	}
	res.Body = counter.NewReadCloser(res.Body, func(received int64, err error) {
		if tc.HTTPRequestDone != nil {
			tc.HTTPRequestDone(res, sent(), received, err)
		}
	})
	return res, nil
}

type errorWithRequest interface {
	error
	SetRequest(request *http.Request)
}

type errorWithResponse interface {
	error
	SetResponse(response *http.Response)
}
