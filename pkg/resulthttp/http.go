// Package resulthttp sends HTTP requests by a request.Sender and returns the outcome as a result.Result.
//
// Each HTTP method has a synchronous adapter, for example Get, and a deferred adapter, for example GetAsync.
// The response body is decoded into the type parameter T:
//   - string and []byte get the raw body,
//   - request.NoResult ignores the body,
//   - any other type is decoded from JSON.
//
// Transport faults, non-2xx statuses reported by the client and decode faults are returned as a result.Failure.
// Cancellation is never converted to a Failure, it is returned as the error, see result.RunSafe.
package resulthttp

import (
	"context"
	"net/http"

	"github.com/keboola/go-result-client/pkg/request"
	"github.com/keboola/go-result-client/pkg/result"
)

// Configurator customizes the request before it is sent.
type Configurator func(req request.HTTPRequest) request.HTTPRequest

// WithHeader sets a request header.
func WithHeader(header, value string) Configurator {
	return func(req request.HTTPRequest) request.HTTPRequest {
		return req.AndHeader(header, value)
	}
}

// WithQueryParam sets a query parameter.
func WithQueryParam(param, value string) Configurator {
	return func(req request.HTTPRequest) request.HTTPRequest {
		return req.AndQueryParam(param, value)
	}
}

// WithPathParam replaces the {param} placeholder in the URL.
func WithPathParam(param, value string) Configurator {
	return func(req request.HTTPRequest) request.HTTPRequest {
		return req.AndPathParam(param, value)
	}
}

// WithBody sets the request body, see request.HTTPRequest.WithBody for supported types.
func WithBody(body any) Configurator {
	return func(req request.HTTPRequest) request.HTTPRequest {
		return req.WithBody(body)
	}
}

// WithJSONBody sets the request body encoded as JSON.
func WithJSONBody(body any) Configurator {
	return func(req request.HTTPRequest) request.HTTPRequest {
		return req.WithJSONBody(body)
	}
}

// WithFormBody sets the form body, values are converted to strings by request.ToFormBody.
func WithFormBody(form map[string]any) Configurator {
	return func(req request.HTTPRequest) request.HTTPRequest {
		return req.WithFormBody(request.ToFormBody(form))
	}
}

// WithError registers a custom error, a non-2xx JSON response body is decoded into it.
func WithError(errDef error) Configurator {
	return func(req request.HTTPRequest) request.HTTPRequest {
		return req.WithError(errDef)
	}
}

// Do sends a request with the method to the url and decodes the response body into T.
func Do[T any](ctx context.Context, sender request.Sender, method, url string, configure ...Configurator) (result.Result[T], error) {
	return result.RunSafe(ctx, func(ctx context.Context) (T, error) {
		var value T
		req := request.NewHTTPRequest(sender).WithMethod(method).WithURL(url)
		for _, fn := range configure {
			req = fn(req)
		}
		err := req.WithResult(&value).SendOrErr(ctx)
		return value, err
	})
}

// Get sends a GET request, see Do.
func Get[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) (result.Result[T], error) {
	return Do[T](ctx, sender, http.MethodGet, url, configure...)
}

// Post sends a POST request, see Do.
func Post[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) (result.Result[T], error) {
	return Do[T](ctx, sender, http.MethodPost, url, configure...)
}

// Put sends a PUT request, see Do.
func Put[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) (result.Result[T], error) {
	return Do[T](ctx, sender, http.MethodPut, url, configure...)
}

// Delete sends a DELETE request, see Do.
func Delete[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) (result.Result[T], error) {
	return Do[T](ctx, sender, http.MethodDelete, url, configure...)
}

// Patch sends a PATCH request, see Do.
func Patch[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) (result.Result[T], error) {
	return Do[T](ctx, sender, http.MethodPatch, url, configure...)
}

// Head sends a HEAD request, see Do. The response has no body, use request.NoResult as T.
func Head[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) (result.Result[T], error) {
	return Do[T](ctx, sender, http.MethodHead, url, configure...)
}

// Options sends an OPTIONS request, see Do.
func Options[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) (result.Result[T], error) {
	return Do[T](ctx, sender, http.MethodOptions, url, configure...)
}
