package request

import (
	"context"
	"net/http"
)

// Sender represents an HTTP client, the client.Client is a default implementation using the standard net/http package.
type Sender interface {
	// Send method sends defined request and returns response.
	// Type of the return value "result" must be the same as type of the HTTPRequest.ResultDef(), otherwise panic will occur.
	Send(ctx context.Context, request HTTPRequest) (rawResponse *http.Response, result any, err error)
}

// SenderFunc is an adapter to use an ordinary function as the Sender.
type SenderFunc func(ctx context.Context, request HTTPRequest) (*http.Response, any, error)

func (f SenderFunc) Send(ctx context.Context, request HTTPRequest) (*http.Response, any, error) {
	return f(ctx, request)
}
