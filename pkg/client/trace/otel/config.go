package otel

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

type config struct {
	propagators         propagation.TextMapPropagator
	redactedPathParams  map[string]struct{}
	redactedQueryParams map[string]struct{}
	redactedHeaders     map[string]struct{}
}

// Option configures the NewTrace factory.
type Option func(*config)

// WithPropagators injects trace context headers to each sent HTTP request.
func WithPropagators(v propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagators = v
	}
}

// WithRedactedPathParam masks values of the path params in attributes.
func WithRedactedPathParam(params ...string) Option {
	return func(c *config) {
		addLower(c.redactedPathParams, params)
	}
}

// WithRedactedQueryParam masks values of the query params in attributes.
func WithRedactedQueryParam(params ...string) Option {
	return func(c *config) {
		addLower(c.redactedQueryParams, params)
	}
}

// WithRedactedHeaders masks values of the headers in attributes.
// Authorization and cookie headers are always masked.
func WithRedactedHeaders(headers ...string) Option {
	return func(c *config) {
		addLower(c.redactedHeaders, headers)
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		redactedPathParams:  make(map[string]struct{}),
		redactedQueryParams: make(map[string]struct{}),
		redactedHeaders:     make(map[string]struct{}),
	}
	addLower(cfg.redactedHeaders, []string{
		"Authorization",
		"WWW-Authenticate",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Cookie",
		"Set-Cookie",
	})
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

func addLower(m map[string]struct{}, keys []string) {
	for _, k := range keys {
		m[strings.ToLower(k)] = struct{}{}
	}
}
