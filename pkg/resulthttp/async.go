package resulthttp

import (
	"context"
	"net/http"

	"github.com/keboola/go-result-client/pkg/deferred"
	"github.com/keboola/go-result-client/pkg/request"
	"github.com/keboola/go-result-client/pkg/result"
)

// DoAsync starts Do in a new goroutine.
// The request is cancelled by the Deferred.Cancel method or by the ctx.
func DoAsync[T any](ctx context.Context, sender request.Sender, method, url string, configure ...Configurator) *deferred.Deferred[T] {
	return deferred.Start(ctx, func(ctx context.Context) (result.Result[T], error) {
		return Do[T](ctx, sender, method, url, configure...)
	})
}

// GetAsync starts Get in a new goroutine, see DoAsync.
func GetAsync[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) *deferred.Deferred[T] {
	return DoAsync[T](ctx, sender, http.MethodGet, url, configure...)
}

// PostAsync starts Post in a new goroutine, see DoAsync.
func PostAsync[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) *deferred.Deferred[T] {
	return DoAsync[T](ctx, sender, http.MethodPost, url, configure...)
}

// PutAsync starts Put in a new goroutine, see DoAsync.
func PutAsync[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) *deferred.Deferred[T] {
	return DoAsync[T](ctx, sender, http.MethodPut, url, configure...)
}

// DeleteAsync starts Delete in a new goroutine, see DoAsync.
func DeleteAsync[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) *deferred.Deferred[T] {
	return DoAsync[T](ctx, sender, http.MethodDelete, url, configure...)
}

// PatchAsync starts Patch in a new goroutine, see DoAsync.
func PatchAsync[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) *deferred.Deferred[T] {
	return DoAsync[T](ctx, sender, http.MethodPatch, url, configure...)
}

// HeadAsync starts Head in a new goroutine, see DoAsync.
func HeadAsync[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) *deferred.Deferred[T] {
	return DoAsync[T](ctx, sender, http.MethodHead, url, configure...)
}

// OptionsAsync starts Options in a new goroutine, see DoAsync.
func OptionsAsync[T any](ctx context.Context, sender request.Sender, url string, configure ...Configurator) *deferred.Deferred[T] {
	return DoAsync[T](ctx, sender, http.MethodOptions, url, configure...)
}
