// Package trace extends the httptrace.ClientTrace and adds additional HTTPRequest hooks.
// A custom ClientTrace definition can be registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"

	"github.com/keboola/go-result-client/pkg/request"
)

// Factory creates ClientTrace hooks for a request.
// The returned context is used for the request, it may be the original ctx.
type Factory func(ctx context.Context, request request.HTTPRequest) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of an outgoing HTTPRequest.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the HTTP request begins. It is called for each redirect.
	HTTPRequestStart func(request *http.Request)
	// HTTPResponse is called when response headers are received or the request failed.
	HTTPResponse func(response *http.Response, err error)
	// HTTPRequestDone is called when the response body is closed or the request failed.
	HTTPRequestDone func(response *http.Response, sent, received int64, err error)
	// BodyParseStart is called before the response body is mapped to the result.
	BodyParseStart func(response *http.Response)
	// BodyParseDone is called when the response body has been mapped to the result.
	BodyParseDone func(response *http.Response, result any, err error, parseError error)
	// RequestProcessed is called when Client.Send method is done.
	RequestProcessed func(result any, err error)
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// The old hook is called first. Hooks of the embedded httptrace.ClientTrace are composed too.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if t == nil || old == nil {
		return
	}
	compose(reflect.ValueOf(t).Elem(), reflect.ValueOf(old).Elem())
}

func compose(tv, ov reflect.Value) {
	structType := tv.Type()
	for i := range structType.NumField() {
		tf := tv.Field(i)
		of := ov.Field(i)

		// Embedded httptrace.ClientTrace
		if structType.Field(i).Anonymous && tf.Kind() == reflect.Struct {
			compose(tf, of)
			continue
		}

		hookType := tf.Type()
		if hookType.Kind() != reflect.Func || of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())
		tf.Set(reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			of.Call(args)
			return tfCopy.Call(args)
		}))
	}
}
