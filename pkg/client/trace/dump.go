package trace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/keboola/go-result-client/pkg/client/decode"
	"github.com/keboola/go-result-client/pkg/request"
)

const dumpTraceMaxLength = 2000

//nolint:gochecknoglobals
var dumpResultConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

type dumpTrace struct {
	ClientTrace
	wr   io.Writer
	lock *sync.Mutex
}

// DumpTracer dumps HTTP requests, responses and the mapped result to a writer.
// Output may contain unmasked tokens, do not use it in production!
func DumpTracer(wr io.Writer) Factory {
	lock := &sync.Mutex{}
	return func(ctx context.Context, _ request.HTTPRequest) (context.Context, *ClientTrace) {
		var requestMethod, requestURI string
		var responseStatusCode int
		var requestDump []byte
		var startTime, headersTime time.Time

		t := &dumpTrace{wr: wr, lock: lock}
		t.HTTPRequestStart = func(r *http.Request) {
			startTime = time.Now()
			requestMethod = r.Method
			requestURI = r.URL.RequestURI()
			requestDump, _ = httputil.DumpRequestOut(r, true)
		}
		t.HTTPResponse = func(r *http.Response, err error) {
			headersTime = time.Now()
			t.lock.Lock()
			defer t.lock.Unlock()

			// Dump request
			t.log()
			t.log(">>>>>> HTTP DUMP")
			t.dump(string(requestDump))

			// Dump response, it can be nil, for example, if some network error occurred
			t.log("------")
			if err != nil || r == nil {
				t.log("ERROR: ", err)
				t.log("<<<<<< HTTP DUMP END")
				return
			}
			responseStatusCode = r.StatusCode
			if v, err := httputil.DumpResponse(r, false); err == nil {
				t.dump(string(v))
			} else {
				t.log("cannot dump response headers: ", err)
			}

			// Dump response body
			if r.Body != nil && r.Body != http.NoBody {
				// Read the raw body, decode it, and set the buffered raw body back to the response
				rawBody, err := io.ReadAll(r.Body)
				_ = r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(rawBody))
				if err != nil {
					t.log("cannot read response body: ", err)
				} else if len(rawBody) > 0 {
					var decodedBody strings.Builder
					if bodyReader, err := decode.Decode(io.NopCloser(bytes.NewReader(rawBody)), r.Header.Get("Content-Encoding")); err != nil {
						t.log("cannot decode response body: ", err)
					} else if _, err := io.Copy(&decodedBody, bodyReader); err != nil {
						t.log("cannot decode response body: ", err)
					}
					t.log("------")
					t.dump(decodedBody.String())
				}
			}
			t.log("<<<<<< HTTP DUMP END")
		}
		t.RequestProcessed = func(result any, err error) {
			t.lock.Lock()
			defer t.lock.Unlock()
			t.log()
			t.log(">>>>>> HTTP REQUEST PROCESSED", "|", requestMethod, requestURI, responseStatusCode, "| ERROR:", err, "| HEADERS AT:", headersTime.Sub(startTime), "| DONE AT:", time.Since(startTime))
			if result != nil {
				t.dump(dumpResultConfig.Sdump(result))
			}
		}
		return ctx, &t.ClientTrace
	}
}

func (t *dumpTrace) dump(body string) {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if len(body) > dumpTraceMaxLength && os.Getenv("HTTP_DUMP_TRACE_FULL") != "true" { //nolint:forbidigo
		t.log(body[:dumpTraceMaxLength])
		t.log("... (set env HTTP_DUMP_TRACE_FULL=true to see full output)")
	} else {
		t.log(body)
	}
}

func (t *dumpTrace) log(a ...any) {
	_, _ = fmt.Fprintln(t.wr, a...)
}
