package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/keboola/go-result-client/pkg/request"
)

// LogTracer logs the request lifecycle to the zerolog logger.
// Events are logged at the debug level, a failed request at the warn level.
func LogTracer(logger zerolog.Logger) Factory {
	var idGenerator atomic.Uint64
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		log := logger.With().
			Uint64("request_id", idGenerator.Add(1)).
			Str("method", reqDef.Method()).
			Logger()

		var startTime, doneTime time.Time
		t := &ClientTrace{}
		t.HTTPRequestStart = func(r *http.Request) {
			startTime = time.Now()
			log.Debug().Str("url", r.URL.String()).Msg("http request started")
		}
		t.HTTPRequestDone = func(r *http.Response, sent, received int64, err error) {
			doneTime = time.Now()
			event := log.Debug()
			if r != nil {
				event = event.Int("status", r.StatusCode)
			}
			event.
				Int64("sent_bytes", sent).
				Int64("received_bytes", received).
				Dur("duration", doneTime.Sub(startTime)).
				Err(err).
				Msg("http request done")
		}
		t.RequestProcessed = func(_ any, err error) {
			event := log.Debug()
			if err != nil {
				event = log.Warn().Err(err)
			}
			event.Dur("body_duration", time.Since(doneTime)).Msg("request processed")
		}
		return ctx, t
	}
}
