// Package otel provides OpenTelemetry tracing and metrics for HTTP client requests.
//
// Two levels of telemetry are provided:
//
// 1. Request level, for each logical request sent by the client.Client:
//   - Root span "keboola.go.client.request" wraps all redirects together.
//   - Span "keboola.go.client.request.body.parse" tracks response receiving and mapping to the result.
//   - Attribute "result.outcome" classifies the request as "success", "failure" or "cancelled".
//   - Metrics names start with "keboola.go.client." (clientMeterPrefix const).
//
// 2. HTTP level, for each sent HTTP request, including redirects:
//   - Span "http.request" and low-level httptrace spans, for example "http.dns", "http.tls", "http.getconn".
//   - Metrics names start with "keboola.go.http." (httpMeterPrefix const).
//
// See the allMeters struct for the full list of metrics.
package otel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keboola/go-result-client/pkg/client/trace"
	"github.com/keboola/go-result-client/pkg/request"
	"github.com/keboola/go-result-client/pkg/result"
)

const (
	traceAppName     = "github.com/keboola/go-result-client"
	attrResourceName = attribute.Key("resource.name")
	attrOutcome      = attribute.Key("result.outcome")
	attrWroteBytes   = attribute.Key("http.wrote_bytes")
	attrReadBytes    = attribute.Key("http.read_bytes")
	// Request level.
	clientSpanPrefix        = "keboola.go.client."
	clientRequestSpanName   = clientSpanPrefix + "request"
	clientBodyParseSpanName = clientSpanPrefix + "request.body.parse"
	// HTTP level.
	httpSpanPrefix      = "http."
	httpRequestSpanName = httpSpanPrefix + "request"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// NewTrace creates a trace.Factory reporting spans to the tracerProvider and metrics to the meterProvider.
// A nil provider is replaced by a noop implementation.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		r := &requestTrace{
			cfg:    cfg,
			tracer: tracer,
			meters: meters,
			attrs:  newAttributes(cfg, reqDef),
		}
		r.start(ctx)
		tc := &trace.ClientTrace{
			HTTPRequestStart: r.httpRequestStart,
			HTTPResponse:     r.httpResponse,
			HTTPRequestDone:  r.httpRequestDone,
			BodyParseStart:   r.bodyParseStart,
			BodyParseDone:    r.bodyParseDone,
			RequestProcessed: r.requestProcessed,
		}
		registerHTTPTrace(tc, tracer, func() context.Context { return r.httpCtx })
		return r.rootCtx, tc
	}
}

// requestTrace holds the state of one logical request, the hooks are called sequentially.
type requestTrace struct {
	cfg    config
	tracer otelTrace.Tracer
	meters *allMeters
	attrs  *attributes

	rootCtx   context.Context
	rootSpan  otelTrace.Span
	startTime time.Time

	httpCtx          context.Context
	httpSpan         otelTrace.Span
	httpStartTime    time.Time
	receivedBytes    int64
	parseSpan        otelTrace.Span
	parseStartTime   time.Time
	parseMeterAttrs  []attribute.KeyValue
	httpRequestCount int
}

func (r *requestTrace) start(ctx context.Context) {
	r.startTime = time.Now()
	r.meters.client.inFlight.Add(ctx, 1, otelMetric.WithAttributes(r.attrs.definition...))
	r.rootCtx, r.rootSpan = r.tracer.Start(
		ctx,
		clientRequestSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(
			attrResourceName.String(r.attrs.definitionURL.Path),
			attrSpanKind.String(attrSpanKindValueClient),
			attrSpanType.String(attrSpanTypeValueHTTP),
		),
		otelTrace.WithAttributes(r.attrs.definition...),
		otelTrace.WithAttributes(r.attrs.definitionExtra...),
	)
	// The parse span may be started before any HTTP request, if the request failed early
	r.httpCtx = r.rootCtx
}

func (r *requestTrace) httpRequestStart(req *http.Request) {
	r.httpRequestCount++
	r.receivedBytes = 0
	r.httpStartTime = time.Now()
	r.attrs.SetFromRequest(req)
	r.attrs.SetFromResponse(nil, nil)

	r.httpCtx, r.httpSpan = r.tracer.Start(
		r.rootCtx,
		httpRequestSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(
			attrResourceName.String(req.URL.Path),
			attrSpanKind.String(attrSpanKindValueClient),
			attrSpanType.String(attrSpanTypeValueHTTP),
		),
		otelTrace.WithAttributes(r.attrs.httpRequest...),
		otelTrace.WithAttributes(r.attrs.httpRequestExtra...),
	)

	// Inject trace headers
	if r.cfg.propagators != nil {
		r.cfg.propagators.Inject(r.httpCtx, propagation.HeaderCarrier(req.Header))
	}

	r.meters.http.inFlight.Add(r.rootCtx, 1, otelMetric.WithAttributes(r.attrs.httpRequest...))
}

func (r *requestTrace) httpResponse(res *http.Response, err error) {
	r.attrs.SetFromResponse(res, err)
	if r.httpSpan != nil {
		r.httpSpan.SetAttributes(r.attrs.httpResponse...)
		r.httpSpan.SetAttributes(r.attrs.httpResponseExtra...)
	}
}

func (r *requestTrace) httpRequestDone(res *http.Response, sent, received int64, err error) {
	r.receivedBytes = received
	elapsed := msSince(r.httpStartTime)

	// Same attributes as in the httpRequestStart
	r.meters.http.inFlight.Add(r.rootCtx, -1, otelMetric.WithAttributes(r.attrs.httpRequest...))
	r.meters.http.duration.Record(
		r.rootCtx,
		elapsed,
		otelMetric.WithAttributes(r.attrs.httpRequest...),
		otelMetric.WithAttributes(r.attrs.httpResponse...),
	)

	if r.httpSpan == nil {
		return
	}
	r.httpSpan.SetAttributes(attrWroteBytes.Int64(sent), attrReadBytes.Int64(received))
	r.httpSpan.SetAttributes(r.attrs.httpResponseError...)
	switch {
	case err != nil:
		recordError(r.httpSpan, err)
	case res != nil && res.StatusCode >= http.StatusBadRequest:
		recordError(r.httpSpan, fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode)))
	}

	// The body is read during parsing, the span is ended by the bodyParseDone
	if r.parseSpan == nil {
		r.httpSpan.End()
		r.httpSpan = nil
	}
}

func (r *requestTrace) bodyParseStart(_ *http.Response) {
	r.parseStartTime = time.Now()
	r.parseMeterAttrs = append(append([]attribute.KeyValue(nil), r.attrs.definition...), r.attrs.httpResponse...)
	r.meters.parse.inFlight.Add(r.rootCtx, 1, otelMetric.WithAttributes(r.parseMeterAttrs...))
	_, r.parseSpan = r.tracer.Start(
		r.httpCtx,
		clientBodyParseSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(r.attrs.httpRequest...),
		otelTrace.WithAttributes(r.attrs.httpResponse...),
	)
}

func (r *requestTrace) bodyParseDone(_ *http.Response, _ any, _ error, parseErr error) {
	r.meters.parse.inFlight.Add(r.rootCtx, -1, otelMetric.WithAttributes(r.parseMeterAttrs...))
	r.meters.parse.duration.Record(r.rootCtx, msSince(r.parseStartTime), otelMetric.WithAttributes(r.parseMeterAttrs...))

	if r.parseSpan != nil {
		r.parseSpan.SetAttributes(attrReadBytes.Int64(r.receivedBytes))
		if parseErr != nil {
			recordError(r.parseSpan, parseErr)
		}
		r.parseSpan.End()
		r.parseSpan = nil
	}
	if r.httpSpan != nil {
		r.httpSpan.End()
		r.httpSpan = nil
	}
}

func (r *requestTrace) requestProcessed(_ any, err error) {
	outcome := attrOutcome.String(classifyOutcome(r.rootCtx, err))

	// Same attributes as in the start
	meterAttrs := append(append([]attribute.KeyValue(nil), r.attrs.definition...), r.attrs.httpResponse...)
	meterAttrs = append(meterAttrs, outcome)
	r.meters.client.inFlight.Add(r.rootCtx, -1, otelMetric.WithAttributes(r.attrs.definition...))
	r.meters.client.duration.Record(r.rootCtx, msSince(r.startTime), otelMetric.WithAttributes(meterAttrs...))

	// Unfinished spans, for example if the body has not been closed
	if r.parseSpan != nil {
		r.parseSpan.End()
		r.parseSpan = nil
	}
	if r.httpSpan != nil {
		r.httpSpan.End()
		r.httpSpan = nil
	}

	// Attributes from the last response
	r.rootSpan.SetAttributes(outcome, attribute.Int("http.requests_count", r.httpRequestCount))
	r.rootSpan.SetAttributes(r.attrs.httpResponse...)
	r.rootSpan.SetAttributes(r.attrs.httpResponseExtra...)
	if err == nil {
		r.rootSpan.End()
	} else {
		recordError(r.rootSpan, err)
		r.rootSpan.End(otelTrace.WithStackTrace(true))
	}
}

// classifyOutcome maps the request error to the "result.outcome" attribute value.
func classifyOutcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case result.IsCancellation(ctx, err):
		return OutcomeCancelled
	default:
		return OutcomeFailure
	}
}

func recordError(span otelTrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
