package otel

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/keboola/go-result-client/pkg/client/trace"
)

const (
	httpDNSSpanName            = httpSpanPrefix + "dns"
	httpGetConnSpanName        = httpSpanPrefix + "getconn"
	httpConnectSpanName        = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName   = httpSpanPrefix + "tls"
	httpHeadersSpanName        = httpSpanPrefix + "headers"
	httpSendSpanName           = httpSpanPrefix + "send"
	httpReceiveSpanName        = httpSpanPrefix + "receive"
	attrDNSAddresses           = attribute.Key("http.dns.addrs")
	attrRemoteAddr             = attribute.Key("http.remote")
	attrLocalAddr              = attribute.Key("http.local")
	attrConnectionReused       = attribute.Key("http.conn.reused")
	attrConnectionWasIdle      = attribute.Key("http.conn.wasidle")
	attrConnectionIdleTime     = attribute.Key("http.conn.idletime")
	attrConnectionStartNetwork = attribute.Key("http.conn.start.network")
	attrConnectionDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnectionDoneAddr     = attribute.Key("http.conn.done.addr")
)

// span is a low-level span, it is started and ended by a pair of httptrace hooks.
type span struct {
	tracer otelTrace.Tracer
	ctx    func() context.Context
	name   string
	span   otelTrace.Span
}

func (s *span) start(attrs ...attribute.KeyValue) {
	_, s.span = s.tracer.Start(s.ctx(), s.name, otelTrace.WithSpanKind(otelTrace.SpanKindClient), otelTrace.WithAttributes(attrs...))
}

func (s *span) started() bool {
	return s.span != nil
}

func (s *span) end(err error, attrs ...attribute.KeyValue) {
	if s.span == nil {
		return
	}
	s.span.SetAttributes(attrs...)
	if err != nil {
		recordError(s.span, err)
	}
	s.span.End()
	s.span = nil
}

// registerHTTPTrace registers spans for the low-level httptrace hooks.
// The httpCtx function returns context of the current HTTP request span.
func registerHTTPTrace(tc *trace.ClientTrace, tracer otelTrace.Tracer, httpCtx func() context.Context) {
	newSpan := func(name string) *span {
		return &span{tracer: tracer, ctx: httpCtx, name: name}
	}

	dns := newSpan(httpDNSSpanName)
	tc.DNSStart = func(info httptrace.DNSStartInfo) {
		dns.start(semconv.NetHostName(info.Host))
	}
	tc.DNSDone = func(info httptrace.DNSDoneInfo) {
		addrs := make([]string, 0, len(info.Addrs))
		for _, addr := range info.Addrs {
			addrs = append(addrs, addr.String())
		}
		dns.end(info.Err, attrDNSAddresses.String(strings.Join(addrs, ";")))
	}

	getConn := newSpan(httpGetConnSpanName)
	tc.GetConn = func(host string) {
		getConn.start(semconv.NetHostName(host))
	}
	tc.GotConn = func(info httptrace.GotConnInfo) {
		attrs := []attribute.KeyValue{
			attrConnectionReused.Bool(info.Reused),
			attrConnectionWasIdle.Bool(info.WasIdle),
		}
		if info.Conn != nil {
			attrs = append(attrs,
				attrRemoteAddr.String(info.Conn.RemoteAddr().String()),
				attrLocalAddr.String(info.Conn.LocalAddr().String()),
			)
		}
		if info.WasIdle {
			attrs = append(attrs, attrConnectionIdleTime.String(info.IdleTime.String()))
		}
		getConn.end(nil, attrs...)
	}

	connect := newSpan(httpConnectSpanName)
	tc.ConnectStart = func(network, addr string) {
		connect.start(attrRemoteAddr.String(addr), attrConnectionStartNetwork.String(network))
	}
	tc.ConnectDone = func(network, addr string, err error) {
		connect.end(err, attrConnectionDoneAddr.String(addr), attrConnectionDoneNetwork.String(network))
	}

	// Not reported if the http2.Transport is used directly, without upgrade from the http.Transport.
	tlsHandshake := newSpan(httpTLSHandshakeSpanName)
	tc.TLSHandshakeStart = func() {
		tlsHandshake.start()
	}
	tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
		tlsHandshake.end(err)
	}

	headers := newSpan(httpHeadersSpanName)
	send := newSpan(httpSendSpanName)
	tc.WroteHeaderField = func(_ string, _ []string) {
		if !headers.started() {
			headers.start()
		}
	}
	tc.WroteHeaders = func() {
		headers.end(nil)
		send.start()
	}
	tc.WroteRequest = func(info httptrace.WroteRequestInfo) {
		send.end(info.Err)
	}

	receive := newSpan(httpReceiveSpanName)
	tc.GotFirstResponseByte = func() {
		receive.start()
	}
	// The receive span ends together with the HTTP request
	httpRequestDone := tc.HTTPRequestDone
	tc.HTTPRequestDone = func(res *http.Response, sent, received int64, err error) {
		receive.end(err, attrReadBytes.Int64(received))
		httpRequestDone(res, sent, received, err)
	}
}
