package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DialTimeout specifies default maximum connection initialization time.
	DialTimeout = 3 * time.Second
	// KeepAlive specifies default interval between keep-alive probes.
	KeepAlive = 10 * time.Second
	// TLSHandshakeTimeout specifies default timeout of TLS handshake.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout specifies default amount of time to wait for a server's response headers.
	ResponseHeaderTimeout = 20 * time.Second
	// MaxConnectionsPerHost specifies default maximum number of open connections to a host.
	MaxConnectionsPerHost = 32
	// HTTP2PingTimeout specifies timeouts of the HTTP2Transport health checks.
	HTTP2PingTimeout = 3 * time.Second
)

// DefaultTransport is the net/http transport with reasonable limits, HTTP2 is preferred.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           Dialer().DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   MaxConnectionsPerHost,
	}
}

// HTTP2Transport forces HTTP2 protocol.
func HTTP2Transport() *http2.Transport {
	dialer := Dialer()
	return &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			tlsDialer := &tls.Dialer{NetDialer: dialer, Config: cfg}
			return tlsDialer.DialContext(ctx, network, addr)
		},
		ReadIdleTimeout:  HTTP2PingTimeout,
		PingTimeout:      HTTP2PingTimeout,
		WriteByteTimeout: HTTP2PingTimeout,
	}
}

// Dialer - default dialer.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}
