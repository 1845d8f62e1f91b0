package client_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-result-client/pkg/client"
	"github.com/keboola/go-result-client/pkg/request"
)

func TestDefaultTransport(t *testing.T) {
	t.Parallel()
	transport := client.DefaultTransport()
	assert.True(t, transport.ForceAttemptHTTP2)
	assert.Equal(t, client.TLSHandshakeTimeout, transport.TLSHandshakeTimeout)
	assert.Equal(t, client.ResponseHeaderTimeout, transport.ResponseHeaderTimeout)
	assert.Equal(t, client.MaxConnectionsPerHost, transport.MaxConnsPerHost)
	assert.NotNil(t, transport.DialContext)
}

func TestHTTP2Transport(t *testing.T) {
	t.Parallel()
	transport := client.HTTP2Transport()
	assert.Equal(t, client.HTTP2PingTimeout, transport.ReadIdleTimeout)
	assert.Equal(t, client.HTTP2PingTimeout, transport.PingTimeout)
	assert.NotNil(t, transport.DialTLSContext)
}

func TestNewMockedClient(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	transport.RegisterResponder(http.MethodGet, "https://example.com", httpmock.NewStringResponder(200, "OK"))

	var out string
	_, _, err := request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(&out).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", out)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}
