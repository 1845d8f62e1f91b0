package trace_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/keboola/go-result-client/pkg/client"
	"github.com/keboola/go-result-client/pkg/client/trace"
	"github.com/keboola/go-result-client/pkg/request"
)

func TestLogTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com/ok`, httpmock.NewStringResponder(http.StatusOK, "OK1"))
	transport.RegisterResponder("GET", `https://example.com/error`, httpmock.NewStringResponder(http.StatusConflict, "conflict"))

	// Logs for trace testing
	var logs strings.Builder
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)

	// Create client
	ctx := context.Background()
	c = c.AndTrace(trace.LogTracer(logger))

	// Expected trace
	expected := `
{"level":"debug","request_id":1,"method":"GET","url":"https://example.com/ok","message":"http request started"}
{"level":"debug","request_id":1,"method":"GET","status":200,"sent_bytes":0,"received_bytes":3,"duration":%s,"message":"http request done"}
{"level":"debug","request_id":1,"method":"GET","body_duration":%s,"message":"request processed"}
{"level":"debug","request_id":2,"method":"GET","url":"https://example.com/error","message":"http request started"}
{"level":"debug","request_id":2,"method":"GET","status":409,"sent_bytes":0,"received_bytes":8,"duration":%s,"message":"http request done"}
{"level":"warn","request_id":2,"method":"GET","error":"request GET \"https://example.com/error\" failed: 409 Conflict","body_duration":%s,"message":"request processed"}
`

	// Test
	str := ""
	_, result, err := request.NewHTTPRequest(c).WithGet("https://example.com/ok").WithResult(&str).Send(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "OK1", *result.(*string))
	_, _, err = request.NewHTTPRequest(c).WithGet("https://example.com/error").WithResult(&str).Send(ctx)
	assert.Error(t, err)
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}
