package runtime

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func callRequest(name string) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	return req
}

func TestMiddleware_Outcomes(t *testing.T) {
	cases := []struct {
		name     string
		limits   func() Limits
		saturate bool
		handler  server.ToolHandlerFunc
		prefix   string
	}{
		{
			name: "completes within limits",
			limits: func() Limits {
				l := NewLimits(1, 1)
				l.OperationTimeout = 200 * time.Millisecond
				l.AcquireRequestTimeout = 50 * time.Millisecond
				return l
			},
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("ok"), nil
			},
		},
		{
			name: "busy when every slot is taken",
			limits: func() Limits {
				l := NewLimits(1, 1)
				l.AcquireRequestTimeout = 10 * time.Millisecond
				return l
			},
			saturate: true,
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				panic("handler must not run when saturated")
			},
			prefix: "BUSY_RESOURCE:",
		},
		{
			name: "timeout when the report overruns",
			limits: func() Limits {
				l := NewLimits(1, 1)
				l.OperationTimeout = 20 * time.Millisecond
				l.AcquireRequestTimeout = 20 * time.Millisecond
				return l
			},
			handler: func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			prefix: "TIMEOUT:",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := NewController(tc.limits())
			if tc.saturate {
				require.NoError(t, ctrl.AcquireRequest(context.Background()))
				defer ctrl.ReleaseRequest()
			}
			wrapped := NewMiddleware(ctrl, zerolog.Nop()).ToolMiddleware(tc.handler)

			res, err := wrapped(context.Background(), callRequest("regional_efficiency"))
			require.NoError(t, err)
			require.NotNil(t, res)
			if tc.prefix == "" {
				require.False(t, res.IsError)
				return
			}
			require.True(t, res.IsError)
			require.True(t, strings.HasPrefix(resultText(t, res), tc.prefix), resultText(t, res))
		})
	}
}

func TestMiddleware_ScopesLogger(t *testing.T) {
	var buf bytes.Buffer
	mw := NewMiddleware(NewController(NewLimits(2, 1)), zerolog.New(&buf))

	wrapped := mw.ToolMiddleware(func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		zerolog.Ctx(ctx).Info().Msg("inside handler")
		return mcp.NewToolResultText("ok"), nil
	})
	_, err := wrapped(context.Background(), callRequest("dataset_summary"))
	require.NoError(t, err)

	require.Contains(t, buf.String(), `"tool":"dataset_summary"`)
	require.Contains(t, buf.String(), `"call_id":`)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}
