package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Hooks logs server lifecycle, tool calls and report runs, and keeps
// in-process counters for them.
type Hooks struct {
	logger    zerolog.Logger
	toolCalls atomic.Int64
	toolErrs  atomic.Int64
	reports   atomic.Int64
}

// NewHooks constructs a Hooks instance with the provided logger.
func NewHooks(logger zerolog.Logger) *Hooks {
	return &Hooks{logger: logger}
}

// OnServerStart is called when the server begins accepting connections.
func (h *Hooks) OnServerStart() {
	h.logger.Info().Msg("MCP server starting")
}

// OnServerStop is called during server shutdown.
func (h *Hooks) OnServerStop() {
	h.logger.Info().
		Int64("tool_calls", h.toolCalls.Load()).
		Int64("tool_errors", h.toolErrs.Load()).
		Int64("reports", h.reports.Load()).
		Msg("MCP server stopping")
}

// ReportDone records one computed report.
func (h *Hooks) ReportDone(ctx context.Context, name string, groups int, elapsed time.Duration, err error) {
	h.reports.Add(1)
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &h.logger
	}
	evt := logger.Info()
	if err != nil {
		evt = logger.Warn().Err(err)
	}
	evt.Str("report", name).Int("groups", groups).Dur("duration", elapsed).Msg("report computed")
}

// Counts returns the tool call, tool error and report totals.
func (h *Hooks) Counts() (toolCalls, toolErrors, reports int64) {
	return h.toolCalls.Load(), h.toolErrs.Load(), h.reports.Load()
}

// ServerHooks builds the mcp-go hook set.
func (h *Hooks) ServerHooks() *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		h.logger.Info().Str("session_id", session.SessionID()).Msg("session registered")
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		h.logger.Info().Str("session_id", session.SessionID()).Msg("session unregistered")
	})

	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		h.logger.Info().Int("tools", len(res.Tools)).Msg("list_tools served")
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		h.toolCalls.Add(1)
		evt := h.logger.Info()
		if res != nil && res.IsError {
			h.toolErrs.Add(1)
			evt = h.logger.Warn().Bool("tool_error", true)
		}
		evt.Str("tool", req.Params.Name).Msg("tool call served")
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		h.logger.Error().Str("method", string(method)).Err(err).Msg("request error")
	})

	return hooks
}
