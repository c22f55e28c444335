package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/floodreport/pkg/mcperr"
)

// ErrDatasetLimit indicates every dataset cache slot is taken.
var ErrDatasetLimit = errors.New("runtime: dataset cache limit reached")

// Middleware gates report tool calls through the Controller and scopes each
// call's logger with the tool name and a call id.
type Middleware struct {
	ctrl   *Controller
	logger zerolog.Logger
}

// NewMiddleware constructs a Middleware bound to ctrl. Calls log through
// logger unless the incoming context already carries one.
func NewMiddleware(ctrl *Controller, logger zerolog.Logger) *Middleware {
	return &Middleware{ctrl: ctrl, logger: logger}
}

// ToolMiddleware waits a bounded time for a request slot, runs the handler
// under the operation timeout and always frees the slot.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limits := m.ctrl.limits
		ctx = m.scope(ctx, req.Params.Name)
		logger := zerolog.Ctx(ctx)

		acquireCtx := ctx
		if limits.AcquireRequestTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, limits.AcquireRequestTimeout)
			defer cancel()
		}
		if err := m.ctrl.AcquireRequest(acquireCtx); err != nil {
			logger.Warn().Int("max_concurrent_requests", limits.MaxConcurrentRequests).Msg("request slot unavailable")
			return mcperr.Wrapf(mcperr.BusyResource, "%d report calls already running", limits.MaxConcurrentRequests), nil
		}
		defer m.ctrl.ReleaseRequest()

		callCtx := ctx
		cancel := func() {}
		if limits.OperationTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, limits.OperationTimeout)
		}
		defer cancel()

		start := time.Now()
		res, err := next(callCtx, req)
		if errors.Is(err, context.DeadlineExceeded) || (callCtx.Err() == context.DeadlineExceeded && err == nil && res == nil) {
			logger.Warn().Dur("timeout", limits.OperationTimeout).Msg("tool call timed out")
			return mcperr.New(mcperr.Timeout, ""), nil
		}
		logger.Debug().Dur("duration", time.Since(start)).Bool("tool_error", res != nil && res.IsError).Msg("tool call finished")
		return res, err
	}
}

func (m *Middleware) scope(ctx context.Context, tool string) context.Context {
	base := zerolog.Ctx(ctx)
	if base.GetLevel() == zerolog.Disabled {
		base = &m.logger
	}
	logger := base.With().Str("tool", tool).Str("call_id", uuid.NewString()).Logger()
	return logger.WithContext(ctx)
}
