package runtime

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vinodismyname/floodreport/config"
)

// Limits captures the concurrency and timeout guardrails of the MCP server.
type Limits struct {
	MaxConcurrentRequests int
	MaxCachedDatasets     int

	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits initializes Limits with config defaults for unset values.
func NewLimits(maxConcurrentRequests, maxCachedDatasets int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxCachedDatasets <= 0 {
		maxCachedDatasets = config.DefaultMaxCachedDatasets
	}
	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxCachedDatasets:     maxCachedDatasets,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// LimitsFromConfig maps the server section of cfg onto Limits.
func LimitsFromConfig(cfg config.ServerConfig) Limits {
	l := NewLimits(cfg.MaxConcurrentRequests, cfg.MaxCachedDatasets)
	if cfg.OperationTimeout > 0 {
		l.OperationTimeout = cfg.OperationTimeout
	}
	if cfg.AcquireRequestTimeout > 0 {
		l.AcquireRequestTimeout = cfg.AcquireRequestTimeout
	}
	return l
}

// Controller coordinates the request and dataset semaphores.
type Controller struct {
	limits           Limits
	requestSemaphore *semaphore.Weighted
	datasetSemaphore *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:           limits,
		requestSemaphore: semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		datasetSemaphore: semaphore.NewWeighted(int64(limits.MaxCachedDatasets)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireDataset reserves a cache slot without waiting; a full cache fails fast.
func (c *Controller) AcquireDataset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.datasetSemaphore.TryAcquire(1) {
		return ErrDatasetLimit
	}
	return nil
}

// ReleaseDataset frees a cache slot.
func (c *Controller) ReleaseDataset() {
	c.datasetSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
