package runtime

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/otokawa-k/kaonavi-mcp-server/config"
)

// Limits captures the concurrency and timing guardrails configured for
// the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxConcurrentFetches  int

	// Cache freshness
	CacheTTL time.Duration

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits initializes Limits with fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxConcurrentFetches int, cacheTTL time.Duration) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxConcurrentFetches <= 0 {
		maxConcurrentFetches = config.DefaultMaxConcurrentFetches
	}
	if cacheTTL <= 0 {
		cacheTTL = config.DefaultCacheTTL
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxConcurrentFetches:  maxConcurrentFetches,
		CacheTTL:              cacheTTL,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// Controller coordinates runtime semaphores for request and upstream
// fetch guardrails.
type Controller struct {
	limits           Limits
	requestSemaphore *semaphore.Weighted
	fetchSemaphore   *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:           limits,
		requestSemaphore: semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		fetchSemaphore:   semaphore.NewWeighted(int64(limits.MaxConcurrentFetches)),
	}
}

// AcquireRequest reserves capacity for an incoming tool call.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireFetch reserves an upstream fetch slot.
func (c *Controller) AcquireFetch(ctx context.Context) error {
	return c.fetchSemaphore.Acquire(ctx, 1)
}

// ReleaseFetch frees an upstream fetch slot.
func (c *Controller) ReleaseFetch() {
	c.fetchSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for logging.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
