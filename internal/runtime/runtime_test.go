package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otokawa-k/kaonavi-mcp-server/config"
)

func TestControllerAcquireRelease(t *testing.T) {
	limits := NewLimits(1, 1, time.Minute)
	controller := NewController(limits)

	require.Equal(t, limits, controller.LimitsSnapshot())

	require.NoError(t, controller.AcquireRequest(context.Background()))
	controller.ReleaseRequest()

	require.NoError(t, controller.AcquireFetch(context.Background()))
	controller.ReleaseFetch()
}

func TestNewLimitsDefaults(t *testing.T) {
	limits := NewLimits(0, 0, 0)

	require.Equal(t, config.DefaultMaxConcurrentRequests, limits.MaxConcurrentRequests)
	require.Equal(t, config.DefaultMaxConcurrentFetches, limits.MaxConcurrentFetches)
	require.Equal(t, config.DefaultCacheTTL, limits.CacheTTL)
	require.Equal(t, config.DefaultOperationTimeout, limits.OperationTimeout)
	require.Equal(t, config.DefaultAcquireRequestTimeout, limits.AcquireRequestTimeout)
}

func TestNewLimitsKeepsExplicitValues(t *testing.T) {
	limits := NewLimits(3, 2, 5*time.Minute)

	require.Equal(t, 3, limits.MaxConcurrentRequests)
	require.Equal(t, 2, limits.MaxConcurrentFetches)
	require.Equal(t, 5*time.Minute, limits.CacheTTL)
}
