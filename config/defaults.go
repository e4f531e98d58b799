package config

import "time"

// Default runtime limits and guardrails for the Kaonavi MCP server.
// These values are conservative and can be overridden via environment
// variables or CLI flags. They are referenced by internal/runtime and
// the query facade.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxConcurrentFetches  = 4

	// Schema introspection
	DefaultSampleValues = 5
)

const (
	// Cache freshness
	DefaultCacheTTL = 10 * time.Minute

	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
	DefaultUpstreamTimeout       = 15 * time.Second
)

// Environment variable names shared between main and the upstream client.
const (
	EnvBaseURL        = "KAONAVI_BASE_URL"
	EnvConsumerKey    = "KAONAVI_CONSUMER_KEY"
	EnvConsumerSecret = "KAONAVI_CONSUMER_SECRET"
	EnvSheetsConfig   = "KAONAVI_MCP_SHEETS_CONFIG"
	EnvCacheTTL       = "KAONAVI_MCP_CACHE_TTL"
)
