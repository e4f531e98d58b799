package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/otokawa-k/kaonavi-mcp-server/config"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/kaonavi"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/query"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/registry"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/runtime"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/store"
	"github.com/otokawa-k/kaonavi-mcp-server/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		useStdio bool
		cacheTTL time.Duration
	)

	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.DurationVar(&cacheTTL, "cache-ttl", 0, "Table cache TTL (default 10m; env "+config.EnvCacheTTL+" overrides)")
	flag.Parse()

	logger := zlog.With().Str("service", "kaonavi-mcp-server").Logger()
	ctx := logger.WithContext(context.Background())

	if cacheTTL <= 0 {
		if env := os.Getenv(config.EnvCacheTTL); env != "" {
			d, err := time.ParseDuration(env)
			if err != nil {
				logger.Error().Err(err).Str("value", env).Msg("invalid cache TTL in environment")
				fmt.Fprintf(os.Stderr, "invalid %s; use a Go duration like 10m\n", config.EnvCacheTTL)
				os.Exit(1)
			}
			cacheTTL = d
		}
	}

	creds, err := kaonavi.CredentialsFromEnv(os.Getenv)
	if err != nil {
		logger.Error().Err(err).Msg("upstream credentials not configured")
		fmt.Fprintln(os.Stderr, "set KAONAVI_BASE_URL, KAONAVI_CONSUMER_KEY, and KAONAVI_CONSUMER_SECRET")
		os.Exit(1)
	}

	sheetsConfigPath := os.Getenv(config.EnvSheetsConfig)
	if sheetsConfigPath == "" {
		sheetsConfigPath = "sheets_config.json"
	}

	limits := runtime.NewLimits(config.DefaultMaxConcurrentRequests, config.DefaultMaxConcurrentFetches, cacheTTL)
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController)

	client := kaonavi.NewClient(creds, nil, nil)
	cache := store.NewCache(limits.CacheTTL, nil)
	svc := query.NewService(query.LimitFetcher(client, runtimeController), cache)

	toolRegistry := registry.New()

	srv := server.NewMCPServer(
		"Kaonavi MCP Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(buildHooks(logger)),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
	)

	registry.RegisterTools(srv, toolRegistry, svc, sheetsConfigPath)

	logger.Info().
		Ctx(ctx).
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_concurrent_fetches", limits.MaxConcurrentFetches).
		Dur("cache_ttl", limits.CacheTTL).
		Int("tools", toolRegistry.Count()).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if useStdio {
		if err := server.ServeStdio(srv); err != nil {
			// Use stderr for transport errors so clients don't misinterpret output
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// If no transport flags provided, print usage and exit non-zero
	fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
	os.Exit(2)
}

// buildHooks constructs mcp-go server hooks for basic telemetry.
func buildHooks(logger zerolog.Logger) *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Info().Str("session_id", session.SessionID()).Msg("session registered")
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Info().Str("session_id", session.SessionID()).Msg("session unregistered")
	})

	hooks.AddAfterListTools(func(ctx context.Context, id any, req *mcp.ListToolsRequest, res *mcp.ListToolsResult) {
		logger.Info().Int("tools", len(res.Tools)).Msg("list_tools served")
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		logger.Info().Str("tool", req.Params.Name).Msg("tool call served")
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logger.Error().Str("method", string(method)).Err(err).Msg("request error")
	})

	return hooks
}
