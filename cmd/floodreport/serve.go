package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vinodismyname/floodreport/config"
	"github.com/vinodismyname/floodreport/internal/dataset"
	"github.com/vinodismyname/floodreport/internal/registry"
	"github.com/vinodismyname/floodreport/internal/runtime"
	"github.com/vinodismyname/floodreport/internal/security"
	"github.com/vinodismyname/floodreport/internal/telemetry"
	"github.com/vinodismyname/floodreport/pkg/version"
)

// allowedDirsEnv extends server.allowed_dirs with an os.PathListSeparator list.
const allowedDirsEnv = config.EnvPrefix + "_ALLOWED_DIRS"

func (a *app) serveCmd() *cobra.Command {
	var (
		useStdio        bool
		model           string
		shutdownTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the report tools as an MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !useStdio {
				return errors.New("no transport selected; use --stdio to run over stdio")
			}
			cfg, ctx, err := a.setup(cmd)
			if err != nil {
				return err
			}
			return a.serve(ctx, cfg, model, shutdownTimeout)
		},
	}
	cmd.Flags().BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	cmd.Flags().StringVar(&model, "model", "gpt-4o", "Client model name used to report its context window")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	return cmd
}

func (a *app) serve(ctx context.Context, cfg *config.Config, model string, shutdownTimeout time.Duration) error {
	logger := zerolog.Ctx(ctx)

	// Fail safe: no allow-list means no file access.
	secMgr, err := security.NewManagerFromList(cfg.Server.AllowedDirs, os.Getenv(allowedDirsEnv))
	if err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		return fmt.Errorf("%w; set server.allowed_dirs or %s", err, allowedDirsEnv)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	limits := runtime.LimitsFromConfig(cfg.Server)
	ctrl := runtime.NewController(limits)
	mw := runtime.NewMiddleware(ctrl, *logger)

	cache := dataset.NewCache(cfg.Server.DatasetIdleTTL, config.DefaultDatasetCleanupPeriod, ctrl, secMgr, nil)
	cache.Start()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := cache.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("dataset cache close failed")
		}
	}()

	opts, err := reportOptions(cfg)
	if err != nil {
		return err
	}
	hooks := telemetry.NewHooks(*logger)
	filter := registry.NewReportToolFilter(cfg.SelectedReports())

	srv := server.NewMCPServer(
		"Flood Control Report Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(hooks.ServerHooks()),
		server.WithToolHandlerMiddleware(mw.ToolMiddleware),
		server.WithToolFilter(func(ctx context.Context, tools []mcp.Tool) []mcp.Tool { return filter.FilterTools(ctx, tools) }),
	)

	reg := registry.New()
	registry.RegisterReportTools(srv, reg, &registry.Service{
		Cache:   cache,
		Options: opts,
		Window:  datasetOptions(cfg).Window,
		Sheet:   cfg.Sheet,
	}, limits)

	logger.Info().
		Str("build", version.String()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_cached_datasets", limits.MaxCachedDatasets).
		Int("model_context_size", reg.ModelContextSize(model)).
		Str("window", datasetOptions(cfg).Window.Label()).
		Msg("server bootstrap configured")

	hooks.OnServerStart()
	defer hooks.OnServerStop()

	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(log.New(logger, "", 0))
	if err := stdio.Listen(ctx, a.stdin, a.stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
