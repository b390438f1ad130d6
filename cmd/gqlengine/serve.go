package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanpama/gqlengine/internal/config"
	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/logging"
	"github.com/hanpama/gqlengine/internal/metrics"
	"github.com/hanpama/gqlengine/internal/otel"
	"github.com/hanpama/gqlengine/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr   string
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sample model over HTTP",
		Example: `  # Serve with defaults on :8080
  gqlengine serve

  # Serve with a config file, overriding the listen address
  gqlengine serve -c gqlengine.yaml --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("pretty") {
				cfg.Server.Pretty = pretty
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON responses")
	return cmd
}

// serve runs the HTTP server until ctx is done, then shuts it down.
func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Setup(cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
		if err != nil {
			return fmt.Errorf("otel setup: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	var sopts []server.Option
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.AllowedOrigins...))
	}
	if len(cfg.Server.ForwardHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.ForwardHeaders...))
	}
	sopts = append(sopts,
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, server.New(engine, sopts...))
	if cfg.Metrics.Enabled {
		collector := metrics.New(
			metrics.WithCacheStats(engine.CacheStats),
			metrics.WithRuntimeCollectors(),
		)
		unsubscribe := collector.Subscribe()
		defer unsubscribe()
		mux.Handle(cfg.Metrics.Path, collector.Handler())
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("GraphQL server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("path", cfg.Server.Path),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
