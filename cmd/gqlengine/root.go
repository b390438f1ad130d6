package main

import (
	"fmt"

	"github.com/hanpama/gqlengine/internal/config"
	"github.com/hanpama/gqlengine/internal/executor"
	"github.com/hanpama/gqlengine/internal/mapping"
	"github.com/hanpama/gqlengine/internal/reqcache"
	"github.com/hanpama/gqlengine/internal/starwars"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// newRootCmd returns a fresh command tree, so tests can run it repeatedly.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gqlengine",
		Short: "GraphQL execution engine",
		Long: `gqlengine executes GraphQL requests against a resolver model.

It serves the sample Star Wars model over HTTP, or runs a single request
from the command line and prints the JSON response.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path of the YAML config file (defaults apply when empty)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExecCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gqlengine %s\n", version)
			return err
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newEngine builds an engine over a fresh sample store.
func newEngine(cfg *config.Config, logger *zap.Logger) (*executor.Engine, error) {
	m, err := starwars.NewModel(starwars.NewStore())
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	opts := []executor.Option{
		executor.WithLogger(logger),
		executor.WithQuotas(executor.Quotas{
			MaxOutputObjects: cfg.Engine.MaxOutputObjects,
			MaxDepth:         cfg.Engine.MaxDepth,
		}),
		executor.WithParallelQueries(cfg.Engine.ParallelQueries),
		executor.WithSlowRequestThreshold(cfg.Engine.SlowRequestThreshold),
		executor.WithResolverTimeout(cfg.Engine.ResolverTimeout),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, executor.WithCache(reqcache.New[*mapping.MappedRequest](cfg.Cache.Size, cfg.Cache.EvictAge)))
	} else {
		opts = append(opts, executor.WithCache(nil))
	}
	return executor.New(m, opts...), nil
}

