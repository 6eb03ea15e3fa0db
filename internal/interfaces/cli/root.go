// Package cli implements the chemprep command tree: dataset sharding,
// descriptor featurization, and SMILES-map construction.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChemPrep/internal/config"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/internal/metrics"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
}

// appContext carries the initialized dependencies through the command tree.
type appContext struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

type appContextKey struct{}

// NewRootCommand builds the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "chemprep",
		Short:   "ChemPrep prepares molecule datasets for machine learning",
		Long:    "ChemPrep shards molecule files into fixed-size batches, computes\nmolecular descriptors, and builds identifier-to-SMILES mappings for\ndataset bookkeeping.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initApp(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(newShardCommand())
	cmd.AddCommand(newFeaturizeCommand())
	cmd.AddCommand(newSmilesMapCommand())

	return cmd
}

// initApp loads configuration, builds the logger, and stores the app
// context on the command.
func initApp(cmd *cobra.Command, opts *rootOptions) error {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	app := &appContext{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(prometheus.NewRegistry()),
	}
	cmd.SetContext(context.WithValue(cmd.Context(), appContextKey{}, app))
	return nil
}

// getApp extracts the app context installed by initApp.
func getApp(cmd *cobra.Command) (*appContext, error) {
	app, ok := cmd.Context().Value(appContextKey{}).(*appContext)
	if !ok {
		return nil, errors.New(errors.ErrCodeInternal, "command context not initialized")
	}
	return app, nil
}

// Execute runs the CLI, cancelling on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}
