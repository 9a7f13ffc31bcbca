// Package cmd defines the pubdir command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/config"
	"github.com/JakeFAU/publisher-directory/internal/id/uuid"
	"github.com/JakeFAU/publisher-directory/internal/logging"
	"github.com/JakeFAU/publisher-directory/internal/metrics"
)

type envKeyType string

const envKey envKeyType = "env"

// env carries the per-invocation state built in PersistentPreRunE.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	runID  string
}

type rootOptions struct {
	configPath string
}

// newRootCmd assembles the command tree. Each call returns an independent
// tree so tests can execute it repeatedly.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pubdir",
		Short: "Builds the publisher directory artifacts.",
		Long: `pubdir turns the tabular publisher sources into the feed.json and
sources.json directory artifacts and maintains the lookup tables
they are enriched from: the favicon and cover info lookups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file (yaml, json or toml)")

	cmd.AddCommand(newFaviconsCmd(opts))
	cmd.AddCommand(newCoversCmd(opts))
	cmd.AddCommand(newSourcesCmd(opts))
	return cmd
}

// setup loads configuration, builds the run-scoped logger and stores both
// in the command context.
func setup(cmd *cobra.Command, opts *rootOptions, overrides ...config.Option) (*env, error) {
	cfg, err := config.Load(opts.configPath, overrides...)
	if err != nil {
		return nil, err
	}
	base, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	runID := uuid.New().RunID()
	e := &env{
		cfg:    cfg,
		logger: logging.ForRun(base, cmd.Name(), runID),
		runID:  runID,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), envKey, e))
	return e, nil
}

func envFrom(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey).(*env)
	if !ok || e == nil {
		return nil, errors.New("command environment not initialized")
	}
	return e, nil
}

// finish records a successful run and pushes metrics when a gateway is set.
func finish(ctx context.Context, e *env, command string) {
	metrics.MarkRunSucceeded(command, time.Now())
	if err := metrics.Push(ctx, e.cfg.Metrics.PushgatewayURL, e.cfg.Metrics.JobName); err != nil {
		e.logger.Warn("metrics push failed", zap.Error(err))
	}
}

func syncLogger(e *env) {
	if e == nil {
		return
	}
	if err := e.logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pubdir: %v\n", err)
		return 1
	}
	return 0
}
