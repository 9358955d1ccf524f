// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Command otapdataflow runs a pipeline-group configuration: it builds every
// receiver/processor/exporter named in the YAML document, starts them, and
// blocks until an interrupt or terminate signal triggers a graceful
// shutdown (§5 "Cancellation & timeouts").
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow/pkg/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath      string
		shutdownTimeout time.Duration
		devLogger       bool
	)

	cmd := &cobra.Command{
		Use:   "otapdataflow",
		Short: "Run an OTAP dataflow pipeline-group configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, shutdownTimeout, devLogger)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the pipeline-group YAML configuration (required)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "time to wait for pipelines to drain after a shutdown signal")
	cmd.Flags().BoolVar(&devLogger, "dev", false, "use a human-readable development logger instead of the production JSON logger")
	cmd.MarkFlagRequired("config")

	return cmd
}

func run(ctx context.Context, configPath string, shutdownTimeout time.Duration, devLogger bool) error {
	logger, err := newLogger(devLogger)
	if err != nil {
		return fmt.Errorf("otapdataflow: build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("otapdataflow: %w", err)
	}

	registry := pipeline.NewRegistry()
	pipeline.RegisterBuiltins(registry)

	orch := pipeline.NewOrchestrator(registry, nil, logger)
	if err := orch.Build(cfg); err != nil {
		return fmt.Errorf("otapdataflow: build pipelines: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Run(sigCtx); err != nil {
		return fmt.Errorf("otapdataflow: run pipelines: %w", err)
	}
	logger.Info("pipelines started", zap.String("config", configPath))

	<-sigCtx.Done()
	logger.Info("shutdown signal received, draining pipelines", zap.Duration("timeout", shutdownTimeout))

	if err := orch.Shutdown(shutdownTimeout); err != nil {
		return fmt.Errorf("otapdataflow: shutdown: %w", err)
	}
	return nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
