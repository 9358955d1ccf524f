// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Command otapctl is the operator-facing companion to otapdataflow. It
// loads the same pipeline-group configuration, runs it in-process, and
// renders the observed-event bus (§6 "Observed events") as a live table,
// standing in for the out-of-scope remote control-plane/TUI observer.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow/pkg/observer"
	"github.com/open-telemetry/otap-dataflow/pkg/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otapctl",
		Short: "Operator CLI for an OTAP dataflow pipeline-group configuration",
	}
	cmd.AddCommand(newWatchCmd())
	return cmd
}

func newWatchCmd() *cobra.Command {
	var (
		configPath string
		busSize    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a pipeline-group configuration and tail its observed-event bus as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), cmd.OutOrStdout(), configPath, busSize)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the pipeline-group YAML configuration (required)")
	cmd.Flags().IntVar(&busSize, "bus-size", 256, "ring capacity of the observed-event bus")
	cmd.MarkFlagRequired("config")

	return cmd
}

func watch(ctx context.Context, out io.Writer, configPath string, busSize int) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("otapctl: build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("otapctl: %w", err)
	}

	registry := pipeline.NewRegistry()
	pipeline.RegisterBuiltins(registry)

	bus := observer.NewBus(busSize)
	orch := pipeline.NewOrchestrator(registry, bus, logger)
	if err := orch.Build(cfg); err != nil {
		return fmt.Errorf("otapctl: build pipelines: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Run(sigCtx); err != nil {
		return fmt.Errorf("otapctl: run pipelines: %w", err)
	}

	events, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()

	table := newEventTable(out)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCtx.Done():
			return orch.Shutdown(30 * time.Second)
		case e := <-events:
			appendEventRow(table, e)
		case <-ticker.C:
			table.Render()
		}
	}
}

func newEventTable(out io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"time", "group", "pipeline", "core", "node", "kind", "message"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	return table
}

func appendEventRow(table *tablewriter.Table, e observer.Event) {
	nodeID := ""
	if e.Node != nil {
		nodeID = e.Node.NodeID
	}
	table.Append([]string{
		e.Timestamp.Format(time.RFC3339),
		e.GroupID,
		e.PipelineID,
		fmt.Sprintf("%d", e.CoreID),
		nodeID,
		string(e.Kind),
		e.Message,
	})
}
