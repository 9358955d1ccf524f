// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/exporter"
)

// exporterDebugConfig is the YAML shape of a urn:otap:exporter:debug node:
// exporter.DebugConfig plus the heartbeat interval exporter.NewNode takes
// as a separate argument (§7 debug/file exporter).
type exporterDebugConfig struct {
	Path              string        `yaml:"path" mapstructure:"path"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

func newDebugSinkFromConfig(cfg exporterDebugConfig) (*exporter.DebugSink, error) {
	return exporter.NewDebugSink(exporter.DebugConfig{Path: cfg.Path})
}

func newExporterNode(sink exporter.Sink, heartbeat time.Duration) *exporter.Node {
	return exporter.NewNode(sink, heartbeat)
}
