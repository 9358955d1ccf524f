// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the orchestrator of §6: loading the YAML
// pipeline-group configuration, resolving each node's URN through a
// factory registry, wiring receivers/processors/exporters together with
// bounded channels, and driving their lifecycle (start, shutdown
// broadcast, drain) across however many pipeline replicas the
// configuration names.
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeConfig is one receiver/processor/exporter entry: its URN selects the
// factory, InPorts/OutPorts name the channels it reads/writes, and Config
// carries the URN-specific settings as a raw YAML node so the factory can
// decode it into its own config type (§6 node URN table).
type NodeConfig struct {
	URN      string    `yaml:"urn"`
	Config   yaml.Node `yaml:"config"`
	InPorts  []string  `yaml:"in_ports"`
	OutPorts []string  `yaml:"out_ports"`
}

// Settings bounds the channels built for a pipeline when a node doesn't
// request a specific capacity (§5 "All channels are bounded").
type Settings struct {
	DefaultCtrlChannelSize  int `yaml:"default_ctrl_channel_size"`
	DefaultPdataChannelSize int `yaml:"default_pdata_channel_size"`

	// Shared, when true, wires this pipeline's channels and nodes for the
	// work-stealing multi-threaded scheduler (§5 mode 2). When false
	// (the default), it targets the thread-per-core cooperative model;
	// goroutines are pinned to the core named by CoreID only when
	// PinCore is also set.
	Shared bool `yaml:"shared"`

	// PinCore opts into core pinning for this pipeline's node goroutines;
	// CoreID is only consulted when it is true, so an absent core_id in
	// YAML can never be mistaken for "pin to core 0".
	PinCore bool `yaml:"pin_core"`
	CoreID  int  `yaml:"core_id"`
}

func (s *Settings) withDefaults() Settings {
	out := *s
	if out.DefaultCtrlChannelSize <= 0 {
		out.DefaultCtrlChannelSize = 16
	}
	if out.DefaultPdataChannelSize <= 0 {
		out.DefaultPdataChannelSize = 64
	}
	return out
}

// PipelineConfig is one named pipeline within a group: its receivers feed
// processors feed exporters, wired by the in_ports/out_ports names that
// key into the same pipeline's node map (§6).
type PipelineConfig struct {
	Receivers  map[string]NodeConfig `yaml:"receivers"`
	Processors map[string]NodeConfig `yaml:"processors"`
	Exporters  map[string]NodeConfig `yaml:"exporters"`
	Settings   Settings              `yaml:"settings"`
}

// GroupConfig is one pipeline group: an independently startable,
// shutdownable, and updatable unit of pipelines (§9 lifecycle FSM).
type GroupConfig struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

// Config is the top-level pipeline-group configuration document (§6
// "Pipeline configuration (YAML/JSON)").
type Config struct {
	PipelineGroups map[string]GroupConfig `yaml:"pipeline_groups"`
}

// LoadConfig reads and parses a pipeline-group configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("pipeline: parse config: %w", err)
	}
	if len(cfg.PipelineGroups) == 0 {
		return nil, fmt.Errorf("pipeline: config declares no pipeline_groups")
	}
	return &cfg, nil
}
