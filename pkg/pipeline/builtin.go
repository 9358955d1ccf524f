// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/otaprpc"
	"github.com/open-telemetry/otap-dataflow/pkg/otlpreceiver"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
	"github.com/open-telemetry/otap-dataflow/pkg/processor/attributes"
	"github.com/open-telemetry/otap-dataflow/pkg/processor/transform"
	"github.com/open-telemetry/otap-dataflow/pkg/receiver/syslogcef"
	"github.com/open-telemetry/otap-dataflow/pkg/retry"
)

// Well-known URNs for the node kinds this repository ships. An operator's
// YAML config names one of these per receiver/processor/exporter entry.
const (
	URNOTLPReceiver       = "urn:otap:receiver:otlp"
	URNOTAPReceiver       = "urn:otap:receiver:otaprpc"
	URNSyslogCEFReceiver  = "urn:otap:receiver:syslogcef"
	URNAttributesProcessor = "urn:otap:processor:attributes"
	URNTransformProcessor = "urn:otap:processor:transform"
	URNRetryProcessor     = "urn:otap:processor:retry"
	URNDebugExporter      = "urn:otap:exporter:debug"
)

func decode(raw yaml.Node, out any) error {
	if err := raw.Decode(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// RegisterBuiltins populates r with factories for every node kind this
// repository ships, keyed by the URNs above.
func RegisterBuiltins(r *Registry) {
	r.Register(URNOTLPReceiver, func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error) {
		var cfg otlpreceiver.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return otlpreceiver.NewReceiver(cfg, logger), cfg, nil
	})

	r.Register(URNOTAPReceiver, func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error) {
		var cfg otaprpc.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return otaprpc.NewReceiver(cfg, logger), cfg, nil
	})

	r.Register(URNSyslogCEFReceiver, func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error) {
		var cfg syslogcef.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return syslogcef.NewReceiver(cfg, logger), cfg, nil
	})

	r.Register(URNAttributesProcessor, func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error) {
		var cfg attributes.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return attributes.NewProcessor(cfg), cfg, nil
	})

	r.Register(URNTransformProcessor, func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error) {
		var cfg transform.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return transform.NewProcessor(cfg), cfg, nil
	})

	r.Register(URNRetryProcessor, func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error) {
		var cfg retry.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return retry.NewProcessor(cfg), cfg, nil
	})

	r.Register(URNDebugExporter, func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error) {
		var cfg exporterDebugConfig
		if err := decode(raw, &cfg); err != nil {
			return nil, nil, err
		}
		sink, err := newDebugSinkFromConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		return newExporterNode(sink, cfg.HeartbeatInterval), cfg, nil
	})
}
