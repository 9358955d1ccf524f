// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// ConfigError reports that a node's URN is unknown or its config section
// failed to decode (§6 "Result<NodeWrapper<Pdata>, ConfigError>").
type ConfigError struct {
	NodeID pdata.NodeID
	URN    string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pipeline: node %q (urn %q): %v", e.NodeID, e.URN, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Factory builds one node.Implementation from its raw YAML config section.
// It returns the decoded user config alongside the implementation so the
// orchestrator can expose it via Wrapper.UserConfig for diagnostics and
// CollectTelemetry reporting.
type Factory func(id pdata.NodeID, raw yaml.Node, logger *zap.Logger) (node.Implementation, any, error)

// Registry maps node URNs to their factory (§6 "Each node URN maps via a
// registration table to a factory function").
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty URN registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds (or replaces) the factory for a URN.
func (r *Registry) Register(urn string, f Factory) {
	r.factories[urn] = f
}

// Build resolves urn and invokes its factory, wrapping any decode error as
// a ConfigError that names the offending node.
func (r *Registry) Build(id pdata.NodeID, nc NodeConfig, logger *zap.Logger) (node.Implementation, any, error) {
	f, ok := r.factories[nc.URN]
	if !ok {
		return nil, nil, &ConfigError{NodeID: id, URN: nc.URN, Err: fmt.Errorf("no factory registered for this urn")}
	}
	impl, userCfg, err := f(id, nc.Config, logger)
	if err != nil {
		return nil, nil, &ConfigError{NodeID: id, URN: nc.URN, Err: err}
	}
	return impl, userCfg, nil
}
