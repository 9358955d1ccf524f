// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package attributes implements an attribute-mutation processor — delete,
// upsert, rename and hash operations over resource/scope/record-level
// attribute maps — grounded on the upstream collector's attributesprocessor
// shape but rebuilt against this engine's node/effect-handler contract.
package attributes

import "fmt"

// Scope names the attribute map(s) an operation applies to.
type Scope string

const (
	ScopeResource Scope = "resource"
	ScopeScope    Scope = "scope"
	ScopeSignal   Scope = "signal" // per-item: log record / span / data point
)

// Config is the attribute processor's configuration.
type Config struct {
	ApplyTo []Scope `yaml:"apply_to" mapstructure:"apply_to"`

	Delete []string          `yaml:"delete,omitempty" mapstructure:"delete"`
	Upsert map[string]string `yaml:"upsert,omitempty" mapstructure:"upsert"`
	Rename map[string]string `yaml:"rename,omitempty" mapstructure:"rename"` // old -> new
	Hash   []string          `yaml:"hash,omitempty" mapstructure:"hash"`
}

// Validate rejects a config with an unrecognized scope name or no
// operations at all.
func (c *Config) Validate() error {
	if len(c.ApplyTo) == 0 {
		return fmt.Errorf("attributes: apply_to must name at least one scope")
	}
	for _, s := range c.ApplyTo {
		switch s {
		case ScopeResource, ScopeScope, ScopeSignal:
		default:
			return fmt.Errorf("attributes: unknown scope %q", s)
		}
	}
	if len(c.Delete) == 0 && len(c.Upsert) == 0 && len(c.Rename) == 0 && len(c.Hash) == 0 {
		return fmt.Errorf("attributes: at least one of delete/upsert/rename/hash must be set")
	}
	return nil
}

func (c *Config) applies(s Scope) bool {
	for _, a := range c.ApplyTo {
		if a == s {
			return true
		}
	}
	return false
}
