// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry implements the retry processor of §4.4: it attaches
// per-request retry state to the interest-frame calldata, subscribes to
// ACK/NACK, and re-injects failed payloads with exponential backoff up to a
// configurable deadline.
package retry

import (
	"fmt"
	"time"
)

// Config is the retry processor's hot-reloadable configuration (§4.4).
// Zero-value fields are filled in by Validate with the documented defaults.
type Config struct {
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time" mapstructure:"max_elapsed_time"`
	Multiplier      float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// DefaultConfig returns the documented defaults: 5s / 30s / 300s / 1.5.
func DefaultConfig() Config {
	return Config{
		InitialInterval: 5 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  300 * time.Second,
		Multiplier:      1.5,
	}
}

// Validate fills in zero fields with defaults and rejects a config that
// can never converge (Config reload is ignored wholesale on malformed
// input, per §4.4 "Config: hot-reload RetryConfig (ignore if malformed)").
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.InitialInterval <= 0 {
		c.InitialInterval = def.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = def.MaxInterval
	}
	if c.MaxElapsedTime <= 0 {
		c.MaxElapsedTime = def.MaxElapsedTime
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("retry: multiplier must be >= 1, got %g", c.Multiplier)
	}
	if c.MaxInterval < c.InitialInterval {
		return fmt.Errorf("retry: max_interval (%s) must be >= initial_interval (%s)", c.MaxInterval, c.InitialInterval)
	}
	return nil
}
