// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package otlpreceiver implements the OTLP gRPC unary Export endpoints of
// §6: logs, metrics, and traces services. grpc-go decodes each request into
// an ExportRequest and its content is forwarded as a decoded
// (PayloadKindOtlpDecoded) payload; the raw request bytes are not kept as
// pdata.OtlpProtoBytes. The services have an optional
// wait_for_result mode that subscribes to ACK/NACK and translates the
// outcome into the gRPC response status.
package otlpreceiver

import (
	"fmt"
	"time"
)

// Config is the OTLP receiver's configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`

	// WaitForResult, when true, blocks the Export RPC until the engine
	// ACKs or NACKs the batch, translating the outcome into the gRPC
	// status (§6 "Optional wait_for_result").
	WaitForResult bool `yaml:"wait_for_result" mapstructure:"wait_for_result"`

	// RequestTimeout bounds how long a wait_for_result Export call waits
	// for an outcome before returning DEADLINE_EXCEEDED.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// Validate checks the config is well-formed, defaulting RequestTimeout.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("otlpreceiver: listen_addr must not be empty")
	}
	if c.WaitForResult && c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	return nil
}
