// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package otaprpc implements the OTAP-Arrow gRPC bidirectional streaming
// receiver of §6: a single ArrowStream method that accepts a stream of
// BatchArrowRecords, decodes each batch to the column families described
// by the adaptive schema the producer negotiated, forwards the decoded
// signal into the pipeline, and replies with a per-batch BatchStatus once
// the batch's outcome is known.
package otaprpc

import (
	"fmt"
	"time"

	"github.com/open-telemetry/otap-dataflow/collector/compression/zstd"
)

// Config is the OTAP-Arrow receiver's configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`

	// WaitForAck, when true, holds the per-batch BatchStatus response
	// until the engine ACKs or NACKs the batch, reporting the outcome as
	// StatusCode_OK or StatusCode_ERROR. When false (the default), the
	// receiver reports StatusCode_OK as soon as the batch is queued,
	// without waiting on downstream backpressure.
	WaitForAck bool `yaml:"wait_for_ack" mapstructure:"wait_for_ack"`

	// AckTimeout bounds how long a WaitForAck batch waits for an
	// outcome before the stream reports it as an error.
	AckTimeout time.Duration `yaml:"ack_timeout" mapstructure:"ack_timeout"`

	// Compression is the zstd decoder configuration (memory and window
	// limits) that the receiver applies to its configured level through
	// zstd.SetDecoderConfig; Validate substitutes
	// zstd.DefaultDecoderConfig when it is empty. The zstdarrowN
	// compressors themselves are registered by package zstd at init, so
	// zstd decoding is always available.
	Compression zstd.DecoderConfig `yaml:"compression" mapstructure:"compression"`
}

// Validate checks the config is well-formed, defaulting AckTimeout and the
// zstd decoder configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("otaprpc: listen_addr must not be empty")
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.Compression == (zstd.DecoderConfig{}) {
		c.Compression = zstd.DefaultDecoderConfig()
	}
	return c.Compression.Validate()
}
