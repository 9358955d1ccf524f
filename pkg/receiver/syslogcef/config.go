// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package syslogcef implements the reference syslog/CEF ingress receiver
// of §6: UDP and TCP listeners that parse RFC 3164 syslog envelopes and,
// where the message content is itself a CEF record, decode that too,
// emitting one OTLP-decoded log record per line.
package syslogcef

import "fmt"

// Protocol selects which transport a listener accepts connections on.
type Protocol string

const (
	ProtocolUDP Protocol = "udp"
	ProtocolTCP Protocol = "tcp"
)

// Config is the syslogcef receiver's configuration.
type Config struct {
	ListenAddr string   `yaml:"listen_addr" mapstructure:"listen_addr"`
	Protocol   Protocol `yaml:"protocol" mapstructure:"protocol"`

	// MaxLineLength bounds a single UDP datagram or TCP line. A longer UDP
	// datagram is truncated to this length and the truncated text is
	// parsed; a longer TCP line ends reading on that connection. Oversized
	// input is not counted.
	MaxLineLength int `yaml:"max_line_length" mapstructure:"max_line_length"`
}

// Validate checks the config is well-formed.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("syslogcef: listen_addr must not be empty")
	}
	if c.Protocol != ProtocolUDP && c.Protocol != ProtocolTCP {
		return fmt.Errorf("syslogcef: protocol must be %q or %q, got %q", ProtocolUDP, ProtocolTCP, c.Protocol)
	}
	if c.MaxLineLength <= 0 {
		c.MaxLineLength = 64 * 1024
	}
	return nil
}
