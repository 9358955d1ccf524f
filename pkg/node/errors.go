// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"errors"
	"fmt"

	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// ErrChannelFull and ErrClosed mirror package chans' sentinels at the node
// boundary, so callers matching on them don't need to import chans too.
var (
	ErrChannelFull = errors.New("node: channel full")
	ErrClosed      = errors.New("node: channel closed")
)

// ChannelSendError is returned by EffectHandler.SendMessage when the
// downstream channel can't accept the payload. It carries the refused
// payload so the caller can convert it into a NACK without loss (§4.1 "the
// returned `sent` contains the refused payload", §8 "No silent drop").
type ChannelSendError struct {
	Port    string
	Refused pdata.Pdata
	Cause   error
}

func (e *ChannelSendError) Error() string {
	return fmt.Sprintf("node: send to port %q failed: %v", e.Port, e.Cause)
}

func (e *ChannelSendError) Unwrap() error { return e.Cause }
