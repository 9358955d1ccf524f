// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"

	"github.com/open-telemetry/otap-dataflow/pkg/chans"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// Envelope is the item type of a MessageChannel's single merged stream: the
// cartesian sum of control and pdata inboxes described in §4.3.
type Envelope struct {
	IsControl bool
	Control   Message
	Data      pdata.Pdata
}

// MessageChannel merges a node's control inbox and pdata inbox, always
// preferring control when both have items, so shutdown and config cannot be
// starved by a hot data path (§4.3).
type MessageChannel struct {
	control *chans.Channel[Message]
	data    *chans.Channel[pdata.Pdata]
}

// NewMessageChannel wires a MessageChannel over an already-constructed
// control and pdata channel pair (built by the pipeline orchestrator with
// the node's configured capacities, §6 default_ctrl_channel_size /
// default_pdata_channel_size).
func NewMessageChannel(control *chans.Channel[Message], data *chans.Channel[pdata.Pdata]) *MessageChannel {
	return &MessageChannel{control: control, data: data}
}

// Control returns the underlying control channel, for producers that send
// directly (e.g. the pipeline orchestrator's broadcast of Shutdown).
func (m *MessageChannel) Control() *chans.Channel[Message] { return m.control }

// Data returns the underlying pdata channel, for effect handlers sending
// downstream.
func (m *MessageChannel) Data() *chans.Channel[pdata.Pdata] { return m.data }

// Recv returns the next envelope, preferring a pending control message over
// a pending pdata message, and otherwise blocking on whichever arrives
// first (§4.3 "Ordering": control and pdata are interleavable but control
// is preferred).
func (m *MessageChannel) Recv(ctx context.Context) (Envelope, error) {
	if msg, ok := m.control.TryRecv(); ok {
		return Envelope{IsControl: true, Control: msg}, nil
	}
	if pd, ok := m.data.TryRecv(); ok {
		return Envelope{IsControl: false, Data: pd}, nil
	}

	type result struct {
		env Envelope
		err error
	}
	winner := make(chan result, 2)
	done := make(chan struct{})
	defer close(done)

	go func() {
		msg, ok, err := m.control.Recv(ctx)
		if !ok {
			return
		}
		select {
		case winner <- result{env: Envelope{IsControl: true, Control: msg}, err: err}:
		case <-done:
		}
	}()
	go func() {
		pd, ok, err := m.data.Recv(ctx)
		if !ok {
			return
		}
		select {
		case winner <- result{env: Envelope{IsControl: false, Data: pd}, err: err}:
		case <-done:
		}
	}()

	select {
	case r := <-winner:
		// A data item may have raced in concurrently with a control item;
		// give control one last chance to win the tie before honoring data.
		if !r.env.IsControl {
			if msg, ok := m.control.TryRecv(); ok {
				return Envelope{IsControl: true, Control: msg}, nil
			}
		}
		return r.env, r.err
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}
