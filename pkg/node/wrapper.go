// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"context"

	"github.com/open-telemetry/otap-dataflow/pkg/chans"
	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/extension"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
	"github.com/open-telemetry/otap-dataflow/pkg/telemetry"
)

// Implementation is the contract every concrete node (receiver, processor,
// exporter) implements, regardless of whether it runs on the thread-per-core
// scheduler or the work-stealing one (§4.1, §9 "Thread-safety duality").
type Implementation interface {
	// Start drives the node to completion: consume mc until Shutdown or a
	// fatal error, using eh to send data downstream, notify ACK/NACK
	// subscribers, and reach cross-cutting capabilities.
	Start(ctx context.Context, mc *control.MessageChannel, eh *EffectHandler) (TerminalState, error)
}

// Wrapper presents one interface over heterogeneous node implementations
// (§4.1). It owns the node's control channel, user config, identity, and
// optional telemetry handle; the inner Implementation never sees these
// directly except through the EffectHandler passed to Start.
type Wrapper struct {
	id         pdata.NodeID
	kind       string
	isShared   bool
	userConfig any
	inner      Implementation

	controlIn  *chans.Channel[control.Message]
	dataIn     *chans.Channel[pdata.Pdata]
	outPorts   map[string]*chans.Channel[pdata.Pdata]
	router     ControlRouter
	extensions *extension.Registry
	metrics    *telemetry.MetricSet
	timers     *TimerWheel

	state State
}

// Config bundles everything the pipeline orchestrator wires up when it
// builds a node from its URN factory (§6).
type Config struct {
	ID         pdata.NodeID
	Kind       string
	IsShared   bool
	UserConfig any
	Inner      Implementation
	ControlIn  *chans.Channel[control.Message]
	DataIn     *chans.Channel[pdata.Pdata]
	OutPorts   map[string]*chans.Channel[pdata.Pdata]
	Router     ControlRouter
	Extensions *extension.Registry
	Metrics    *telemetry.MetricSet
	Timers     *TimerWheel
}

// NewWrapper builds a node wrapper from a fully-wired Config. The
// orchestrator calls this once per configured node, after allocating its
// control/data channels per the pipeline's settings (§6
// default_ctrl_channel_size / default_pdata_channel_size).
func NewWrapper(cfg Config) *Wrapper {
	return &Wrapper{
		id: cfg.ID, kind: cfg.Kind, isShared: cfg.IsShared, userConfig: cfg.UserConfig,
		inner: cfg.Inner, controlIn: cfg.ControlIn, dataIn: cfg.DataIn,
		outPorts: cfg.OutPorts, router: cfg.Router, extensions: cfg.Extensions,
		metrics: cfg.Metrics, timers: cfg.Timers, state: StateUninitialized,
	}
}

// NodeID returns the node's identity within its pipeline.
func (w *Wrapper) NodeID() pdata.NodeID { return w.id }

// Kind returns the node's URN-derived kind, for diagnostics.
func (w *Wrapper) Kind() string { return w.kind }

// IsShared reports whether this node runs on the work-stealing
// multi-threaded scheduler (true) or the thread-per-core cooperative one
// (false), §5.
func (w *Wrapper) IsShared() bool { return w.isShared }

// UserConfig returns the node's already-parsed configuration value.
func (w *Wrapper) UserConfig() any { return w.userConfig }

// State returns the node's current lifecycle state.
func (w *Wrapper) State() State { return w.state }

// SendControl performs the non-blocking best-effort enqueue into this
// node's control inbox described in §4.1. It never blocks the caller.
func (w *Wrapper) SendControl(msg control.Message) error {
	_, err := w.controlIn.TrySend(msg)
	return mapChansErr(err)
}

// Start consumes the wrapper: it constructs the effect handler and drives
// the inner node's Start until it returns a TerminalState or ctx is
// canceled (§4.1).
func (w *Wrapper) Start(ctx context.Context, pipelineCtrlTx *chans.Channel[control.Message], reporter *telemetry.Reporter) (TerminalState, error) {
	if err := w.state.Advance(StateInitialized); err != nil {
		return Fatal(err.Error()), err
	}

	eh := newEffectHandler(w.id, w.outPorts, w.controlIn, pipelineCtrlTx, w.router, w.extensions, w.metrics, w.timers)
	mc := control.NewMessageChannel(w.controlIn, w.dataIn)

	if err := w.state.Advance(StateRunning); err != nil {
		return Fatal(err.Error()), err
	}

	term, err := w.inner.Start(ctx, mc, eh)
	if err != nil {
		_ = w.state.Advance(StateTerminated)
		return Fatal(err.Error()), err
	}

	switch term.Kind {
	case TerminalShutdown:
		_ = w.state.Advance(StateDraining)
		w.drain(ctx, eh)
	}
	_ = w.state.Advance(StateTerminated)

	if reporter != nil && w.metrics != nil {
		reporter.Report(string(w.id), w.metrics.Snapshot())
	}
	return term, nil
}

// drain empties the control inbox after the node's inner Start loop
// returned a Shutdown terminal state. DelayedData payloads found there are
// sent downstream; every other control message, Ack and Nack included, is
// discarded and not relayed.
func (w *Wrapper) drain(ctx context.Context, eh *EffectHandler) {
	for {
		msg, ok := w.controlIn.TryRecv()
		if !ok {
			return
		}
		if msg.Kind == control.KindDelayedData && msg.DelayedData != nil {
			_ = eh.SendMessage(ctx, *msg.DelayedData)
		}
	}
}
