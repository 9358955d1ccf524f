// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"context"
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/chans"
	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/extension"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
	"github.com/open-telemetry/otap-dataflow/pkg/telemetry"
)

// ControlRouter delivers a control message to the control inbox of the
// named node, looked up by the pipeline's node table. It is how
// NotifyAck/NotifyNack reach a subscriber that isn't this node's direct
// neighbor (§4.3 "ACK/NACK routing").
type ControlRouter interface {
	Route(id pdata.NodeID, msg control.Message) error
}

// EffectHandler is the set of calls a node implementation may make into the
// runtime while processing a message (§4.1 "Effect handler contract").
type EffectHandler struct {
	selfID      pdata.NodeID
	outPorts    map[string]*chans.Channel[pdata.Pdata]
	controlIn   *chans.Channel[control.Message]
	pipelineCtl *chans.Channel[control.Message]
	router      ControlRouter
	extensions  *extension.Registry
	metrics     *telemetry.MetricSet
	timers      *TimerWheel
}

// DefaultPort is the out-port name used by single-output nodes.
const DefaultPort = ""

func newEffectHandler(
	selfID pdata.NodeID,
	outPorts map[string]*chans.Channel[pdata.Pdata],
	controlIn *chans.Channel[control.Message],
	pipelineCtl *chans.Channel[control.Message],
	router ControlRouter,
	extensions *extension.Registry,
	metrics *telemetry.MetricSet,
	timers *TimerWheel,
) *EffectHandler {
	return &EffectHandler{
		selfID: selfID, outPorts: outPorts, controlIn: controlIn,
		pipelineCtl: pipelineCtl, router: router, extensions: extensions,
		metrics: metrics, timers: timers,
	}
}

// SendMessage pushes payload to the default out port. Returns
// *ChannelSendError (wrapping the refused payload) if downstream is full or
// closed, never losing the payload (§4.1, §8 "No silent drop").
func (h *EffectHandler) SendMessage(ctx context.Context, payload pdata.Pdata) error {
	return h.SendMessageTo(ctx, DefaultPort, payload)
}

// SendMessageTo pushes payload to a named out port, for nodes with more
// than one downstream connection (fan-out processors, branch stages).
func (h *EffectHandler) SendMessageTo(ctx context.Context, port string, payload pdata.Pdata) error {
	ch, ok := h.outPorts[port]
	if !ok {
		return &ChannelSendError{Port: port, Refused: payload, Cause: ErrClosed}
	}
	refused, err := ch.TrySend(payload)
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return &ChannelSendError{Port: port, Refused: refused, Cause: ctx.Err()}
	default:
	}
	return &ChannelSendError{Port: port, Refused: refused, Cause: mapChansErr(err)}
}

func mapChansErr(err error) error {
	switch err {
	case chans.ErrFull:
		return ErrChannelFull
	case chans.ErrClosed:
		return ErrClosed
	default:
		return err
	}
}

// SubscribeTo pushes a new interest frame onto payload's context stack,
// tagging this node as the subscriber so the ACK/NACK router can find it
// later (§4.3 "Producer effect-handler extension").
func (h *EffectHandler) SubscribeTo(interests pdata.Interest, calldata pdata.CallData, payload *pdata.Pdata) {
	payload.Context.Push(pdata.InterestFrame{NodeID: h.selfID, Interests: interests, CallData: calldata})
}

// NotifyAck pops the top interest frame off msg's context and, if present
// and it requested InterestAck, routes an Ack control message carrying that
// frame's CallData to the subscribing node. Whatever remains of msg's
// context after the pop travels along on the Ack so that a subscriber which
// is itself a relay (the retry processor) can hand it straight back into
// NotifyAck to propagate success one hop further upstream (§4.3 "ACK/NACK
// routing").
func (h *EffectHandler) NotifyAck(msg *pdata.Pdata) error {
	frame, ok := msg.Context.Pop()
	if !ok || !frame.Interests.Has(pdata.InterestAck) {
		return nil
	}
	ack := control.AckMsg{CallData: frame.CallData, Remaining: msg.Context}
	return h.router.Route(frame.NodeID, control.NewAck(ack))
}

// NotifyNack pops the top interest frame off msg's context and, if present
// and it requested InterestNack, routes a Nack control message to the
// subscribing node. The refused payload is attached only if the frame
// requested InterestReturnData; otherwise it is dropped here. The attached
// payload carries the post-pop remainder of msg's context for the same
// upstream-relay reason as NotifyAck (§4.3).
func (h *EffectHandler) NotifyNack(msg *pdata.Pdata, reason string) error {
	frame, ok := msg.Context.Pop()
	if !ok || !frame.Interests.Has(pdata.InterestNack) {
		return nil
	}
	nack := control.NackMsg{CallData: frame.CallData, Reason: reason}
	if frame.Interests.Has(pdata.InterestReturnData) {
		remaining := pdata.Pdata{Context: msg.Context, Payload: msg.Payload}
		nack.Refused = &remaining
	}
	return h.router.Route(frame.NodeID, control.NewNack(nack))
}

// SelfID returns the identity of the node this effect handler was built
// for, for implementations that need to label their own metrics or logs.
func (h *EffectHandler) SelfID() pdata.NodeID { return h.selfID }

// DelayData schedules payload for re-delivery to this node's own control
// inbox at `when`, as a DelayedData message (§4.3 "Delayed data"). Returns
// the refused payload (wrapped) if the timer wheel cannot accept the
// schedule or the self-inbox later rejects delivery.
func (h *EffectHandler) DelayData(when time.Time, payload pdata.Pdata) error {
	msg := control.NewDelayedData(when, payload)
	h.timers.Schedule(when, msg, func(m control.Message) (control.Message, error) {
		refused, err := h.controlIn.TrySend(m)
		return refused, err
	})
	return nil
}

// PipelineCtrlSender returns the channel for upcalls that may halt the
// pipeline (§4.1 "pipeline_ctrl_sender").
func (h *EffectHandler) PipelineCtrlSender() *chans.Channel[control.Message] {
	return h.pipelineCtl
}

// Extensions returns the node's view of the extension registry (§4.5).
func (h *EffectHandler) Extensions() *extension.Registry {
	return h.extensions
}

// Metrics returns the node's metric set, written synchronously when
// handling CollectTelemetry (§5).
func (h *EffectHandler) Metrics() *telemetry.MetricSet {
	return h.metrics
}
