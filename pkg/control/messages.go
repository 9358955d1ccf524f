// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package control implements the control message protocol (§3.5) and the
// MessageChannel that merges a node's control and pdata inboxes, always
// preferring control so shutdown and config cannot be starved by data
// (§4.3).
package control

import (
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// Kind discriminates the control message sum type of §3.5.
type Kind uint8

const (
	KindConfig Kind = iota
	KindTimerTick
	KindCollectTelemetry
	KindShutdown
	KindAck
	KindNack
	KindDelayedData
)

// AckMsg acknowledges successful delivery of the message whose top interest
// frame carried CallData (§3.5). Remaining is whatever was left of the
// interest-frame stack after that top frame was popped; a subscriber that
// wants to relay success further upstream (e.g. the retry processor
// notifying the receiver that originally subscribed beneath it) pushes
// nothing and simply hands Remaining to EffectHandler.NotifyAck again.
type AckMsg struct {
	CallData  pdata.CallData
	Remaining pdata.Context
}

// NackMsg reports failed delivery, carrying the reason and — when the
// subscribing frame requested InterestReturnData — the refused payload so
// the subscriber can retry (§3.5, §4.3). Refused.Context is the interest
// stack remaining after the notified frame was popped, for the same
// upstream-relay reason as AckMsg.Remaining.
type NackMsg struct {
	CallData pdata.CallData
	Reason   string
	Refused  *pdata.Pdata // nil if RETURN_DATA was not requested
}

// ShutdownReason documents why a pipeline or node is being shut down.
type ShutdownReason string

const (
	ShutdownRequested    ShutdownReason = "requested"
	ShutdownFatal        ShutdownReason = "fatal"
	ShutdownConfigReload ShutdownReason = "config_reload"
)

// TelemetryReporter is the sink a node writes its MetricSet into
// synchronously when handling CollectTelemetry (§5 "pull-based" collection).
// Defined as an interface here to avoid a dependency from control on the
// concrete telemetry package.
type TelemetryReporter interface {
	Report(nodeID string, metrics map[string]float64)
}

// Message is the control-channel sum type. Exactly one of the typed fields
// is populated, selected by Kind.
type Message struct {
	Kind Kind

	Config any // opaque; each node kind knows its own config shape

	TimerNow time.Time

	TelemetryReporter TelemetryReporter

	ShutdownDeadline time.Time
	ShutdownReason   ShutdownReason

	Ack AckMsg

	Nack NackMsg

	DelayedWhen time.Time
	DelayedData *pdata.Pdata
}

// NewConfig builds a Config control message.
func NewConfig(v any) Message { return Message{Kind: KindConfig, Config: v} }

// NewTimerTick builds a TimerTick control message.
func NewTimerTick(now time.Time) Message { return Message{Kind: KindTimerTick, TimerNow: now} }

// NewCollectTelemetry builds a CollectTelemetry control message.
func NewCollectTelemetry(r TelemetryReporter) Message {
	return Message{Kind: KindCollectTelemetry, TelemetryReporter: r}
}

// NewShutdown builds a Shutdown control message with a deadline and reason.
func NewShutdown(deadline time.Time, reason ShutdownReason) Message {
	return Message{Kind: KindShutdown, ShutdownDeadline: deadline, ShutdownReason: reason}
}

// NewAck builds an Ack control message.
func NewAck(a AckMsg) Message { return Message{Kind: KindAck, Ack: a} }

// NewNack builds a Nack control message.
func NewNack(n NackMsg) Message { return Message{Kind: KindNack, Nack: n} }

// NewDelayedData builds a DelayedData control message scheduled for
// delivery to the sender's own control inbox at `when` (§4.3).
func NewDelayedData(when time.Time, data pdata.Pdata) Message {
	return Message{Kind: KindDelayedData, DelayedWhen: when, DelayedData: &data}
}
