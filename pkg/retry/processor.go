// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// Processor implements node.Implementation for the retry processor (§4.4):
// it subscribes to ACK/NACK on every message it forwards, and on NACK either
// schedules a delayed re-delivery with exponential backoff or gives up and
// forwards the NACK upstream, depending on whether the per-request deadline
// has passed.
type Processor struct {
	mu  sync.Mutex
	cfg Config
}

// NewProcessor builds a retry processor with the given starting
// configuration, already validated by the caller (the pipeline orchestrator
// calls Validate when it first parses the node's config).
func NewProcessor(cfg Config) *Processor {
	return &Processor{cfg: cfg}
}

func (p *Processor) currentConfig() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Start runs the control/data merge loop until a Shutdown control message
// or a context cancellation ends it (§4.1 node lifecycle).
func (p *Processor) Start(ctx context.Context, mc *control.MessageChannel, eh *node.EffectHandler) (node.TerminalState, error) {
	for {
		env, err := mc.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return node.Normal(), nil
			}
			return node.Fatal(err.Error()), err
		}

		if !env.IsControl {
			p.handlePData(ctx, env.Data, eh)
			continue
		}

		switch env.Control.Kind {
		case control.KindConfig:
			p.handleConfig(env.Control.Config)
		case control.KindAck:
			p.handleAck(env.Control.Ack, eh)
		case control.KindNack:
			p.handleNack(env.Control.Nack, eh)
		case control.KindDelayedData:
			if env.Control.DelayedData != nil {
				p.handleDelayedData(ctx, *env.Control.DelayedData, eh)
			}
		case control.KindCollectTelemetry:
			if env.Control.TelemetryReporter != nil && eh.Metrics() != nil {
				env.Control.TelemetryReporter.Report(string(eh.SelfID()), eh.Metrics().Snapshot())
			}
		case control.KindShutdown:
			return node.Shutdown(string(env.Control.ShutdownReason)), nil
		case control.KindTimerTick:
			// unused: retries are driven by DelayData, not polling.
		}
	}
}

// handleConfig applies a hot-reloaded RetryConfig, ignoring it wholesale if
// malformed (§4.4 "Config: hot-reload RetryConfig (ignore if malformed)").
func (p *Processor) handleConfig(raw any) {
	cfg, ok := raw.(Config)
	if !ok {
		return
	}
	if err := cfg.Validate(); err != nil {
		return
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

// handlePData is the "on first arrival" path of §4.4 step 1: compute a
// deadline, subscribe for ACK/NACK/RETURN_DATA, and forward downstream.
func (p *Processor) handlePData(ctx context.Context, msg pdata.Pdata, eh *node.EffectHandler) {
	sig := msg.Payload.SignalOf()
	cfg := p.currentConfig()
	state := RetryState{Retries: 0, Deadline: time.Now().Add(cfg.MaxElapsedTime), Signal: sig}

	eh.SubscribeTo(pdata.InterestAck|pdata.InterestNack|pdata.InterestReturnData, state.Encode(), &msg)
	p.trySend(ctx, msg, sig, "channel full", eh)
}

// handleDelayedData is the re-delivery path driven by DelayData: the
// payload already carries this processor's own interest frame, pushed by
// handleNack before scheduling the timer, so it is sent as-is rather than
// subscribed onto again.
func (p *Processor) handleDelayedData(ctx context.Context, msg pdata.Pdata, eh *node.EffectHandler) {
	p.trySend(ctx, msg, msg.Payload.SignalOf(), "cannot delay", eh)
}

// trySend forwards msg downstream. A rejection is folded back into this
// processor's own NACK handling — msg's top interest frame is this
// processor's, so NotifyNack's pop-and-route delivers the resulting NackMsg
// straight back to this node's own control inbox, letting handleNack decide
// whether to retry or give up using the same logic as a downstream NACK
// (§4.4 "backpressure-aware re-injection").
func (p *Processor) trySend(ctx context.Context, msg pdata.Pdata, sig pdata.SignalType, failReason string, eh *node.EffectHandler) {
	err := eh.SendMessage(ctx, msg)
	if err == nil {
		metricsOf(eh).Add(withSignal(metricProducedSuccess, sig), 1)
		return
	}
	metricsOf(eh).Add(withSignal(metricProducedRefused, sig), 1)

	var sendErr *node.ChannelSendError
	if !errors.As(err, &sendErr) {
		return
	}
	refused := sendErr.Refused
	_ = eh.NotifyNack(&refused, failReason)
}

// handleAck implements §4.4 "On Ack: pop the state (a no-op for retry
// accounting; other processors may account)". Popping already happened in
// EffectHandler.NotifyAck at the node that succeeded; what arrives here is
// the frame addressed to this processor. Relaying ack.Remaining onward is
// the structural part of the protocol — without it a receiver subscribed
// beneath this processor (e.g. for wait_for_result) would never learn the
// request eventually succeeded — and is kept separate from the "no
// additional retry accounting" the spec calls out, satisfied simply by not
// touching Retries/Deadline here.
func (p *Processor) handleAck(ack control.AckMsg, eh *node.EffectHandler) {
	state, ok := DecodeRetryState(ack.CallData)
	sig := pdata.SignalUnknown
	if ok {
		sig = state.Signal
	}
	metricsOf(eh).Add(withSignal(metricConsumedSuccess, sig), 1)

	relay := pdata.Pdata{Context: ack.Remaining}
	_ = eh.NotifyAck(&relay)
}

// handleNack implements §4.4 step 2: malformed calldata or an empty refused
// payload is an internal error forwarded immediately; otherwise compute the
// next backoff delay, and either give up (deadline exceeded) or schedule
// another attempt.
func (p *Processor) handleNack(nack control.NackMsg, eh *node.EffectHandler) {
	state, ok := DecodeRetryState(nack.CallData)
	if !ok || nack.Refused == nil || nack.Refused.Payload.IsEmpty() {
		p.giveUp(nack, pdata.SignalUnknown, "retry internal error: "+nack.Reason, eh)
		return
	}

	cfg := p.currentConfig()
	now := time.Now()
	delay := nextDelay(cfg, state.Retries)
	nextAttempt := now.Add(delay)
	if !state.Deadline.After(nextAttempt) {
		p.giveUp(nack, state.Signal, "final retry: "+nack.Reason, eh)
		return
	}
	when := nextAttempt

	next := state
	next.Retries++
	payload := *nack.Refused
	payload.Context.Push(pdata.InterestFrame{
		NodeID:    eh.SelfID(),
		Interests: pdata.InterestAck | pdata.InterestNack | pdata.InterestReturnData,
		CallData:  next.Encode(),
	})

	metricsOf(eh).Add(withSignal(metricConsumedRefused, state.Signal), 1)
	if err := eh.DelayData(when, payload); err != nil {
		// The timer wheel or self-inbox rejected the schedule outright: there
		// is nothing left to retry with, so surface it as the final failure.
		// Use the original nack (not payload, which already carries our own
		// now-abandoned retry frame on top) so the NACK reaches whatever
		// subscriber remains beneath this processor, not this processor itself.
		p.giveUp(nack, state.Signal, "cannot delay: "+err.Error(), eh)
		return
	}
	metricsOf(eh).Add(withSignal(metricRetryAttempts, state.Signal), 1)
}

// giveUp forwards a NACK upstream (to whatever interest frame remains below
// this processor's own) with the prefixed reason, and records the consumed
// failure. When the NACK carries no refused payload there is no context to
// route it by, so only the failure is recorded.
func (p *Processor) giveUp(nack control.NackMsg, sig pdata.SignalType, reason string, eh *node.EffectHandler) {
	metricsOf(eh).Add(withSignal(metricConsumedFailure, sig), 1)
	if nack.Refused == nil {
		return
	}
	_ = eh.NotifyNack(nack.Refused, reason)
}

func metricsOf(eh *node.EffectHandler) interface{ Add(string, float64) } {
	if m := eh.Metrics(); m != nil {
		return m
	}
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) Add(string, float64) {}
