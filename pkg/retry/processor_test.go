// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open-telemetry/otap-dataflow/pkg/chans"
	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
	"github.com/open-telemetry/otap-dataflow/pkg/retry"
	"github.com/open-telemetry/otap-dataflow/pkg/telemetry"
)

// staticRouter delivers control messages straight into the named node's
// control inbox, standing in for the pipeline orchestrator's node table.
type staticRouter struct {
	routes map[pdata.NodeID]*chans.Channel[control.Message]
}

func (r *staticRouter) Route(id pdata.NodeID, msg control.Message) error {
	ch, ok := r.routes[id]
	if !ok {
		return nil
	}
	_, err := ch.TrySend(msg)
	return err
}

func fastConfig(t *testing.T, maxElapsed time.Duration) retry.Config {
	t.Helper()
	cfg := retry.Config{
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		MaxElapsedTime:  maxElapsed,
		Multiplier:      1.5,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func logsPdata() pdata.Pdata {
	var ctx0 pdata.Context
	ctx0.Push(pdata.InterestFrame{
		NodeID:    "receiver",
		Interests: pdata.InterestAck | pdata.InterestNack | pdata.InterestReturnData,
	})
	payload := pdata.ProtoPayload(pdata.OtlpProtoBytes{Signal: pdata.SignalLogs, Bytes: []byte("hello")})
	return pdata.Pdata{Context: ctx0, Payload: payload}
}

// harness wires one real retry processor node (via node.Wrapper) with raw
// channels standing in for its neighbors: a data inbox the test feeds
// directly, an out port the test reads as the downstream consumer, and a
// receiver control inbox the test inspects for relayed Ack/Nack.
type harness struct {
	wrapper      *node.Wrapper
	dataIn       *chans.Channel[pdata.Pdata]
	outCh        *chans.Channel[pdata.Pdata]
	retryCtrlIn  *chans.Channel[control.Message]
	receiverCtrl *chans.Channel[control.Message]
	metrics      *telemetry.MetricSet
	pipelineCtrl *chans.Channel[control.Message]
}

func newHarness(t *testing.T, cfg retry.Config) *harness {
	t.Helper()
	retryCtrlIn := chans.NewLocal[control.Message](16)
	dataIn := chans.NewLocal[pdata.Pdata](16)
	outCh := chans.NewLocal[pdata.Pdata](16)
	receiverCtrl := chans.NewLocal[control.Message](16)

	router := &staticRouter{routes: map[pdata.NodeID]*chans.Channel[control.Message]{
		"retry":    retryCtrlIn,
		"receiver": receiverCtrl,
	}}

	metrics := telemetry.NewMetricSet("retry", nil)

	wrapper := node.NewWrapper(node.Config{
		ID:         "retry",
		Kind:       "retry_processor",
		UserConfig: cfg,
		Inner:      retry.NewProcessor(cfg),
		ControlIn:  retryCtrlIn,
		DataIn:     dataIn,
		OutPorts:   map[string]*chans.Channel[pdata.Pdata]{node.DefaultPort: outCh},
		Router:     router,
		Metrics:    metrics,
		Timers:     node.NewTimerWheel(),
	})

	return &harness{
		wrapper: wrapper, dataIn: dataIn, outCh: outCh, retryCtrlIn: retryCtrlIn,
		receiverCtrl: receiverCtrl, metrics: metrics,
		pipelineCtrl: chans.NewLocal[control.Message](4),
	}
}

func (h *harness) run(t *testing.T) <-chan node.TerminalState {
	t.Helper()
	done := make(chan node.TerminalState, 1)
	go func() {
		term, err := h.wrapper.Start(context.Background(), h.pipelineCtrl, nil)
		require.NoError(t, err)
		done <- term
	}()
	return done
}

func (h *harness) shutdown(t *testing.T) {
	t.Helper()
	_, err := h.retryCtrlIn.TrySend(control.NewShutdown(time.Now(), control.ShutdownRequested))
	require.NoError(t, err)
}

// popFrame reads one payload off out, pops the retry processor's own
// interest frame (as the downstream consumer would), and returns both the
// frame (with its calldata) and what remains of the context beneath it.
func popFrame(t *testing.T, out pdata.Pdata) (pdata.InterestFrame, pdata.Pdata) {
	t.Helper()
	frame, ok := out.Context.Pop()
	require.True(t, ok)
	require.Equal(t, pdata.NodeID("retry"), frame.NodeID)
	return frame, pdata.Pdata{Context: out.Context, Payload: out.Payload}
}

func mustRecvOut(t *testing.T, out *chans.Channel[pdata.Pdata], timeout time.Duration) pdata.Pdata {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	v, ok, err := out.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	return v
}

func mustRecvControl(t *testing.T, ch *chans.Channel[control.Message], timeout time.Duration) control.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	v, ok, err := ch.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	return v
}

// TestRetryThenSucceed exercises scenario S1: a payload is NACKed twice and
// then ACKed on the third attempt. The receiver subscribed beneath the
// retry processor must see exactly one relayed Ack, and retry_attempts /
// consumed.success must each be recorded once, by signal.
func TestRetryThenSucceed(t *testing.T) {
	cfg := fastConfig(t, time.Second)
	h := newHarness(t, cfg)
	done := h.run(t)

	_, err := h.dataIn.TrySend(logsPdata())
	require.NoError(t, err)

	for attempt := 0; attempt < 2; attempt++ {
		out := mustRecvOut(t, h.outCh, time.Second)
		frame, remaining := popFrame(t, out)
		_, err := h.retryCtrlIn.TrySend(control.NewNack(control.NackMsg{
			CallData: frame.CallData,
			Reason:   "boom",
			Refused:  &remaining,
		}))
		require.NoError(t, err)
	}

	out := mustRecvOut(t, h.outCh, time.Second)
	frame, remaining := popFrame(t, out)
	_, err = h.retryCtrlIn.TrySend(control.NewAck(control.AckMsg{
		CallData:  frame.CallData,
		Remaining: remaining.Context,
	}))
	require.NoError(t, err)

	ack := mustRecvControl(t, h.receiverCtrl, time.Second)
	require.Equal(t, control.KindAck, ack.Kind)

	h.shutdown(t)
	term := <-done
	require.Equal(t, node.TerminalShutdown, term.Kind)

	snap := h.metrics.Snapshot()
	require.Equal(t, float64(2), snap["retry_attempts.logs"])
	require.Equal(t, float64(1), snap["consumed.success.logs"])
}

// TestRetryGivesUpAtDeadline exercises scenario S2: the per-request deadline
// has already passed by the time the first Nack comes back, so the retry
// processor forwards a final Nack upstream instead of scheduling another
// attempt.
func TestRetryGivesUpAtDeadline(t *testing.T) {
	cfg := fastConfig(t, time.Nanosecond) // deadline effectively already past on arrival
	h := newHarness(t, cfg)
	done := h.run(t)

	_, err := h.dataIn.TrySend(logsPdata())
	require.NoError(t, err)

	out := mustRecvOut(t, h.outCh, time.Second)
	frame, remaining := popFrame(t, out)
	_, err = h.retryCtrlIn.TrySend(control.NewNack(control.NackMsg{
		CallData: frame.CallData,
		Reason:   "boom",
		Refused:  &remaining,
	}))
	require.NoError(t, err)

	nack := mustRecvControl(t, h.receiverCtrl, time.Second)
	require.Equal(t, control.KindNack, nack.Kind)
	require.Equal(t, "final retry: boom", nack.Nack.Reason)

	h.shutdown(t)
	term := <-done
	require.Equal(t, node.TerminalShutdown, term.Kind)

	snap := h.metrics.Snapshot()
	require.Equal(t, float64(1), snap["consumed.failure.logs"])
	require.Equal(t, float64(0), snap["retry_attempts.logs"])
}
