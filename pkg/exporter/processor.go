// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
	"github.com/open-telemetry/otap-dataflow/pkg/telemetry"
)

// Node implements node.Implementation over a Sink: it terminates the data
// path, ACKing the message it just wrote or NACKing it with
// InterestReturnData honored so a subscribed retry processor can have the
// payload back (§4.4). A Heartbeat mixin (SPEC_FULL §C.1) emits a periodic
// self-health metric independent of the data path, driven by TimerTick.
type Node struct {
	mu        sync.Mutex
	sink      Sink
	heartbeat *telemetry.Heartbeat
}

// NewNode builds an exporter node over sink. heartbeatInterval of zero
// disables the heartbeat mixin.
func NewNode(sink Sink, heartbeatInterval time.Duration) *Node {
	n := &Node{sink: sink}
	if heartbeatInterval > 0 {
		n.heartbeat = telemetry.NewHeartbeat(heartbeatInterval, func(time.Time) {
			n.mu.Lock()
			defer n.mu.Unlock()
		})
	}
	return n
}

func (n *Node) Start(ctx context.Context, mc *control.MessageChannel, eh *node.EffectHandler) (node.TerminalState, error) {
	for {
		env, err := mc.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				_ = n.sink.Close()
				return node.Normal(), nil
			}
			return node.Fatal(err.Error()), err
		}
		if !env.IsControl {
			n.handlePData(env.Data, eh)
			continue
		}
		switch env.Control.Kind {
		case control.KindTimerTick:
			if n.heartbeat != nil {
				n.heartbeat.OnTimerTick(env.Control.TimerNow)
				if m := eh.Metrics(); m != nil {
					m.Add("heartbeat", 1)
				}
			}
		case control.KindCollectTelemetry:
			if env.Control.TelemetryReporter != nil && eh.Metrics() != nil {
				env.Control.TelemetryReporter.Report(string(eh.SelfID()), eh.Metrics().Snapshot())
			}
		case control.KindShutdown:
			_ = n.sink.Close()
			return node.Shutdown(string(env.Control.ShutdownReason)), nil
		}
	}
}

func (n *Node) handlePData(msg pdata.Pdata, eh *node.EffectHandler) {
	sig := msg.Payload.SignalOf()
	if err := n.sink.Write(msg); err != nil {
		if m := eh.Metrics(); m != nil {
			m.Add("export_failures."+sig.String(), 1)
		}
		_ = eh.NotifyNack(&msg, "export failed: "+err.Error())
		return
	}
	if m := eh.Metrics(); m != nil {
		m.Add("exported."+sig.String(), 1)
	}
	_ = eh.NotifyAck(&msg)
}
