// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/open-telemetry/otap-dataflow/pkg/chans"
	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/extension"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/observer"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
	"github.com/open-telemetry/otap-dataflow/pkg/runtime/affinity"
	"github.com/open-telemetry/otap-dataflow/pkg/telemetry"
)

// Orchestrator owns every pipeline group built from a Config: it wires
// nodes and channels, drives each pipeline replica's lifecycle, and
// reports lifecycle transitions on the observed-event bus (§6 "Observed
// events").
type Orchestrator struct {
	registry *Registry
	bus      *observer.Bus
	logger   *zap.Logger
	extReg   *extension.Registry

	groups map[string]*runningGroup
}

// NewOrchestrator creates an orchestrator. logger and bus may be nil; a nop
// logger and a small default bus are substituted.
func NewOrchestrator(registry *Registry, bus *observer.Bus, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = observer.NewBus(256)
	}
	return &Orchestrator{
		registry: registry,
		bus:      bus,
		logger:   logger,
		extReg:   extension.NewBuilder().Build(),
		groups:   map[string]*runningGroup{},
	}
}

// Bus exposes the observed-event bus for operator tooling (cmd/otapctl).
func (o *Orchestrator) Bus() *observer.Bus { return o.bus }

type runningGroup struct {
	id        string
	pipelines map[string]*runningPipeline
}

// runningPipeline is one built pipeline replica: its node wrappers, their
// control inboxes keyed for routing, and the cancellation/result plumbing
// the orchestrator uses to drive and later stop it.
type runningPipeline struct {
	groupID, id string
	coreID      int
	shared      bool

	pinCore bool

	wrappers   map[pdata.NodeID]*node.Wrapper
	controlIns map[pdata.NodeID]*chans.Channel[control.Message]

	// pipeCtrl is the shared pipeline_ctrl_sender upcall channel (§4.1).
	// TODO: nothing drains it yet; a sibling-node Fatal should arrive here
	// and escalate to a pipeline-wide Shutdown instead of only stopping
	// the node that failed.
	pipeCtrl *chans.Channel[control.Message]

	cancel context.CancelFunc
	done   chan struct{}
	errs   []error
	mu     sync.Mutex
}

// Route implements node.ControlRouter by delivering to the named node's
// control inbox within this pipeline (§4.3 "ACK/NACK routing").
func (p *runningPipeline) Route(id pdata.NodeID, msg control.Message) error {
	ch, ok := p.controlIns[id]
	if !ok {
		return fmt.Errorf("pipeline: route to unknown node %q", id)
	}
	_, err := ch.TrySend(msg)
	return err
}

func (p *runningPipeline) recordErr(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// edge is a named channel shared between the node(s) that produce on it
// (their out_ports) and the node(s) that read from it (their in_ports).
type edge struct {
	ch *chans.Channel[pdata.Pdata]
}

// Build constructs every pipeline group and pipeline named in cfg, without
// starting any of them. Call Run to start a built pipeline.
func (o *Orchestrator) Build(cfg *Config) error {
	for groupID, gcfg := range cfg.PipelineGroups {
		rg := &runningGroup{id: groupID, pipelines: map[string]*runningPipeline{}}
		for pipelineID, pcfg := range gcfg.Pipelines {
			rp, err := o.buildPipeline(groupID, pipelineID, pcfg)
			if err != nil {
				return err
			}
			rg.pipelines[pipelineID] = rp
		}
		o.groups[groupID] = rg
	}
	return nil
}

func (o *Orchestrator) buildPipeline(groupID, pipelineID string, pcfg PipelineConfig) (*runningPipeline, error) {
	settings := pcfg.Settings.withDefaults()

	rp := &runningPipeline{
		groupID: groupID, id: pipelineID, coreID: settings.CoreID, shared: settings.Shared, pinCore: settings.PinCore,
		wrappers:   map[pdata.NodeID]*node.Wrapper{},
		controlIns: map[pdata.NodeID]*chans.Channel[control.Message]{},
	}
	if settings.Shared {
		rp.pipeCtrl = chans.NewShared[control.Message](settings.DefaultCtrlChannelSize)
	} else {
		rp.pipeCtrl = chans.NewLocal[control.Message](settings.DefaultCtrlChannelSize)
	}

	edges := map[string]*edge{}
	edgeFor := func(name string) *edge {
		e, ok := edges[name]
		if !ok {
			var ch *chans.Channel[pdata.Pdata]
			if settings.Shared {
				ch = chans.NewShared[pdata.Pdata](settings.DefaultPdataChannelSize)
			} else {
				ch = chans.NewLocal[pdata.Pdata](settings.DefaultPdataChannelSize)
			}
			e = &edge{ch: ch}
			edges[name] = e
		}
		return e
	}

	all := map[string]NodeConfig{}
	for name, nc := range pcfg.Receivers {
		all[name] = nc
	}
	for name, nc := range pcfg.Processors {
		all[name] = nc
	}
	for name, nc := range pcfg.Exporters {
		all[name] = nc
	}

	for name, nc := range all {
		id := pdata.NodeID(fmt.Sprintf("%s/%s/%s", groupID, pipelineID, name))

		impl, userCfg, err := o.registry.Build(id, nc, o.logger)
		if err != nil {
			return nil, err
		}

		if len(nc.InPorts) > 1 {
			return nil, &ConfigError{NodeID: id, URN: nc.URN, Err: fmt.Errorf("fan-in via more than one in_port is not supported; route producers onto a single shared out_port name instead")}
		}

		var dataIn *chans.Channel[pdata.Pdata]
		if len(nc.InPorts) == 1 {
			dataIn = edgeFor(nc.InPorts[0]).ch
		} else if settings.Shared {
			dataIn = chans.NewShared[pdata.Pdata](settings.DefaultPdataChannelSize)
		} else {
			dataIn = chans.NewLocal[pdata.Pdata](settings.DefaultPdataChannelSize)
		}

		outPorts := map[string]*chans.Channel[pdata.Pdata]{}
		for _, portName := range nc.OutPorts {
			outPorts[portName] = edgeFor(portName).ch
		}
		if len(nc.OutPorts) == 1 {
			outPorts[node.DefaultPort] = edgeFor(nc.OutPorts[0]).ch
		}

		var controlIn *chans.Channel[control.Message]
		if settings.Shared {
			controlIn = chans.NewShared[control.Message](settings.DefaultCtrlChannelSize)
		} else {
			controlIn = chans.NewLocal[control.Message](settings.DefaultCtrlChannelSize)
		}

		var meter metric.Meter
		metrics := telemetry.NewMetricSet(string(id), meter)

		w := node.NewWrapper(node.Config{
			ID: id, Kind: nc.URN, IsShared: settings.Shared, UserConfig: userCfg,
			Inner: impl, ControlIn: controlIn, DataIn: dataIn, OutPorts: outPorts,
			Router: rp, Extensions: o.extReg, Metrics: metrics,
			Timers: node.NewTimerWheel(),
		})
		rp.wrappers[id] = w
		rp.controlIns[id] = controlIn
	}

	return rp, nil
}

// Run starts every built pipeline replica and returns once all of them
// have been launched; it does not block for their completion (Shutdown
// waits for the pipelines to drain).
func (o *Orchestrator) Run(ctx context.Context) error {
	var errs error
	for _, rg := range o.groups {
		for _, rp := range rg.pipelines {
			if err := o.runPipeline(ctx, rp); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return errs
}

func (o *Orchestrator) runPipeline(ctx context.Context, rp *runningPipeline) error {
	pctx, cancel := context.WithCancel(ctx)
	rp.cancel = cancel
	rp.done = make(chan struct{})

	o.emit(observer.StartRequested, rp, nil, "")

	var wg sync.WaitGroup
	for id, w := range rp.wrappers {
		wg.Add(1)
		go func(id pdata.NodeID, w *node.Wrapper) {
			defer wg.Done()
			if rp.pinCore && !rp.shared {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
				if err := affinity.Pin(rp.coreID); err != nil {
					o.logger.Debug("core pinning unavailable, running unpinned", zap.Error(err))
				} else {
					defer affinity.Unpin()
				}
			}
			term, err := w.Start(pctx, rp.pipeCtrl, nil)
			if err != nil {
				rp.recordErr(err)
				o.emit(observer.RuntimeError, rp, &observer.NodeRef{NodeID: string(id), NodeKind: w.Kind()}, term.String())
				return
			}
		}(id, w)
	}

	o.emit(observer.Admitted, rp, nil, "")
	go func() {
		wg.Wait()
		o.emit(observer.Drained, rp, nil, "")
		close(rp.done)
	}()
	o.emit(observer.Ready, rp, nil, "")
	return nil
}

// Shutdown broadcasts a Shutdown control message to every node in every
// built pipeline, then waits up to deadline for them to drain (§5
// "Cancellation & timeouts").
func (o *Orchestrator) Shutdown(deadline time.Duration) error {
	var errs error
	for _, rg := range o.groups {
		for _, rp := range rg.pipelines {
			if rp.done == nil {
				continue
			}
			o.emit(observer.ShutdownRequested, rp, nil, "")
			shutdownAt := time.Now().Add(deadline)
			msg := control.NewShutdown(shutdownAt, control.ShutdownRequested)
			for id, ch := range rp.controlIns {
				if _, err := ch.TrySend(msg); err != nil {
					errs = multierr.Append(errs, fmt.Errorf("pipeline: shutdown %s: %w", id, err))
				}
			}
			select {
			case <-rp.done:
			case <-time.After(deadline):
				rp.cancel()
				<-rp.done
			}
			rp.mu.Lock()
			for _, e := range rp.errs {
				errs = multierr.Append(errs, e)
			}
			rp.mu.Unlock()
		}
	}
	return errs
}

func (o *Orchestrator) emit(kind observer.Kind, rp *runningPipeline, ref *observer.NodeRef, message string) {
	o.bus.Emit(observer.Event{
		Kind: kind, GroupID: rp.groupID, PipelineID: rp.id, CoreID: rp.coreID,
		Timestamp: time.Now(), Node: ref, Message: message,
	})
}
