// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package attributes

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// Processor implements node.Implementation for attribute mutation. It only
// operates on PayloadKindOtlpDecoded payloads; anything else (raw OTAP
// batches, raw OTLP proto bytes) passes through untouched, since mutating
// columnar or wire-encoded attributes is the otlpbridge/pdata layer's job,
// not this processor's.
type Processor struct {
	mu  sync.Mutex
	cfg Config
}

func NewProcessor(cfg Config) *Processor {
	return &Processor{cfg: cfg}
}

func (p *Processor) currentConfig() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

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
			if cfg, ok := env.Control.Config.(Config); ok {
				if cfg.Validate() == nil {
					p.mu.Lock()
					p.cfg = cfg
					p.mu.Unlock()
				}
			}
		case control.KindCollectTelemetry:
			if env.Control.TelemetryReporter != nil && eh.Metrics() != nil {
				env.Control.TelemetryReporter.Report(string(eh.SelfID()), eh.Metrics().Snapshot())
			}
		case control.KindShutdown:
			return node.Shutdown(string(env.Control.ShutdownReason)), nil
		}
	}
}

func (p *Processor) handlePData(ctx context.Context, msg pdata.Pdata, eh *node.EffectHandler) {
	cfg := p.currentConfig()
	deleted := 0
	if msg.Payload.Kind == pdata.PayloadKindOtlpDecoded {
		switch v := msg.Payload.Decoded.(type) {
		case plog.Logs:
			deleted = mutateLogs(&cfg, v)
		case ptrace.Traces:
			deleted = mutateTraces(&cfg, v)
		case pmetric.Metrics:
			deleted = mutateMetrics(&cfg, v)
		}
	}
	if deleted > 0 && eh.Metrics() != nil {
		eh.Metrics().Add("deleted_entries", float64(deleted))
	}
	if err := eh.SendMessage(ctx, msg); err != nil {
		_ = eh.NotifyNack(&msg, "channel full")
	}
}

// MutateLogsForTest exposes mutateLogs to external tests; production code
// always goes through Processor.handlePData.
func MutateLogsForTest(cfg *Config, logs plog.Logs) int { return mutateLogs(cfg, logs) }

func mutateLogs(cfg *Config, logs plog.Logs) int {
	deleted := 0
	rls := logs.ResourceLogs()
	for i := 0; i < rls.Len(); i++ {
		rl := rls.At(i)
		deleted += mutate(cfg, ScopeResource, rl.Resource().Attributes())
		sls := rl.ScopeLogs()
		for j := 0; j < sls.Len(); j++ {
			sl := sls.At(j)
			deleted += mutate(cfg, ScopeScope, sl.Scope().Attributes())
			recs := sl.LogRecords()
			for k := 0; k < recs.Len(); k++ {
				deleted += mutate(cfg, ScopeSignal, recs.At(k).Attributes())
			}
		}
	}
	return deleted
}

func mutateTraces(cfg *Config, traces ptrace.Traces) int {
	deleted := 0
	rss := traces.ResourceSpans()
	for i := 0; i < rss.Len(); i++ {
		rs := rss.At(i)
		deleted += mutate(cfg, ScopeResource, rs.Resource().Attributes())
		sss := rs.ScopeSpans()
		for j := 0; j < sss.Len(); j++ {
			ss := sss.At(j)
			deleted += mutate(cfg, ScopeScope, ss.Scope().Attributes())
			spans := ss.Spans()
			for k := 0; k < spans.Len(); k++ {
				deleted += mutate(cfg, ScopeSignal, spans.At(k).Attributes())
			}
		}
	}
	return deleted
}

// mutateMetrics applies resource/scope mutations only. Per-data-point
// attribute mutation would require switching on each metric type
// (gauge/sum/histogram/summary/exponential histogram) and is not wired —
// apply_to=["signal"] is a no-op for metrics until that's added.
func mutateMetrics(cfg *Config, metrics pmetric.Metrics) int {
	deleted := 0
	rms := metrics.ResourceMetrics()
	for i := 0; i < rms.Len(); i++ {
		rm := rms.At(i)
		deleted += mutate(cfg, ScopeResource, rm.Resource().Attributes())
		sms := rm.ScopeMetrics()
		for j := 0; j < sms.Len(); j++ {
			deleted += mutate(cfg, ScopeScope, sms.At(j).Scope().Attributes())
		}
	}
	return deleted
}
