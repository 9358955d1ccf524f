// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// Processor implements node.Implementation for the filter/branch transform
// stage. Like attributes.Processor, it only touches PayloadKindOtlpDecoded
// payloads carrying plog.Logs; any other payload passes through untouched.
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
	if msg.Payload.Kind == pdata.PayloadKindOtlpDecoded {
		if logs, ok := msg.Payload.Decoded.(plog.Logs); ok {
			transformed, consumed, forwarded := transformLogs(&cfg, logs)
			if m := eh.Metrics(); m != nil {
				m.Add("msgs_consumed", float64(consumed))
				m.Add("msgs_transformed", float64(transformed))
				m.Add("msgs_forwarded", float64(forwarded))
			}
			if forwarded == 0 {
				return
			}
		}
	}
	if err := eh.SendMessage(ctx, msg); err != nil {
		_ = eh.NotifyNack(&msg, "channel full")
	}
}

// TransformLogsForTest exposes transformLogs to external tests.
func TransformLogsForTest(cfg *Config, logs plog.Logs) (transformed, consumed, forwarded int) {
	return transformLogs(cfg, logs)
}

// transformLogs applies the optional filter and then the branch table to
// every log record in logs, removing records rejected by the filter in
// place. It returns the number of records a non-empty branch/default action
// list was applied to (whether or not an action changed the record), the
// number of records seen, and the number remaining after filtering.
func transformLogs(cfg *Config, logs plog.Logs) (transformed, consumed, forwarded int) {
	rls := logs.ResourceLogs()
	for i := 0; i < rls.Len(); i++ {
		sls := rls.At(i).ScopeLogs()
		for j := 0; j < sls.Len(); j++ {
			recs := sls.At(j).LogRecords()
			consumed += recs.Len()
			recs.RemoveIf(func(rec plog.LogRecord) bool {
				if cfg.hasFilter && !cfg.filter.Eval(rec) {
					return true
				}
				if applyBranches(cfg, rec) {
					transformed++
				}
				forwarded++
				return false
			})
		}
	}
	return transformed, consumed, forwarded
}

// applyBranches runs the first matching branch's actions, or cfg.Default if
// none match, reporting whether any action actually ran.
func applyBranches(cfg *Config, rec plog.LogRecord) bool {
	for _, b := range cfg.Branches {
		if b.Condition.Eval(rec) {
			apply(b.Actions, rec)
			return len(b.Actions) > 0
		}
	}
	apply(cfg.Default, rec)
	return len(cfg.Default) > 0
}
