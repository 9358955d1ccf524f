// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// DebugConfig configures the file/stdout exporter.
type DebugConfig struct {
	// Path is the output file; empty means write to stdout.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// DebugSink writes one JSON line per batch summarizing the resource/scope
// record counts it carried, matching §7's "File/stdout exporters:
// per-batch JSON-lines counting" behavior. It never fails Write for a
// payload kind it doesn't know how to summarize — those are counted as a
// zero-record batch rather than dropped silently.
type DebugSink struct {
	mu     sync.Mutex
	out    io.WriteCloser
	enc    *json.Encoder
	owned  bool
}

// NewDebugSink opens cfg.Path (truncating it) or wraps os.Stdout when Path
// is empty.
func NewDebugSink(cfg DebugConfig) (*DebugSink, error) {
	if cfg.Path == "" {
		return &DebugSink{out: nopCloser{os.Stdout}, enc: json.NewEncoder(os.Stdout)}, nil
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &DebugSink{out: f, enc: json.NewEncoder(f), owned: true}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (s *DebugSink) Write(msg pdata.Pdata) error {
	summary := summarize(msg.Payload)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(summary)
}

func (s *DebugSink) Close() error {
	return s.out.Close()
}

func summarize(p pdata.Payload) BatchSummary {
	summary := BatchSummary{Signal: p.SignalOf().String()}
	if p.Kind != pdata.PayloadKindOtlpDecoded {
		return summary
	}
	switch v := p.Decoded.(type) {
	case plog.Logs:
		summary.Signal = "logs"
		summary.ResourceRecords = v.ResourceLogs().Len()
		summary.RootRecords = v.LogRecordCount()
		for i := 0; i < v.ResourceLogs().Len(); i++ {
			summary.ScopeRecords += v.ResourceLogs().At(i).ScopeLogs().Len()
		}
	case ptrace.Traces:
		summary.Signal = "traces"
		summary.ResourceRecords = v.ResourceSpans().Len()
		summary.RootRecords = v.SpanCount()
		for i := 0; i < v.ResourceSpans().Len(); i++ {
			summary.ScopeRecords += v.ResourceSpans().At(i).ScopeSpans().Len()
		}
	case pmetric.Metrics:
		summary.Signal = "metrics"
		summary.ResourceRecords = v.ResourceMetrics().Len()
		summary.RootRecords = v.MetricCount()
		for i := 0; i < v.ResourceMetrics().Len(); i++ {
			summary.ScopeRecords += v.ResourceMetrics().At(i).ScopeMetrics().Len()
		}
	}
	return summary
}
