// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyRecorder tracks a send/process latency distribution with bounded
// memory regardless of sample count. No node or orchestrator in this
// module records into it.
type LatencyRecorder struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewLatencyRecorder creates a recorder covering 1 microsecond to 5 minutes
// with 3 significant figures of precision, generous enough for both a
// single gRPC call and the retry processor's multi-minute backoff budget.
func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{
		hist: hdrhistogram.New(1, (5 * time.Minute).Microseconds(), 3),
	}
}

// Record adds one latency sample.
func (l *LatencyRecorder) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.hist.RecordValue(d.Microseconds())
}

// Quantile returns the latency at the given quantile (0-100) as a Duration.
func (l *LatencyRecorder) Quantile(q float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(l.hist.ValueAtQuantile(q)) * time.Microsecond
}

// Snapshot returns p50/p95/p99 as a convenience triple for telemetry reporting.
func (l *LatencyRecorder) Snapshot() (p50, p95, p99 time.Duration) {
	return l.Quantile(50), l.Quantile(95), l.Quantile(99)
}
