// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry implements the per-node MetricSet and the pull-based
// collection path driven by the CollectTelemetry control message (§5
// "Metrics: ... Collection is pull-based").
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// MetricSet is the set of counters a node accumulates between
// CollectTelemetry messages. Unlike a push-based SDK meter, values are kept
// in-process and only surfaced to a reporter when asked, matching the
// teacher's per-node MetricSet pattern used across
// collector/receiver/otelarrowreceiver and collector/netstats.
type MetricSet struct {
	mu      sync.Mutex
	counts  map[string]float64
	nodeID  string
	counter metric.Int64Counter // optional OTel SDK mirror, nil if unset
}

// NewMetricSet creates an empty metric set for a node. meter may be nil in
// tests or reference receivers that don't export to an OTel SDK pipeline.
func NewMetricSet(nodeID string, meter metric.Meter) *MetricSet {
	ms := &MetricSet{nodeID: nodeID, counts: map[string]float64{}}
	if meter != nil {
		c, err := meter.Int64Counter(
			"otap_dataflow_node_events_total",
			metric.WithDescription("Count of per-node lifecycle and dataflow events, labeled by metric name."),
		)
		if err == nil {
			ms.counter = c
		}
	}
	return ms
}

// Add increments a named counter, e.g. "consumed.success.logs" (§4.4
// Metrics). Names are otherwise opaque to this package.
func (m *MetricSet) Add(name string, delta float64) {
	m.mu.Lock()
	m.counts[name] += delta
	m.mu.Unlock()
	if m.counter != nil {
		m.counter.Add(context.Background(), int64(delta), metric.WithAttributes(
			attrNodeID(m.nodeID), attrMetricName(name),
		))
	}
}

// Snapshot returns a copy of the accumulated counters without resetting
// them — CollectTelemetry is a read, not a drain, so repeated collection
// reflects monotonically increasing totals like the rest of the engine's
// counters.
func (m *MetricSet) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// Reporter implements control.TelemetryReporter: the target a node writes
// its MetricSet into synchronously when it handles CollectTelemetry.
type Reporter struct {
	mu   sync.Mutex
	byNode map[string]map[string]float64
}

// NewReporter creates an empty telemetry reporter.
func NewReporter() *Reporter {
	return &Reporter{byNode: map[string]map[string]float64{}}
}

// Report records the given node's metric snapshot. Implements
// control.TelemetryReporter without importing package control, keeping the
// dependency direction control -> telemetry rather than the reverse.
func (r *Reporter) Report(nodeID string, metrics map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byNode[nodeID] = metrics
}

// All returns a copy of every node's most recently reported snapshot.
func (r *Reporter) All() map[string]map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]float64, len(r.byNode))
	for k, v := range r.byNode {
		cp := make(map[string]float64, len(v))
		for mk, mv := range v {
			cp[mk] = mv
		}
		out[k] = cp
	}
	return out
}
