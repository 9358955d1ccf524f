// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package exporter implements the terminal-node side of the engine: the
// Sink abstraction every concrete exporter writes through, and a
// debug/file exporter that satisfies it with JSON-lines per-batch counting
// (§7 "User-visible behavior"). The Quiver segment-storage sink referenced
// by the original implementation is out of scope (§1 Non-goals); only its
// consumption point is modeled here, as the Sink interface itself.
package exporter

import "github.com/open-telemetry/otap-dataflow/pkg/pdata"

// BatchSummary is the per-batch record a Sink writes out: counts of
// resource/scope-level records by signal, used for the file/stdout
// exporter's JSON-lines output.
type BatchSummary struct {
	Signal          string `json:"signal"`
	ResourceRecords int    `json:"resource_records"`
	ScopeRecords    int    `json:"scope_records"`
	RootRecords     int    `json:"root_records"`
}

// Sink is the narrow interface a node.Implementation exporter writes
// through. Write returns an error when the batch is refused (e.g. a
// downstream I/O failure); the caller translates that into a NackMsg
// exactly as the retry processor does for channel backpressure.
type Sink interface {
	Write(msg pdata.Pdata) error
	Close() error
}
