// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package observer implements the ring-buffered observed-event bus (§2
// component H): lifecycle signals surfaced to controllers and operator
// tooling (§6 "Observed events").
package observer

import "time"

// Kind enumerates the observed event types of §6.
type Kind string

const (
	StartRequested      Kind = "StartRequested"
	Admitted            Kind = "Admitted"
	Ready               Kind = "Ready"
	ConfigRejected      Kind = "ConfigRejected"
	UpdateAdmitted      Kind = "UpdateAdmitted"
	UpdateApplied       Kind = "UpdateApplied"
	RollbackComplete    Kind = "RollbackComplete"
	RollbackFailed      Kind = "RollbackFailed"
	ShutdownRequested   Kind = "ShutdownRequested"
	Drained             Kind = "Drained"
	DeleteRequested     Kind = "DeleteRequested"
	ForceDeleteRequested Kind = "ForceDeleteRequested"
	Deleted             Kind = "Deleted"
	RuntimeError        Kind = "RuntimeError"
)

// NodeRef identifies the node an event pertains to, when applicable.
type NodeRef struct {
	NodeID   string
	NodeKind string
}

// Event is one observed lifecycle signal, carrying the full addressing
// tuple described in §6 so operators can correlate it to a specific
// pipeline replica.
type Event struct {
	Kind        Kind
	GroupID     string
	PipelineID  string
	CoreID      int
	Timestamp   time.Time
	Node        *NodeRef
	Message     string
	StructuredErr error
}
