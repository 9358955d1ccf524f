// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package node implements the node runtime wrapper of §4.1: a uniform
// contract over heterogeneous node implementations (single-thread
// cooperative vs work-stealing multi-threaded), owning the node's control
// channel, user config, identity, and telemetry handle, and driving the
// per-node lifecycle state machine.
package node

import "fmt"

// State is a node's position in the lifecycle FSM of §4.1.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TerminalKind discriminates the three ways start() can conclude (§4.1).
type TerminalKind uint8

const (
	TerminalNormal TerminalKind = iota
	TerminalShutdown
	TerminalFatal
)

// TerminalState is the value a node implementation's Start returns.
type TerminalState struct {
	Kind   TerminalKind
	Reason string
}

func (t TerminalState) String() string {
	switch t.Kind {
	case TerminalNormal:
		return "normal"
	case TerminalShutdown:
		return fmt.Sprintf("shutdown(%s)", t.Reason)
	case TerminalFatal:
		return fmt.Sprintf("fatal(%s)", t.Reason)
	default:
		return "unknown"
	}
}

// Normal is the terminal state for a node that ran to completion without
// being asked to shut down (rare outside of bounded test harnesses).
func Normal() TerminalState { return TerminalState{Kind: TerminalNormal} }

// Shutdown is the terminal state for a node that drained in response to a
// Shutdown control message.
func Shutdown(reason string) TerminalState {
	return TerminalState{Kind: TerminalShutdown, Reason: reason}
}

// Fatal is the terminal state for a node that hit an unrecoverable error;
// the orchestrator emits a RuntimeError observed event and stops the
// pipeline in response (§4.1 "Failure semantics").
func Fatal(reason string) TerminalState {
	return TerminalState{Kind: TerminalFatal, Reason: reason}
}

// allowedTransitions encodes the FSM diagram of §4.1 for Advance's
// validation. Config/first-message/TimerTick transitions into Running are
// driven by the wrapper, not spelled out here, since any number of control
// or data messages may arrive before the first one that matters.
var allowedTransitions = map[State]map[State]bool{
	StateUninitialized: {StateInitialized: true, StateTerminated: true},
	StateInitialized:   {StateRunning: true, StateTerminated: true},
	StateRunning:       {StateDraining: true, StateTerminated: true},
	StateDraining:      {StateTerminated: true},
	StateTerminated:    {},
}

// Advance validates and applies a state transition, returning an error if
// the transition is not permitted by the FSM.
func (s *State) Advance(to State) error {
	if !allowedTransitions[*s][to] {
		return fmt.Errorf("node: illegal state transition %s -> %s", *s, to)
	}
	*s = to
	return nil
}
