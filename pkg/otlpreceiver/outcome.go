// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package otlpreceiver

import (
	"strings"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// outcome is what a pending wait_for_result Export call is waiting for:
// either a successful Ack or a Nack with a reason.
type outcome struct {
	ok     bool
	reason string
}

// pendingTable tracks in-flight wait_for_result requests by an id stashed
// in the subscribed interest frame's CallData slot 0, resolved when the
// receiver's own Start loop observes the matching Ack/Nack control
// message.
type pendingTable struct {
	mu      sync.Mutex
	nextID  uint64
	waiters map[uint64]chan outcome
}

func newPendingTable() *pendingTable {
	return &pendingTable{waiters: map[uint64]chan outcome{}}
}

func (t *pendingTable) register() (id uint64, ch chan outcome) {
	id = atomic.AddUint64(&t.nextID, 1)
	ch = make(chan outcome, 1)
	t.mu.Lock()
	t.waiters[id] = ch
	t.mu.Unlock()
	return id, ch
}

func (t *pendingTable) forget(id uint64) {
	t.mu.Lock()
	delete(t.waiters, id)
	t.mu.Unlock()
}

func (t *pendingTable) resolve(id uint64, o outcome) {
	t.mu.Lock()
	ch, ok := t.waiters[id]
	delete(t.waiters, id)
	t.mu.Unlock()
	if ok {
		ch <- o
	}
}

const callDataSlotRequestID = 0

// statusFor translates a wait_for_result outcome into the gRPC status
// described in §6: OK on ack, and a reason-sensitive code on nack.
func statusFor(o outcome) error {
	if o.ok {
		return nil
	}
	return status.Error(classifyNackReason(o.reason), o.reason)
}

// classifyNackReason maps the retry processor / exporter's free-text NACK
// reason onto the gRPC status codes named in §6: RESOURCE_EXHAUSTED for
// slot exhaustion (channel full / backpressure), UNAVAILABLE for a
// downstream-unavailable style failure, and INTERNAL otherwise.
func classifyNackReason(reason string) codes.Code {
	switch {
	case containsAny(reason, "channel full", "cannot delay", "exhausted"):
		return codes.ResourceExhausted
	case containsAny(reason, "final retry", "unavailable", "export failed"):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
