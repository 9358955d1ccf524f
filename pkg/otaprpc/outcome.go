// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package otaprpc

import "sync"

// outcome is what a pending batch is waiting for: either a successful Ack
// or a Nack with a reason, mirroring the otlpreceiver's wait_for_result
// pattern but keyed per ArrowStream batch rather than per unary RPC.
type outcome struct {
	ok     bool
	reason string
}

type pendingTable struct {
	mu      sync.Mutex
	nextID  uint64
	waiters map[uint64]chan outcome
}

func newPendingTable() *pendingTable {
	return &pendingTable{waiters: map[uint64]chan outcome{}}
}

func (t *pendingTable) register() (id uint64, ch chan outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id = t.nextID
	ch = make(chan outcome, 1)
	t.waiters[id] = ch
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

const callDataSlotBatch = 0
