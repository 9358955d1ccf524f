// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"container/heap"
	"sync"
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/control"
)

// TimerWheel schedules DelayedData control-message delivery to a node's own
// control inbox at a future instant (§4.3 "Delayed data"). It is owned by
// the node's local scheduler; there is no cross-core sharing (§5 "Shared
// resources").
type TimerWheel struct {
	mu      sync.Mutex
	items   timerHeap
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
}

type timerItem struct {
	when    time.Time
	deliver func(control.Message) (control.Message, error)
	msg     control.Message
	index   int
}

type timerHeap []*timerItem

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	it := x.(*timerItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// NewTimerWheel starts a timer wheel's background dispatch loop.
func NewTimerWheel() *TimerWheel {
	w := &TimerWheel{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go w.run()
	return w
}

// Schedule queues deliver(msg) to run at `when`. deliver is typically a
// control channel's TrySend, returning the refused message back on
// failure so the caller (EffectHandler.DelayData) can surface "cannot
// delay" per §4.4.
func (w *TimerWheel) Schedule(when time.Time, msg control.Message, deliver func(control.Message) (control.Message, error)) {
	w.mu.Lock()
	heap.Push(&w.items, &timerItem{when: when, deliver: deliver, msg: msg})
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Stop halts the dispatch loop. Pending timers are discarded.
func (w *TimerWheel) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stop)
	}
	w.mu.Unlock()
}

func (w *TimerWheel) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		w.mu.Lock()
		var wait time.Duration
		if len(w.items) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(w.items[0].when)
			if wait < 0 {
				wait = 0
			}
		}
		w.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-w.stop:
			return
		case <-w.wake:
			continue
		case <-timer.C:
			w.fireDue()
		}
	}
}

func (w *TimerWheel) fireDue() {
	now := time.Now()
	var due []*timerItem
	w.mu.Lock()
	for len(w.items) > 0 && !w.items[0].when.After(now) {
		due = append(due, heap.Pop(&w.items).(*timerItem))
	}
	w.mu.Unlock()

	for _, it := range due {
		it.deliver(it.msg)
	}
}
