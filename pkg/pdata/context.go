// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

// Interest is a bitset of notifications a subscriber wants on delivery of
// the message it is attached to (§3.4, §4.3).
type Interest uint8

const (
	InterestAck Interest = 1 << iota
	InterestNack
	InterestReturnData
)

// Has reports whether i includes the given interest flag.
func (i Interest) Has(flag Interest) bool {
	return i&flag != 0
}

// NodeID identifies a node within a pipeline for control-channel addressing.
type NodeID string

// InterestFrame is pushed onto a Pdata's Context stack by a producer that
// wants ACK/NACK notification. Frames are popped in LIFO order on delivery
// (§3.4, §4.3).
type InterestFrame struct {
	NodeID    NodeID
	Interests Interest
	CallData  CallData
}

// Context is the LIFO stack of interest frames carried alongside a Payload.
// Only the producer that pushes a frame is meant to read the popped
// CallData back; the stack itself has no notion of ownership beyond order.
type Context struct {
	frames []InterestFrame
}

// Push adds a new interest frame on top of the stack. Only the producer
// wanting notification calls this, before sending the payload onward.
func (c *Context) Push(frame InterestFrame) {
	c.frames = append(c.frames, frame)
}

// Pop removes and returns the top interest frame, or false if the stack is
// empty (no one subscribed — the caller should drop the notification).
func (c *Context) Pop() (InterestFrame, bool) {
	n := len(c.frames)
	if n == 0 {
		return InterestFrame{}, false
	}
	top := c.frames[n-1]
	c.frames = c.frames[:n-1]
	return top, true
}

// Peek returns the top interest frame without removing it.
func (c *Context) Peek() (InterestFrame, bool) {
	n := len(c.frames)
	if n == 0 {
		return InterestFrame{}, false
	}
	return c.frames[n-1], true
}

// Depth reports how many interest frames remain on the stack.
func (c *Context) Depth() int {
	return len(c.frames)
}

// Clone returns a deep-enough copy of the context: a fresh backing slice,
// frames copied by value (CallData is itself a fixed-size value type).
func (c *Context) Clone() Context {
	if len(c.frames) == 0 {
		return Context{}
	}
	out := Context{frames: make([]InterestFrame, len(c.frames))}
	copy(out.frames, c.frames)
	return out
}
