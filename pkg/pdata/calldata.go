// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

import "fmt"

// CallDataSlots is the fixed inline capacity of a CallData vector. Each slot
// takes 32 bytes, so the vector holds 192 bytes inline: room for the
// retry-state scalars plus headroom for future processors.
const CallDataSlots = 6

// CallDataKind tags the primitive stored in a CallData slot.
type CallDataKind uint8

const (
	CallDataEmpty CallDataKind = iota
	CallDataUint
	CallDataFloat
	CallDataFlag
)

type callDataSlot struct {
	kind CallDataKind
	u    uint64
	f    float64
	flag bool
}

// CallData is a fixed-capacity inline vector of primitives keyed by
// position, carried across ACK/NACK boundaries without heap allocation on
// the fast path (§3.4, §9).
type CallData struct {
	slots [CallDataSlots]callDataSlot
}

// SetUint stores a uint64 at position i. Panics if i is out of range, the
// same way indexing a fixed-size array would — callers own a fixed,
// known-at-compile-time layout per processor.
func (c *CallData) SetUint(i int, v uint64) *CallData {
	c.slots[i] = callDataSlot{kind: CallDataUint, u: v}
	return c
}

// SetFloat stores a float64 at position i.
func (c *CallData) SetFloat(i int, v float64) *CallData {
	c.slots[i] = callDataSlot{kind: CallDataFloat, f: v}
	return c
}

// SetFlag stores a bool at position i.
func (c *CallData) SetFlag(i int, v bool) *CallData {
	c.slots[i] = callDataSlot{kind: CallDataFlag, flag: v}
	return c
}

// Uint reads a uint64 previously stored at position i. ok is false if the
// slot is empty or holds a different kind (malformed calldata, §4.4 step 1).
func (c *CallData) Uint(i int) (uint64, bool) {
	s := c.slots[i]
	return s.u, s.kind == CallDataUint
}

// Float reads a float64 previously stored at position i.
func (c *CallData) Float(i int) (float64, bool) {
	s := c.slots[i]
	return s.f, s.kind == CallDataFloat
}

// Flag reads a bool previously stored at position i.
func (c *CallData) Flag(i int) (bool, bool) {
	s := c.slots[i]
	return s.flag, s.kind == CallDataFlag
}

func (c *CallData) String() string {
	return fmt.Sprintf("CallData%v", c.slots)
}

func (s callDataSlot) String() string {
	switch s.kind {
	case CallDataUint:
		return fmt.Sprintf("u(%d)", s.u)
	case CallDataFloat:
		return fmt.Sprintf("f(%g)", s.f)
	case CallDataFlag:
		return fmt.Sprintf("b(%t)", s.flag)
	default:
		return "_"
	}
}
