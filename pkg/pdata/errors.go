// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

import "fmt"

// ColumnNotFoundError is returned when a transform or validation step
// expects a column that is absent from a payload's schema (§4.2 failure
// semantics). It carries the exact column path so log triage is mechanical
// (§7 "User-visible behavior").
type ColumnNotFoundError struct {
	Payload PayloadType
	Column  string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("pdata: column not found: payload=%s column=%s", e.Payload, e.Column)
}

// ColumnDataTypeMismatchError is returned when a column exists but its Arrow
// data type (or dictionary key width) doesn't match the canonical schema for
// its payload type, including primary ID overflow (§8 boundary cases).
type ColumnDataTypeMismatchError struct {
	Payload  PayloadType
	Column   string
	Expected string
	Actual   string
}

func (e *ColumnDataTypeMismatchError) Error() string {
	return fmt.Sprintf("pdata: column type mismatch: payload=%s column=%s expected=%s actual=%s",
		e.Payload, e.Column, e.Expected, e.Actual)
}

// UnsupportedDictionaryValueTypeError is returned when a dictionary-encoded
// column's value type is outside the small set this engine knows how to
// transport-encode/decode.
type UnsupportedDictionaryValueTypeError struct {
	Payload PayloadType
	Column  string
	ValueType string
}

func (e *UnsupportedDictionaryValueTypeError) Error() string {
	return fmt.Sprintf("pdata: unsupported dictionary value type: payload=%s column=%s type=%s",
		e.Payload, e.Column, e.ValueType)
}

// InvariantViolationError reports a detected violation of one of the §3.1
// batch invariants (e.g. a child row whose parent_id has no matching parent
// row). It is per-batch fatal and surfaced as a NACK with the batch returned.
type InvariantViolationError struct {
	Payload PayloadType
	Detail  string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("pdata: invariant violated: payload=%s: %s", e.Payload, e.Detail)
}
