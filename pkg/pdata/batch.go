// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

import (
	"github.com/apache/arrow/go/v12/arrow"

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// OtapBatch is the tagged columnar unit carried between nodes on the pdata
// path: a signal variant plus an indexed array of optional Arrow record
// batches, one slot per payload type (§3.1).
type OtapBatch struct {
	signal   SignalType
	payloads [payloadSlotCount]arrow.Record

	// transportOptimized is true once EncodeTransportOptimizedIDs has run
	// and before the corresponding DecodeTransportOptimizedIDs; while true,
	// §3.1 invariant 2 (parent_id references an existing id) does not hold
	// in the raw column values and must not be checked.
	transportOptimized bool

	// encodings records the wire encoding applied to each payload's ID
	// columns, keyed by payload type. Absent entries mean Plain.
	encodings map[PayloadType]idEncoding
}

// NewOtapBatch creates an empty batch for the given signal. All payload
// slots start unset (nil record, the sentinel for "absent" per §3.1).
func NewOtapBatch(signal SignalType) *OtapBatch {
	return &OtapBatch{signal: signal, encodings: map[PayloadType]idEncoding{}}
}

// NewDefault wraps a single record batch as the root payload of a new OTAP
// batch for the given signal (the §4.2 `new_default` operation).
func NewDefault(signal SignalType, root arrow.Record) *OtapBatch {
	b := NewOtapBatch(signal)
	b.Set(RootPayloadType(signal), root)
	return b
}

// SignalType reports which of Logs/Metrics/Traces this batch carries.
func (b *OtapBatch) SignalType() SignalType {
	return b.signal
}

// Get returns the record batch stored for a payload type, or (nil, false)
// if that slot is unset. Returns an error if the payload type is not
// permitted for this batch's signal.
func (b *OtapBatch) Get(p PayloadType) (arrow.Record, bool, error) {
	if !AllowedForSignal(b.signal, p) {
		return nil, false, werror.Wrap(&InvariantViolationError{
			Payload: p,
			Detail:  "payload type not permitted for signal " + b.signal.String(),
		})
	}
	rec := b.payloads[p]
	return rec, rec != nil, nil
}

// Set stores a record batch for a payload type, replacing any previous
// value. Set does not validate schema; callers that ingest untrusted data
// should call Validate first.
func (b *OtapBatch) Set(p PayloadType, rec arrow.Record) error {
	if !AllowedForSignal(b.signal, p) {
		return werror.Wrap(&InvariantViolationError{
			Payload: p,
			Detail:  "payload type not permitted for signal " + b.signal.String(),
		})
	}
	b.payloads[p] = rec
	return nil
}

// RootRecordBatch returns the record batch for this signal's root payload
// type (Logs, Spans, or UnivariateMetrics).
func (b *OtapBatch) RootRecordBatch() (arrow.Record, bool) {
	root := b.payloads[RootPayloadType(b.signal)]
	return root, root != nil
}

// NumItems counts root records: logs, spans, or metric definitions,
// depending on signal. An absent root payload counts as zero.
func (b *OtapBatch) NumItems() int64 {
	root, ok := b.RootRecordBatch()
	if !ok {
		return 0
	}
	return root.NumRows()
}

// IsTransportOptimized reports whether ID columns in this batch are
// currently encoded for the wire (Delta/QuasiDelta) rather than plain.
func (b *OtapBatch) IsTransportOptimized() bool {
	return b.transportOptimized
}

// ForEachPresent calls fn for every populated payload slot, in payload-type
// order. fn must not mutate the set of present payloads.
func (b *OtapBatch) ForEachPresent(fn func(PayloadType, arrow.Record)) {
	for p, rec := range b.payloads {
		if rec != nil {
			fn(PayloadType(p), rec)
		}
	}
}

// Release releases every populated payload's underlying Arrow buffers. A
// batch must not be used after Release.
func (b *OtapBatch) Release() {
	b.ForEachPresent(func(_ PayloadType, rec arrow.Record) {
		rec.Release()
	})
}

// Validate checks §3.1 invariant 1 (no payload type outside the signal's
// permitted set — already enforced by Get/Set) and invariant 4 (schema
// shape: presence of the declared primary_id / parent_id columns with
// integer types). It does not check invariant 2 (referential integrity)
// on a transport-optimized batch, since IDs are not plain in that state.
func (b *OtapBatch) Validate() error {
	var firstErr error
	b.ForEachPresent(func(p PayloadType, rec arrow.Record) {
		if firstErr != nil {
			return
		}
		schema := rec.Schema()
		if col, width, ok := PrimaryIDColumn(p); ok {
			idx := schema.FieldIndices(col)
			if len(idx) == 0 {
				firstErr = werror.Wrap(&ColumnNotFoundError{Payload: p, Column: col})
				return
			}
			if err := checkIDFieldType(p, schema.Field(idx[0]), width); err != nil {
				firstErr = werror.Wrap(err)
				return
			}
		}
		for _, rel := range relationGraph[p].Relations {
			child := b.payloads[rel.Child]
			if child == nil {
				continue
			}
			childSchema := child.Schema()
			idx := childSchema.FieldIndices(rel.ParentIDCol)
			if len(idx) == 0 {
				firstErr = werror.Wrap(&ColumnNotFoundError{Payload: rel.Child, Column: rel.ParentIDCol})
				return
			}
			if err := checkIDFieldType(rel.Child, childSchema.Field(idx[0]), rel.ChildWidth); err != nil {
				firstErr = werror.Wrap(err)
				return
			}
		}
	})
	if firstErr != nil {
		return firstErr
	}
	if b.transportOptimized {
		return nil
	}
	return b.checkReferentialIntegrity()
}

func checkIDFieldType(p PayloadType, field arrow.Field, width IDWidth) error {
	var wantBits int
	switch width {
	case IDWidth16:
		wantBits = 16
	case IDWidth32:
		wantBits = 32
	}
	switch dt := field.Type.(type) {
	case *arrow.Uint16Type:
		if wantBits != 16 {
			return &ColumnDataTypeMismatchError{Payload: p, Column: field.Name, Expected: "uint32", Actual: "uint16"}
		}
	case *arrow.Uint32Type:
		if wantBits != 32 {
			return &ColumnDataTypeMismatchError{Payload: p, Column: field.Name, Expected: "uint16", Actual: "uint32"}
		}
	default:
		return &ColumnDataTypeMismatchError{Payload: p, Column: field.Name, Expected: "uint16 or uint32", Actual: dt.Name()}
	}
	return nil
}

// checkReferentialIntegrity enforces §3.1 invariant 2: every child row's
// parent_id must reference a primary id present in the parent payload.
func (b *OtapBatch) checkReferentialIntegrity() error {
	var firstErr error
	b.ForEachPresent(func(p PayloadType, parent arrow.Record) {
		if firstErr != nil {
			return
		}
		idCol, _, ok := PrimaryIDColumn(p)
		if !ok {
			return
		}
		ids, err := readIDColumn(parent, idCol)
		if err != nil {
			firstErr = err
			return
		}
		idSet := make(map[uint64]struct{}, len(ids))
		for _, id := range ids {
			idSet[id] = struct{}{}
		}
		for _, rel := range relationGraph[p].Relations {
			child := b.payloads[rel.Child]
			if child == nil {
				continue
			}
			parentIDs, err := readIDColumn(child, rel.ParentIDCol)
			if err != nil {
				firstErr = err
				return
			}
			for _, pid := range parentIDs {
				if _, ok := idSet[pid]; !ok {
					firstErr = werror.Wrap(&InvariantViolationError{
						Payload: rel.Child,
						Detail:  "parent_id references missing id in " + p.String(),
					})
					return
				}
			}
		}
	})
	return firstErr
}
