// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

import (
	"sort"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// IDEncodingKind is the wire encoding applied to an identifier column (§3.3).
type IDEncodingKind uint8

const (
	EncodingPlain IDEncodingKind = iota
	EncodingDelta
	EncodingQuasiDelta
)

// idEncoding is the per-payload encoding metadata tracked on an OtapBatch
// while it is in transport-optimized form. QuasiDeltaKeyCols names the
// columns whose change resets the running delta sum (attribute-wise or
// columnar quasi-delta, §3.3).
type idEncoding struct {
	Kind              IDEncodingKind
	QuasiDeltaKeyCols []string
}

// SetIDEncoding records how a payload's primary ID column is currently
// encoded, which DecodeTransportOptimizedIDs consults.
// EncodeTransportOptimizedIDs always writes Delta and records that itself.
// It has no effect on payload types with no primary_id column.
func (b *OtapBatch) SetIDEncoding(p PayloadType, kind IDEncodingKind, quasiDeltaKeys ...string) {
	if _, ok := relationGraph[p]; !ok {
		return
	}
	b.encodings[p] = idEncoding{Kind: kind, QuasiDeltaKeyCols: quasiDeltaKeys}
}

func rootPayloadTypes() map[PayloadType]bool {
	isChild := map[PayloadType]bool{}
	for _, schema := range relationGraph {
		for _, rel := range schema.Relations {
			isChild[rel.Child] = true
		}
	}
	roots := map[PayloadType]bool{}
	for p := range relationGraph {
		if !isChild[p] {
			roots[p] = true
		}
	}
	return roots
}

// DecodeTransportOptimizedIDs reconstructs plain IDs for every payload whose
// encoding metadata is non-Plain, rewriting child parent_id columns to
// match (§4.2 "Decode"). It is idempotent: payloads already Plain are
// skipped. Walk order is parent-before-child so a child's parent_id rewrite
// always sees its parent's freshly decoded remap.
func (b *OtapBatch) DecodeTransportOptimizedIDs() error {
	mem := memory.NewGoAllocator()
	remap := map[PayloadType]map[uint64]uint64{}

	decodeOne := func(p PayloadType) error {
		rec := b.payloads[p]
		if rec == nil {
			return nil
		}
		idCol, width, hasID := PrimaryIDColumn(p)
		if !hasID {
			return nil
		}
		enc := b.encodings[p]
		if enc.Kind == EncodingPlain {
			return nil
		}
		raw, err := readIDColumn(rec, idCol)
		if err != nil {
			return err
		}
		var keyCols [][]uint64
		for _, kc := range enc.QuasiDeltaKeyCols {
			vals, err := readIDColumn(rec, kc)
			if err != nil {
				return err
			}
			keyCols = append(keyCols, vals)
		}
		plain := make([]uint64, len(raw))
		oldToNew := make(map[uint64]uint64, len(raw))
		var sum uint64
		for i, v := range raw {
			if enc.Kind == EncodingQuasiDelta && i > 0 && keyChanged(keyCols, i) {
				sum = 0
			}
			sum += v
			plain[i] = sum
			// Children's parent_id columns already hold the dense ID the
			// encoder assigned to the parent row, not the delta-encoded wire
			// value, so the remap children look up through is identity over
			// the reconstructed dense IDs.
			oldToNew[plain[i]] = plain[i]
		}
		remap[p] = oldToNew
		col, err := buildIDColumn(mem, plain, width)
		if err != nil {
			return err
		}
		newRec, err := replaceColumn(rec, idCol, col)
		if err != nil {
			return err
		}
		rec.Release()
		b.payloads[p] = newRec
		b.encodings[p] = idEncoding{Kind: EncodingPlain}
		return nil
	}

	var walk func(p PayloadType) error
	walk = func(p PayloadType) error {
		if err := decodeOne(p); err != nil {
			return err
		}
		parentMap, hadParent := remap[p]
		for _, rel := range relationGraph[p].Relations {
			child := b.payloads[rel.Child]
			if child == nil {
				continue
			}
			if hadParent {
				if err := rewriteParentIDs(b, rel.Child, child, rel.ParentIDCol, parentMap); err != nil {
					return err
				}
			}
			if err := walk(rel.Child); err != nil {
				return err
			}
		}
		return nil
	}

	for p := range rootPayloadTypes() {
		if err := walk(p); err != nil {
			return werror.Wrap(err)
		}
	}
	b.transportOptimized = false
	return nil
}

func keyChanged(keyCols [][]uint64, i int) bool {
	for _, col := range keyCols {
		if col[i] != col[i-1] {
			return true
		}
	}
	return false
}

// rewriteParentIDs rewrites child's parent_id column in place (by building
// a replacement record) using oldToNew, the remap produced while decoding
// or encoding the parent payload, and stores the result back on the batch.
func rewriteParentIDs(b *OtapBatch, childType PayloadType, child arrow.Record, col string, oldToNew map[uint64]uint64) error {
	_, width, ok := PrimaryIDColumn(childType)
	if !ok {
		// Leaf payloads with no primary_id of their own still carry a
		// parent_id; infer width from the existing column's own type.
		width = existingColumnWidth(child, col)
	}
	vals, err := readIDColumn(child, col)
	if err != nil {
		return err
	}
	remapped := make([]uint64, len(vals))
	for i, v := range vals {
		nv, ok := oldToNew[v]
		if !ok {
			return werror.Wrap(&InvariantViolationError{Payload: childType, Detail: "parent_id has no mapping during re-encode"})
		}
		remapped[i] = nv
	}
	mem := memory.NewGoAllocator()
	newCol, err := buildIDColumn(mem, remapped, width)
	if err != nil {
		return err
	}
	newRec, err := replaceColumn(child, col, newCol)
	if err != nil {
		return err
	}
	child.Release()
	b.payloads[childType] = newRec
	return nil
}

func existingColumnWidth(rec arrow.Record, col string) IDWidth {
	idx := rec.Schema().FieldIndices(col)
	if len(idx) == 0 {
		return IDWidth32
	}
	switch rec.Schema().Field(idx[0]).Type.(type) {
	case *arrow.Uint16Type:
		return IDWidth16
	default:
		return IDWidth32
	}
}

// EncodeTransportOptimizedIDs sorts each payload (by (parent_id, id) for
// non-root payloads, by (id) for the root), assigns dense IDs 0..N in row
// order, delta-encodes them, and propagates the remapping into child
// parent_id columns of the same batch (§4.2 "Encode"). Sort is stable.
func (b *OtapBatch) EncodeTransportOptimizedIDs() error {
	mem := memory.NewGoAllocator()
	isChild := map[PayloadType]bool{}
	for _, schema := range relationGraph {
		for _, rel := range schema.Relations {
			isChild[rel.Child] = true
		}
	}

	remap := map[PayloadType]map[uint64]uint64{}

	encodeOne := func(p PayloadType) error {
		rec := b.payloads[p]
		if rec == nil {
			return nil
		}
		idCol, width, hasID := PrimaryIDColumn(p)
		if !hasID {
			return nil
		}
		ids, err := readIDColumn(rec, idCol)
		if err != nil {
			return err
		}
		n := len(ids)
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		if isChild[p] {
			parentIDs, err := readIDColumn(rec, "parent_id")
			if err != nil {
				return err
			}
			sort.SliceStable(order, func(a, c int) bool {
				if parentIDs[order[a]] != parentIDs[order[c]] {
					return parentIDs[order[a]] < parentIDs[order[c]]
				}
				return ids[order[a]] < ids[order[c]]
			})
		} else {
			sort.SliceStable(order, func(a, c int) bool {
				return ids[order[a]] < ids[order[c]]
			})
		}

		oldToNew := make(map[uint64]uint64, n)
		delta := make([]uint64, n)
		var prev uint64
		for newPos, oldIdx := range order {
			oldToNew[ids[oldIdx]] = uint64(newPos)
			if newPos == 0 {
				delta[newPos] = uint64(newPos)
			} else {
				delta[newPos] = uint64(newPos) - prev
			}
			prev = uint64(newPos)
		}
		remap[p] = oldToNew

		reordered, err := reorderRecord(rec, order)
		if err != nil {
			return err
		}
		col, err := buildIDColumn(mem, delta, width)
		if err != nil {
			reordered.Release()
			return err
		}
		final, err := replaceColumn(reordered, idCol, col)
		if err != nil {
			reordered.Release()
			return err
		}
		reordered.Release()
		rec.Release()
		b.payloads[p] = final
		b.encodings[p] = idEncoding{Kind: EncodingDelta}
		return nil
	}

	var walk func(p PayloadType) error
	walk = func(p PayloadType) error {
		if err := encodeOne(p); err != nil {
			return err
		}
		parentMap, hadParent := remap[p]
		for _, rel := range relationGraph[p].Relations {
			child := b.payloads[rel.Child]
			if child == nil {
				continue
			}
			if hadParent {
				if err := rewriteParentIDs(b, rel.Child, child, rel.ParentIDCol, parentMap); err != nil {
					return err
				}
			}
			if err := walk(rel.Child); err != nil {
				return err
			}
		}
		return nil
	}

	for p := range rootPayloadTypes() {
		if err := walk(p); err != nil {
			return werror.Wrap(err)
		}
	}
	b.transportOptimized = true
	return nil
}

// reorderRecord returns a new record with rows permuted according to order
// (order[i] is the source row index that becomes row i). Implemented via
// Arrow's Take-by-index idiom using a builder per column since the v12 API
// used here has no generic Take kernel in scope for this package.
func reorderRecord(rec arrow.Record, order []int) (arrow.Record, error) {
	mem := memory.NewGoAllocator()
	cols := make([]arrow.Array, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		src := rec.Column(i)
		taken, err := takeRows(mem, src, order)
		if err != nil {
			return nil, err
		}
		cols[i] = taken
	}
	return array.NewRecord(rec.Schema(), cols, rec.NumRows()), nil
}

// takeRows builds a new array containing src's rows in the given order. It
// supports the primitive and dictionary-encoded types that occur in OTAP
// payload schemas; anything else is an UnsupportedDictionaryValueTypeError.
func takeRows(mem memory.Allocator, src arrow.Array, order []int) (arrow.Array, error) {
	switch a := src.(type) {
	case *array.Uint16:
		b := array.NewUint16Builder(mem)
		defer b.Release()
		for _, i := range order {
			if a.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(a.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Uint32:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		for _, i := range order {
			if a.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(a.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Uint8:
		b := array.NewUint8Builder(mem)
		defer b.Release()
		for _, i := range order {
			if a.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(a.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Int32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for _, i := range order {
			if a.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(a.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, i := range order {
			if a.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(a.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.String:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, i := range order {
			if a.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(a.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Dictionary:
		// Dictionary columns retain their original key width and the shared
		// dictionary values array; only the index order is permuted, per
		// §4.2 "dictionary-encoded string columns must retain original key
		// widths".
		return takeDictionaryRows(mem, a, order)
	default:
		return nil, werror.Wrap(&UnsupportedDictionaryValueTypeError{ValueType: src.DataType().Name()})
	}
}

// takeDictionaryRows permutes the index array of a dictionary column while
// keeping the dictionary's values array untouched and shared, so key width
// and dictionary identity survive the reorder exactly (§4.2 "dictionary
// unification is deliberately avoided").
func takeDictionaryRows(mem memory.Allocator, a *array.Dictionary, order []int) (arrow.Array, error) {
	takenIndices, err := takeRows(mem, a.Indices(), order)
	if err != nil {
		return nil, err
	}
	defer takenIndices.Release()
	return array.NewDictionaryArray(a.DataType(), takenIndices, a.Dictionary()), nil
}
