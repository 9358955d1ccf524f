// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

import (
	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"

	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// readIDColumn materializes an identifier column (UInt16 or UInt32) as a
// slice of uint64 regardless of width, honoring Arrow null slots as zero
// (an ID column is never nullable in the canonical schema, but tolerating
// it here keeps Validate from panicking on malformed input).
func readIDColumn(rec arrow.Record, name string) ([]uint64, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, werror.Wrap(&ColumnNotFoundError{Column: name})
	}
	col := rec.Column(idx[0])
	out := make([]uint64, col.Len())
	switch arr := col.(type) {
	case *array.Uint16:
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				out[i] = uint64(arr.Value(i))
			}
		}
	case *array.Uint32:
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				out[i] = uint64(arr.Value(i))
			}
		}
	default:
		return nil, werror.Wrap(&ColumnDataTypeMismatchError{
			Column: name, Expected: "uint16 or uint32", Actual: col.DataType().Name(),
		})
	}
	return out, nil
}

// buildIDColumn constructs a fresh UInt16 or UInt32 array from plain values,
// used when writing remapped IDs back after decode/encode transforms.
func buildIDColumn(mem memory.Allocator, values []uint64, width IDWidth) (arrow.Array, error) {
	switch width {
	case IDWidth16:
		b := array.NewUint16Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v > 0xFFFF {
				return nil, werror.Wrap(&ColumnDataTypeMismatchError{Expected: "uint16", Actual: "overflow"})
			}
			b.Append(uint16(v))
		}
		return b.NewArray(), nil
	case IDWidth32:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v > 0xFFFFFFFF {
				return nil, werror.Wrap(&ColumnDataTypeMismatchError{Expected: "uint32", Actual: "overflow"})
			}
			b.Append(uint32(v))
		}
		return b.NewArray(), nil
	default:
		return nil, werror.Wrap(&ColumnDataTypeMismatchError{Expected: "uint16 or uint32", Actual: "unknown width"})
	}
}

// replaceColumn returns a new record with the named column's array swapped
// out, preserving every other column and the schema's field order.
func replaceColumn(rec arrow.Record, name string, newCol arrow.Array) (arrow.Record, error) {
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, werror.Wrap(&ColumnNotFoundError{Column: name})
	}
	cols := make([]arrow.Array, rec.NumCols())
	copy(cols, rec.Columns())
	cols[idx[0]] = newCol
	return array.NewRecord(rec.Schema(), cols, rec.NumRows()), nil
}
