// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

import (
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/stretchr/testify/require"
)

func buildLogsBatch(t *testing.T, ids []uint16) *OtapBatch {
	t.Helper()
	mem := memory.NewGoAllocator()

	logsSchema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint16},
		{Name: "body", Type: arrow.BinaryTypes.String},
	}, nil)
	idB := array.NewUint16Builder(mem)
	bodyB := array.NewStringBuilder(mem)
	for _, id := range ids {
		idB.Append(id)
		bodyB.Append("line")
	}
	logsRec := array.NewRecord(logsSchema, []arrow.Array{idB.NewArray(), bodyB.NewArray()}, int64(len(ids)))

	attrSchema := arrow.NewSchema([]arrow.Field{
		{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint16},
		{Name: "key", Type: arrow.BinaryTypes.String},
	}, nil)
	parentB := array.NewUint16Builder(mem)
	keyB := array.NewStringBuilder(mem)
	for _, id := range ids {
		parentB.Append(id)
		keyB.Append("k")
	}
	attrRec := array.NewRecord(attrSchema, []arrow.Array{parentB.NewArray(), keyB.NewArray()}, int64(len(ids)))

	b := NewOtapBatch(SignalLogs)
	require.NoError(t, b.Set(PayloadLogs, logsRec))
	require.NoError(t, b.Set(PayloadLogAttrs, attrRec))
	return b
}

func TestValidatePassesForWellFormedBatch(t *testing.T) {
	b := buildLogsBatch(t, []uint16{5, 2, 9})
	require.NoError(t, b.Validate())
}

func TestEncodeThenDecodeRoundTripsLogicalRecords(t *testing.T) {
	b := buildLogsBatch(t, []uint16{5, 2, 9})

	require.NoError(t, b.EncodeTransportOptimizedIDs())
	require.True(t, b.IsTransportOptimized())

	require.NoError(t, b.DecodeTransportOptimizedIDs())
	require.False(t, b.IsTransportOptimized())
	require.NoError(t, b.Validate())

	logs, ok, err := b.Get(PayloadLogs)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3, logs.NumRows())

	attrs, ok, err := b.Get(PayloadLogAttrs)
	require.NoError(t, err)
	require.True(t, ok)

	logIDs, err := readIDColumn(logs, "id")
	require.NoError(t, err)
	attrParents, err := readIDColumn(attrs, "parent_id")
	require.NoError(t, err)

	// Every attribute row's parent_id must reference a surviving log id —
	// the conservation invariant that matters, independent of row order.
	idSet := map[uint64]bool{}
	for _, id := range logIDs {
		idSet[id] = true
	}
	for _, pid := range attrParents {
		require.True(t, idSet[pid])
	}
	require.Len(t, logIDs, 3)
}

func TestEncodeProducesDenseMonotonicIDs(t *testing.T) {
	b := buildLogsBatch(t, []uint16{100, 3, 50})
	require.NoError(t, b.EncodeTransportOptimizedIDs())

	logs, _, err := b.Get(PayloadLogs)
	require.NoError(t, err)

	// Encoded IDs are delta-coded; cumulative sum must be dense 0..N and
	// nondecreasing along the sort key (§4.2 invariants).
	deltas, err := readIDColumn(logs, "id")
	require.NoError(t, err)
	var sum uint64
	seen := map[uint64]bool{}
	for _, d := range deltas {
		sum += d
		require.False(t, seen[sum])
		seen[sum] = true
	}
	require.Len(t, seen, 3)
}

func TestEmptyBatchPassesThroughUnchanged(t *testing.T) {
	b := buildLogsBatch(t, nil)
	require.NoError(t, b.Validate())
	require.EqualValues(t, 0, b.NumItems())
	require.NoError(t, b.EncodeTransportOptimizedIDs())
	require.NoError(t, b.DecodeTransportOptimizedIDs())
}
