// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

import (
	"github.com/open-telemetry/otap-dataflow/pkg/werror"
)

// SelectRoot materializes a new OtapBatch keeping only the root rows where
// keep[i] is true, and recursively keeping only the descendant rows whose
// parent_id chain leads back to a surviving root row (§4.2 "Row selection
// (filter)"). It is used by filter, branch, and conditional processor
// stages (supplemented feature C.3).
//
// The batch must be in plain (non transport-optimized) ID encoding.
func SelectRoot(b *OtapBatch, keep []bool) (*OtapBatch, error) {
	if b.transportOptimized {
		return nil, werror.Wrap(&InvariantViolationError{Detail: "cannot filter a transport-optimized batch"})
	}
	root := RootPayloadType(b.signal)
	out := NewOtapBatch(b.signal)

	survivors := map[PayloadType]map[uint64]struct{}{}

	var selectPayload func(p PayloadType, parentSurvivors map[uint64]struct{}) error
	selectPayload = func(p PayloadType, parentSurvivors map[uint64]struct{}) error {
		rec := b.payloads[p]
		if rec == nil {
			return nil
		}
		var rowKeep []bool
		if p == root {
			rowKeep = keep
		} else {
			parentCol := "parent_id"
			parentIDs, err := readIDColumn(rec, parentCol)
			if err != nil {
				return err
			}
			rowKeep = make([]bool, len(parentIDs))
			for i, pid := range parentIDs {
				_, ok := parentSurvivors[pid]
				rowKeep[i] = ok
			}
		}
		order := rowsWhereTrue(rowKeep)
		reordered, err := reorderRecord(rec, order)
		if err != nil {
			return err
		}
		if err := out.Set(p, reordered); err != nil {
			reordered.Release()
			return err
		}

		if idCol, _, hasID := PrimaryIDColumn(p); hasID {
			ids, err := readIDColumn(reordered, idCol)
			if err != nil {
				return err
			}
			set := make(map[uint64]struct{}, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			survivors[p] = set
		}

		for _, rel := range relationGraph[p].Relations {
			if err := selectPayload(rel.Child, survivors[p]); err != nil {
				return err
			}
		}
		return nil
	}

	if err := selectPayload(root, nil); err != nil {
		return nil, werror.Wrap(err)
	}
	return out, nil
}

func rowsWhereTrue(keep []bool) []int {
	out := make([]int, 0, len(keep))
	for i, k := range keep {
		if k {
			out = append(out, i)
		}
	}
	return out
}
