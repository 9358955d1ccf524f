// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"time"

	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// CallData slot layout for RetryState (§4.4 "Per-request state"). Signal is
// carried alongside retries/deadline so that handle_ack — which receives no
// payload, only calldata — can still label the consumed.success metric by
// signal.
const (
	slotRetries  = 0
	slotDeadline = 1
	slotSignal   = 2
)

// RetryState is the per-request state threaded through the interest
// frame's CallData across ACK/NACK boundaries.
type RetryState struct {
	Retries  uint64
	Deadline time.Time
	Signal   pdata.SignalType
}

// Encode packs RetryState into a fresh CallData value.
func (s RetryState) Encode() pdata.CallData {
	var cd pdata.CallData
	cd.SetUint(slotRetries, s.Retries)
	cd.SetFloat(slotDeadline, float64(s.Deadline.UnixNano())/1e9)
	cd.SetUint(slotSignal, uint64(s.Signal))
	return cd
}

// DecodeRetryState unpacks RetryState from CallData. ok is false if any slot
// is missing or the wrong kind — "calldata malformed" in §4.4 step 1.
func DecodeRetryState(cd pdata.CallData) (RetryState, bool) {
	retries, ok1 := cd.Uint(slotRetries)
	deadlineSecs, ok2 := cd.Float(slotDeadline)
	signal, ok3 := cd.Uint(slotSignal)
	if !ok1 || !ok2 || !ok3 {
		return RetryState{}, false
	}
	sec := int64(deadlineSecs)
	nsec := int64((deadlineSecs - float64(sec)) * 1e9)
	return RetryState{
		Retries:  retries,
		Deadline: time.Unix(sec, nsec),
		Signal:   pdata.SignalType(signal),
	}, true
}
