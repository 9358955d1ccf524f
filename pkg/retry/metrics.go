// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import "github.com/open-telemetry/otap-dataflow/pkg/pdata"

// Metric name families from §4.4 "Metrics":
//
//   consumed.{success,failure,refused}.{logs,metrics,traces}
//   produced.{success,refused}.{logs,metrics,traces}
//   retry_attempts.{logs,metrics,traces}
//
// consumed.* counts outcomes of requests that entered this processor:
// success on a (possibly relayed) Ack, failure when a NACK is finally
// forwarded upstream after the deadline or a malformed calldata, refused
// when a Nack is received but will be retried. produced.* counts this
// processor's own attempts to hand a payload to the next node: success on a
// successful SendMessage (first forward or re-delivery after a delay),
// refused when that send itself fails.
// retry_attempts counts every scheduled retry (a Nack that leads to a
// delay_data call), not every attempt including the first.
const (
	metricConsumedSuccess = "consumed.success"
	metricConsumedFailure = "consumed.failure"
	metricConsumedRefused = "consumed.refused"
	metricProducedSuccess = "produced.success"
	metricProducedRefused = "produced.refused"
	metricRetryAttempts   = "retry_attempts"
)

func withSignal(base string, sig pdata.SignalType) string {
	return base + "." + sig.String()
}
