// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package pdata implements the columnar OTAP batch model: a tagged union of
// Arrow record batches grouped by signal, the compile-time parent/child
// relation graph between payload types, and the transport-optimized
// identifier encodings used on the wire.
package pdata

import "fmt"

// SignalType identifies which of the three OTAP batch variants a batch carries.
type SignalType uint8

const (
	SignalUnknown SignalType = iota
	SignalLogs
	SignalMetrics
	SignalTraces
)

func (s SignalType) String() string {
	switch s {
	case SignalLogs:
		return "logs"
	case SignalMetrics:
		return "metrics"
	case SignalTraces:
		return "traces"
	default:
		return "unknown"
	}
}

// PayloadType is a member of the closed enum of Arrow schemas an OTAP batch
// may carry. The numeric value is the slot index into OtapBatch.payloads;
// it must never be renumbered without updating payloadSlotCount and the
// relation graph below.
type PayloadType int

const (
	PayloadUnknown PayloadType = iota

	// Logs signal.
	PayloadLogs
	PayloadLogAttrs
	PayloadResourceAttrs
	PayloadScopeAttrs

	// Traces signal.
	PayloadSpans
	PayloadSpanAttrs
	PayloadSpanEvents
	PayloadSpanEventAttrs
	PayloadSpanLinks
	PayloadSpanLinkAttrs

	// Metrics signal.
	PayloadUnivariateMetrics
	PayloadMetricAttrs
	PayloadNumberDataPoints
	PayloadNumberDpAttrs
	PayloadNumberDpExemplars
	PayloadNumberDpExemplarAttrs
	PayloadSummaryDataPoints
	PayloadSummaryDpAttrs
	PayloadHistogramDataPoints
	PayloadHistogramDpAttrs
	PayloadHistogramDpExemplars
	PayloadHistogramDpExemplarAttrs
	PayloadExpHistogramDataPoints
	PayloadExpHistogramDpAttrs
	PayloadExpHistogramDpExemplars
	PayloadExpHistogramDpExemplarAttrs

	payloadSlotCount // sentinel, must remain last
)

func (p PayloadType) String() string {
	if s, ok := payloadNames[p]; ok {
		return s
	}
	return fmt.Sprintf("payload(%d)", int(p))
}

var payloadNames = map[PayloadType]string{
	PayloadLogs:                        "Logs",
	PayloadLogAttrs:                    "LogAttrs",
	PayloadResourceAttrs:               "ResourceAttrs",
	PayloadScopeAttrs:                  "ScopeAttrs",
	PayloadSpans:                       "Spans",
	PayloadSpanAttrs:                   "SpanAttrs",
	PayloadSpanEvents:                  "SpanEvents",
	PayloadSpanEventAttrs:              "SpanEventAttrs",
	PayloadSpanLinks:                   "SpanLinks",
	PayloadSpanLinkAttrs:               "SpanLinkAttrs",
	PayloadUnivariateMetrics:           "UnivariateMetrics",
	PayloadMetricAttrs:                 "MetricAttrs",
	PayloadNumberDataPoints:            "NumberDataPoints",
	PayloadNumberDpAttrs:               "NumberDpAttrs",
	PayloadNumberDpExemplars:           "NumberDpExemplars",
	PayloadNumberDpExemplarAttrs:       "NumberDpExemplarAttrs",
	PayloadSummaryDataPoints:           "SummaryDataPoints",
	PayloadSummaryDpAttrs:              "SummaryDpAttrs",
	PayloadHistogramDataPoints:         "HistogramDataPoints",
	PayloadHistogramDpAttrs:            "HistogramDpAttrs",
	PayloadHistogramDpExemplars:        "HistogramDpExemplars",
	PayloadHistogramDpExemplarAttrs:    "HistogramDpExemplarAttrs",
	PayloadExpHistogramDataPoints:      "ExpHistogramDataPoints",
	PayloadExpHistogramDpAttrs:         "ExpHistogramDpAttrs",
	PayloadExpHistogramDpExemplars:     "ExpHistogramDpExemplars",
	PayloadExpHistogramDpExemplarAttrs: "ExpHistogramDpExemplarAttrs",
}

// signalPayloads is the closed set of payload types permitted for each
// signal variant (§3.1 invariant 1).
var signalPayloads = map[SignalType]map[PayloadType]bool{
	SignalLogs: setOf(
		PayloadLogs, PayloadLogAttrs, PayloadResourceAttrs, PayloadScopeAttrs,
	),
	SignalTraces: setOf(
		PayloadSpans, PayloadSpanAttrs, PayloadSpanEvents, PayloadSpanEventAttrs,
		PayloadSpanLinks, PayloadSpanLinkAttrs, PayloadResourceAttrs, PayloadScopeAttrs,
	),
	SignalMetrics: setOf(
		PayloadUnivariateMetrics, PayloadMetricAttrs,
		PayloadNumberDataPoints, PayloadNumberDpAttrs, PayloadNumberDpExemplars, PayloadNumberDpExemplarAttrs,
		PayloadSummaryDataPoints, PayloadSummaryDpAttrs,
		PayloadHistogramDataPoints, PayloadHistogramDpAttrs, PayloadHistogramDpExemplars, PayloadHistogramDpExemplarAttrs,
		PayloadExpHistogramDataPoints, PayloadExpHistogramDpAttrs, PayloadExpHistogramDpExemplars, PayloadExpHistogramDpExemplarAttrs,
		PayloadResourceAttrs, PayloadScopeAttrs,
	),
}

func setOf(ps ...PayloadType) map[PayloadType]bool {
	m := make(map[PayloadType]bool, len(ps))
	for _, p := range ps {
		m[p] = true
	}
	return m
}

// AllowedForSignal reports whether payload type p may appear in a batch of
// the given signal (§3.1 invariant 1).
func AllowedForSignal(s SignalType, p PayloadType) bool {
	allowed, ok := signalPayloads[s]
	if !ok {
		return false
	}
	return allowed[p]
}

// RootPayloadType returns the payload type whose rows are the root records
// counted by OtapBatch.NumItems for a given signal.
func RootPayloadType(s SignalType) PayloadType {
	switch s {
	case SignalLogs:
		return PayloadLogs
	case SignalTraces:
		return PayloadSpans
	case SignalMetrics:
		return PayloadUnivariateMetrics
	default:
		return PayloadUnknown
	}
}
