// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package otlpbridge converts between the wire-level
// pdata.OtlpProtoBytes/PayloadKindOtlpDecoded representations and the
// concrete go.opentelemetry.io/collector/pdata OTLP types (plog/pmetric/
// ptrace), for receivers and exporters that need to operate at OTLP
// semantic level rather than on the raw Arrow-columnar OtapBatch (§3.4,
// domain stack B).
package otlpbridge

import (
	"fmt"

	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

var (
	logsUnmarshaler    = &plog.ProtoUnmarshaler{}
	logsMarshaler      = &plog.ProtoMarshaler{}
	metricsUnmarshaler = &pmetric.ProtoUnmarshaler{}
	metricsMarshaler   = &pmetric.ProtoMarshaler{}
	tracesUnmarshaler  = &ptrace.ProtoUnmarshaler{}
	tracesMarshaler    = &ptrace.ProtoMarshaler{}
)

// Decode turns raw OTLP ExportRequest protobuf bytes into a
// PayloadKindOtlpDecoded payload carrying the matching plog/pmetric/ptrace
// type, for processors (attributes, transform) that mutate at OTLP
// semantic level.
func Decode(proto pdata.OtlpProtoBytes) (pdata.Payload, error) {
	switch proto.Signal {
	case pdata.SignalLogs:
		logs, err := logsUnmarshaler.UnmarshalLogs(proto.Bytes)
		if err != nil {
			return pdata.Payload{}, fmt.Errorf("otlpbridge: unmarshal logs: %w", err)
		}
		return pdata.DecodedPayload(logs), nil
	case pdata.SignalMetrics:
		metrics, err := metricsUnmarshaler.UnmarshalMetrics(proto.Bytes)
		if err != nil {
			return pdata.Payload{}, fmt.Errorf("otlpbridge: unmarshal metrics: %w", err)
		}
		return pdata.DecodedPayload(metrics), nil
	case pdata.SignalTraces:
		traces, err := tracesUnmarshaler.UnmarshalTraces(proto.Bytes)
		if err != nil {
			return pdata.Payload{}, fmt.Errorf("otlpbridge: unmarshal traces: %w", err)
		}
		return pdata.DecodedPayload(traces), nil
	default:
		return pdata.Payload{}, fmt.Errorf("otlpbridge: unknown signal %v", proto.Signal)
	}
}

// Encode serializes a PayloadKindOtlpDecoded payload back to raw OTLP
// ExportRequest protobuf bytes, tagged by signal, for exporters that ship
// over the OTLP gRPC wire protocol rather than OTAP Arrow streaming.
func Encode(p pdata.Payload) (pdata.OtlpProtoBytes, error) {
	if p.Kind != pdata.PayloadKindOtlpDecoded {
		return pdata.OtlpProtoBytes{}, fmt.Errorf("otlpbridge: payload is not OTLP-decoded")
	}
	switch v := p.Decoded.(type) {
	case plog.Logs:
		b, err := logsMarshaler.MarshalLogs(v)
		if err != nil {
			return pdata.OtlpProtoBytes{}, fmt.Errorf("otlpbridge: marshal logs: %w", err)
		}
		return pdata.OtlpProtoBytes{Signal: pdata.SignalLogs, Bytes: b}, nil
	case pmetric.Metrics:
		b, err := metricsMarshaler.MarshalMetrics(v)
		if err != nil {
			return pdata.OtlpProtoBytes{}, fmt.Errorf("otlpbridge: marshal metrics: %w", err)
		}
		return pdata.OtlpProtoBytes{Signal: pdata.SignalMetrics, Bytes: b}, nil
	case ptrace.Traces:
		b, err := tracesMarshaler.MarshalTraces(v)
		if err != nil {
			return pdata.OtlpProtoBytes{}, fmt.Errorf("otlpbridge: marshal traces: %w", err)
		}
		return pdata.OtlpProtoBytes{Signal: pdata.SignalTraces, Bytes: b}, nil
	default:
		return pdata.OtlpProtoBytes{}, fmt.Errorf("otlpbridge: unsupported decoded type %T", v)
	}
}
