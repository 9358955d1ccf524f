// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

// OtlpProtoBytes is raw OTLP ExportRequest protobuf bytes tagged by signal,
// passed through receivers/exporters that don't need to touch the Arrow
// representation (§3.4).
type OtlpProtoBytes struct {
	Signal SignalType
	Bytes  []byte
}

// PayloadKind discriminates the three Payload variants carried by a Pdata.
type PayloadKind uint8

const (
	PayloadKindOtap PayloadKind = iota
	PayloadKindOtlpProtoBytes
	PayloadKindOtlpDecoded
)

// Payload is the sum type `OtapBatch | OtlpProtoBytes | OTLP-decoded
// structure` described in §3.4. Decoded is an opaque `any` because the
// concrete OTLP pdata types (plog.Logs / pmetric.Metrics / ptrace.Traces)
// live in the collector pdata package and this package must not import
// node-facing collector types.
type Payload struct {
	Kind    PayloadKind
	Otap    *OtapBatch
	Proto   *OtlpProtoBytes
	Decoded any
}

// OtapPayload wraps an OtapBatch as a Payload.
func OtapPayload(b *OtapBatch) Payload {
	return Payload{Kind: PayloadKindOtap, Otap: b}
}

// ProtoPayload wraps raw OTLP protobuf bytes as a Payload.
func ProtoPayload(p OtlpProtoBytes) Payload {
	return Payload{Kind: PayloadKindOtlpProtoBytes, Proto: &p}
}

// DecodedPayload wraps an already-decoded OTLP structure as a Payload.
func DecodedPayload(v any) Payload {
	return Payload{Kind: PayloadKindOtlpDecoded, Decoded: v}
}

// IsEmpty reports whether the payload carries no data at all — used by the
// retry processor's NACK validation (§4.4 step 1) and by boundary-case
// handling of empty batches (§8).
func (p Payload) IsEmpty() bool {
	switch p.Kind {
	case PayloadKindOtap:
		return p.Otap == nil || p.Otap.NumItems() == 0
	case PayloadKindOtlpProtoBytes:
		return p.Proto == nil || len(p.Proto.Bytes) == 0
	default:
		return p.Decoded == nil
	}
}

// SignalOf reports which signal a payload carries, for components (like the
// retry processor's metrics) that need to label by signal without caring
// about the wire representation. OTLP-decoded payloads have no Signal field
// of their own in this package, so they report SignalUnknown.
func (p Payload) SignalOf() SignalType {
	switch p.Kind {
	case PayloadKindOtap:
		if p.Otap != nil {
			return p.Otap.SignalType()
		}
	case PayloadKindOtlpProtoBytes:
		if p.Proto != nil {
			return p.Proto.Signal
		}
	}
	return SignalUnknown
}

// Pdata is the in-flight message envelope: a Context stack of interest
// frames plus a Payload (§3.4).
type Pdata struct {
	Context Context
	Payload Payload
}

// NewDefaultPdata wraps a payload with an empty context (§4.2 `new_default`).
func NewDefaultPdata(p Payload) Pdata {
	return Pdata{Payload: p}
}

// IntoParts splits a Pdata into its Context and Payload (§4.2 `into_parts`).
func (p Pdata) IntoParts() (Context, Payload) {
	return p.Context, p.Payload
}

// IntoPartsMut returns pointers to the Context and Payload so a node may
// mutate them in place (e.g. to push an interest frame) without copying the
// payload (§4.2 `into_parts_mut`).
func (p *Pdata) IntoPartsMut() (*Context, *Payload) {
	return &p.Context, &p.Payload
}
