// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pdata

// IDWidth is the bit width of a primary/parent identifier column.
type IDWidth uint8

const (
	IDWidth16 IDWidth = 16
	IDWidth32 IDWidth = 32
)

// Relation is a compile-time declaration of one parent -> child edge in the
// payload type graph: the parent's primary_id column feeds the child's
// parent_id column. The relation graph is the sole oracle for which columns
// are identifier columns (§4.2 invariants); no other code should name ID
// columns directly.
type Relation struct {
	Child         PayloadType
	ParentIDCol   string
	ChildWidth    IDWidth
}

// payloadSchema describes one payload type's identifier column (if it has
// one) and its declared child relations. Payload types with no primary_id
// column (leaf attribute payloads that are never themselves a parent) have
// an empty Relations slice.
type payloadSchema struct {
	PrimaryIDCol string
	PrimaryWidth IDWidth
	Relations    []Relation
}

// relationGraph is the single source of truth described in §3.2.
// assertNoCycles in init() panics if it contains a cycle; it does not check
// how many parents a payload type has. ResourceAttrs and ScopeAttrs are
// listed under each of the three signal roots, so within one signal's batch
// each of them has a single parent.
var relationGraph = map[PayloadType]payloadSchema{
	PayloadLogs: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth16,
		Relations: []Relation{
			{Child: PayloadLogAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadResourceAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadScopeAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
		},
	},
	PayloadSpans: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth16,
		Relations: []Relation{
			{Child: PayloadSpanAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadSpanEvents, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadSpanLinks, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadResourceAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadScopeAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
		},
	},
	PayloadSpanEvents: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadSpanEventAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadSpanLinks: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadSpanLinkAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadUnivariateMetrics: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth16,
		Relations: []Relation{
			{Child: PayloadMetricAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadNumberDataPoints, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadSummaryDataPoints, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadHistogramDataPoints, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadExpHistogramDataPoints, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadResourceAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
			{Child: PayloadScopeAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth16},
		},
	},
	PayloadNumberDataPoints: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadNumberDpAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
			{Child: PayloadNumberDpExemplars, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadNumberDpExemplars: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadNumberDpExemplarAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadSummaryDataPoints: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadSummaryDpAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadHistogramDataPoints: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadHistogramDpAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
			{Child: PayloadHistogramDpExemplars, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadHistogramDpExemplars: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadHistogramDpExemplarAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadExpHistogramDataPoints: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadExpHistogramDpAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
			{Child: PayloadExpHistogramDpExemplars, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
	PayloadExpHistogramDpExemplars: {
		PrimaryIDCol: "id", PrimaryWidth: IDWidth32,
		Relations: []Relation{
			{Child: PayloadExpHistogramDpExemplarAttrs, ParentIDCol: "parent_id", ChildWidth: IDWidth32},
		},
	},
}

func init() {
	assertNoCycles()
}

// assertNoCycles walks the declared graph and panics on a repeated visit,
// enforcing the "relation graph is a DAG" invariant of §9 at package init
// rather than silently tolerating a malformed table.
func assertNoCycles() {
	visiting := map[PayloadType]bool{}
	var visit func(PayloadType)
	visit = func(p PayloadType) {
		if visiting[p] {
			panic("pdata: relation graph has a cycle at " + p.String())
		}
		visiting[p] = true
		for _, rel := range relationGraph[p].Relations {
			visit(rel.Child)
		}
		visiting[p] = false
	}
	for p := range relationGraph {
		visit(p)
	}
}

// ChildrenOf returns the declared child relations of a payload type, or nil
// if it has none (a leaf payload).
func ChildrenOf(p PayloadType) []Relation {
	return relationGraph[p].Relations
}

// PrimaryIDColumn returns the primary identifier column name and width for
// a payload type, and whether it has one at all.
func PrimaryIDColumn(p PayloadType) (col string, width IDWidth, ok bool) {
	schema, found := relationGraph[p]
	if !found || schema.PrimaryIDCol == "" {
		return "", 0, false
	}
	return schema.PrimaryIDCol, schema.PrimaryWidth, true
}
