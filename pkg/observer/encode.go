// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package observer

import (
	"fmt"
	"strings"
)

// Encode renders an Event as a single structured line: `kind
// group=.. pipeline=.. core=.. [node=.. kind=..] message` followed by the
// structured error's own Error() text when present. This keeps event
// formatting in one place instead of scattering ad hoc fmt.Sprintf calls
// across every caller that logs an observed event (supplemented feature
// C.6, grounded on the self-tracing encoder of the original engine).
func Encode(e Event) string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	fmt.Fprintf(&sb, " group=%s pipeline=%s core=%d", e.GroupID, e.PipelineID, e.CoreID)
	if e.Node != nil {
		fmt.Fprintf(&sb, " node=%s kind=%s", e.Node.NodeID, e.Node.NodeKind)
	}
	if e.Message != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Message)
	}
	if e.StructuredErr != nil {
		sb.WriteString(": ")
		sb.WriteString(e.StructuredErr.Error())
	}
	return sb.String()
}

// Fields returns the event as zap-ready key/value pairs, for callers that
// want structured logging rather than Encode's flat line.
func Fields(e Event) []any {
	fields := []any{
		"kind", string(e.Kind),
		"group", e.GroupID,
		"pipeline", e.PipelineID,
		"core", e.CoreID,
	}
	if e.Node != nil {
		fields = append(fields, "node", e.Node.NodeID, "node_kind", e.Node.NodeKind)
	}
	if e.Message != "" {
		fields = append(fields, "message", e.Message)
	}
	if e.StructuredErr != nil {
		fields = append(fields, "error", e.StructuredErr.Error())
	}
	return fields
}
