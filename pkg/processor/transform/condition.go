// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package transform implements the conditional branch / KQL-style filter
// stage, grounded on the original implementation's transform_processor and
// conditional evaluator: a minimal query pipeline ("logs | where field ==
// \"value\"") used for filtering, plus a branch table of
// condition-to-action mappings with a default fallthrough.
package transform

import (
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/collector/pdata/plog"
)

// Condition is a single equality test against a known log-record field.
// The field set is intentionally small — severity_text is the only field
// the example queries and branch tables reference — rather than a general
// expression evaluator.
type Condition struct {
	Field string
	Value string
}

// Eval reports whether rec's named field equals Value.
func (c Condition) Eval(rec plog.LogRecord) bool {
	switch c.Field {
	case "severity_text":
		return rec.SeverityText() == c.Value
	default:
		return false
	}
}

var whereRE = regexp.MustCompile(`^where\s+(\w+)\s*==\s*"([^"]*)"$`)
var conditionRE = regexp.MustCompile(`^(\w+)\s*==\s*"([^"]*)"$`)

// ParseQuery parses a one-line query pipeline of the form
// `logs | where severity_text == "ERROR"` into a Condition that keeps only
// matching records. The leading source segment (`logs`) is validated but
// otherwise unused — this engine only ever transforms one signal per node.
func ParseQuery(query string) (Condition, error) {
	stages := strings.Split(query, "|")
	if len(stages) < 2 {
		return Condition{}, fmt.Errorf("transform: query %q has no pipeline stages", query)
	}
	if src := strings.TrimSpace(stages[0]); src != "logs" {
		return Condition{}, fmt.Errorf("transform: unsupported query source %q", src)
	}
	where := strings.TrimSpace(stages[1])
	m := whereRE.FindStringSubmatch(where)
	if m == nil {
		return Condition{}, fmt.Errorf("transform: unrecognized filter stage %q", where)
	}
	return Condition{Field: m[1], Value: m[2]}, nil
}

// ParseCondition parses a bare `field == "value"` expression, the form used
// by branch conditions (no pipeline/source prefix).
func ParseCondition(expr string) (Condition, error) {
	m := conditionRE.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return Condition{}, fmt.Errorf("transform: unrecognized condition %q", expr)
	}
	return Condition{Field: m[1], Value: m[2]}, nil
}
