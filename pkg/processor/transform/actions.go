// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package transform

import "go.opentelemetry.io/collector/pdata/plog"

// Action is a single mutation applied to a log record by a matched branch
// (or the default fallthrough).
type Action struct {
	RenameFrom string
	RenameTo   string
}

// RenameAttr builds an Action that renames an attribute key, preserving its
// value, dropping the old key if present.
func RenameAttr(from, to string) Action { return Action{RenameFrom: from, RenameTo: to} }

func apply(actions []Action, rec plog.LogRecord) {
	for _, a := range actions {
		if a.RenameFrom == "" {
			continue
		}
		v, ok := rec.Attributes().Get(a.RenameFrom)
		if !ok {
			continue
		}
		rec.Attributes().PutStr(a.RenameTo, v.Str())
		rec.Attributes().Remove(a.RenameFrom)
	}
}
