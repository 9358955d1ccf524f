// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package transform_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/open-telemetry/otap-dataflow/pkg/processor/transform"
)

func twoSeverityLogs() plog.Logs {
	logs := plog.NewLogs()
	rl := logs.ResourceLogs().AppendEmpty()
	sl := rl.ScopeLogs().AppendEmpty()

	errRec := sl.LogRecords().AppendEmpty()
	errRec.SetSeverityText("ERROR")
	errRec.Attributes().PutStr("x", "boom")

	infoRec := sl.LogRecords().AppendEmpty()
	infoRec.SetSeverityText("INFO")
	infoRec.Attributes().PutStr("x", "fine")

	return logs
}

// TestFilterKeepsOnlyMatching exercises scenario S3: a KQL-style filter
// query keeps only records whose severity_text matches, dropping the rest.
func TestFilterKeepsOnlyMatching(t *testing.T) {
	cfg := transform.Config{Query: `logs | where severity_text == "ERROR"`}
	require.NoError(t, cfg.Validate())

	logs := twoSeverityLogs()
	_, consumed, forwarded := transform.TransformLogsForTest(&cfg, logs)
	require.Equal(t, 2, consumed)
	require.Equal(t, 1, forwarded)

	recs := logs.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords()
	require.Equal(t, 1, recs.Len())
	require.Equal(t, "ERROR", recs.At(0).SeverityText())
}

// TestConditionalBranchRenamesByCondition exercises scenario S4: records
// matching a branch condition get that branch's rename action; everything
// else falls through to the default rename.
func TestConditionalBranchRenamesByCondition(t *testing.T) {
	errCond, err := transform.ParseCondition(`severity_text == "ERROR"`)
	require.NoError(t, err)

	cfg := transform.Config{
		Branches: []transform.Branch{
			{Condition: errCond, Actions: []transform.Action{transform.RenameAttr("x", "y")}},
		},
		Default: []transform.Action{transform.RenameAttr("x", "z")},
	}
	require.NoError(t, cfg.Validate())

	logs := twoSeverityLogs()
	transformed, consumed, forwarded := transform.TransformLogsForTest(&cfg, logs)
	require.Equal(t, 2, consumed)
	require.Equal(t, 2, forwarded)
	require.Equal(t, 2, transformed)

	recs := logs.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords()
	errRec := recs.At(0)
	v, ok := errRec.Attributes().Get("y")
	require.True(t, ok)
	require.Equal(t, "boom", v.Str())
	_, hasOldKey := errRec.Attributes().Get("x")
	require.False(t, hasOldKey)

	infoRec := recs.At(1)
	v, ok = infoRec.Attributes().Get("z")
	require.True(t, ok)
	require.Equal(t, "fine", v.Str())
}
