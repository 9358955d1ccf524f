// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package exporter_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/open-telemetry/otap-dataflow/pkg/exporter"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

func TestDebugSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := exporter.NewDebugSink(exporter.DebugConfig{Path: path})
	require.NoError(t, err)

	logs := plog.NewLogs()
	rl := logs.ResourceLogs().AppendEmpty()
	sl := rl.ScopeLogs().AppendEmpty()
	sl.LogRecords().AppendEmpty()
	sl.LogRecords().AppendEmpty()

	require.NoError(t, sink.Write(pdata.NewDefaultPdata(pdata.DecodedPayload(logs))))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var summary exporter.BatchSummary
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &summary))
	require.Equal(t, "logs", summary.Signal)
	require.Equal(t, 1, summary.ResourceRecords)
	require.Equal(t, 1, summary.ScopeRecords)
	require.Equal(t, 2, summary.RootRecords)
}
