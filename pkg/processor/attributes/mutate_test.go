// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package attributes_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/open-telemetry/otap-dataflow/pkg/processor/attributes"
)

// TestAttributeDelete exercises scenario S5: deleting k1 from both resource
// and per-record attributes leaves {k2} on the resource and {k3} on the
// record, with deleted_entries counted once per removed key.
func TestAttributeDelete(t *testing.T) {
	cfg := attributes.Config{
		ApplyTo: []attributes.Scope{attributes.ScopeResource, attributes.ScopeSignal},
		Delete:  []string{"k1"},
	}
	require.NoError(t, cfg.Validate())

	logs := plog.NewLogs()
	rl := logs.ResourceLogs().AppendEmpty()
	rl.Resource().Attributes().PutStr("k1", "v1")
	rl.Resource().Attributes().PutStr("k2", "v2")
	sl := rl.ScopeLogs().AppendEmpty()
	lr := sl.LogRecords().AppendEmpty()
	lr.Attributes().PutStr("k1", "v1")
	lr.Attributes().PutStr("k3", "v3")

	deleted := attributes.MutateLogsForTest(&cfg, logs)
	require.Equal(t, 2, deleted)

	resAttrs := logs.ResourceLogs().At(0).Resource().Attributes()
	require.Equal(t, 1, resAttrs.Len())
	_, hasK2 := resAttrs.Get("k2")
	require.True(t, hasK2)

	recAttrs := logs.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0).Attributes()
	require.Equal(t, 1, recAttrs.Len())
	_, hasK3 := recAttrs.Get("k3")
	require.True(t, hasK3)
}
