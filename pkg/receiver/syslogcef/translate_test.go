// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package syslogcef

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"
)

func TestTranslateLinePlainSyslog(t *testing.T) {
	now := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	logs := plog.NewLogs()
	translateLine("<34>Oct 11 22:14:15 mymachine su[1234]: 'su root' failed for lonvick", now, logs)

	require.Equal(t, 1, logs.LogRecordCount())
	rl := logs.ResourceLogs().At(0)
	host, ok := rl.Resource().Attributes().Get("host.name")
	require.True(t, ok)
	require.Equal(t, "mymachine", host.Str())

	rec := rl.ScopeLogs().At(0).LogRecords().At(0)
	require.Equal(t, "'su root' failed for lonvick", rec.Body().Str())
	require.Equal(t, "crit", rec.SeverityText())
	appname, ok := rec.Attributes().Get("syslog.appname")
	require.True(t, ok)
	require.Equal(t, "su", appname.Str())
	procID, ok := rec.Attributes().Get("syslog.procid")
	require.True(t, ok)
	require.Equal(t, "1234", procID.Str())
}

func TestTranslateLineEmbeddedCEF(t *testing.T) {
	now := time.Now()
	logs := plog.NewLogs()
	line := `<13>Jan  1 00:00:00 host app: CEF:0|Security|threatmanager|1.0|100|worm stopped|10|src=10.0.0.1`
	translateLine(line, now, logs)

	require.Equal(t, 1, logs.LogRecordCount())
	rec := logs.ResourceLogs().At(0).ScopeLogs().At(0).LogRecords().At(0)
	require.Equal(t, "worm stopped", rec.Body().Str())
	vendor, ok := rec.Attributes().Get("cef.device_vendor")
	require.True(t, ok)
	require.Equal(t, "Security", vendor.Str())
	src, ok := rec.Attributes().Get("cef.ext.src")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1", src.Str())
}
