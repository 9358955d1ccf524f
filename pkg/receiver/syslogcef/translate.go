// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package syslogcef

import (
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/open-telemetry/otap-dataflow/pkg/receiver/syslogcef/parser"
)

// translateLine parses one wire line as RFC 3164 syslog, further decoding
// its content as CEF when it carries the `CEF:` prefix, and appends the
// result as a single log record to logs.
func translateLine(line string, now time.Time, logs plog.Logs) {
	sys, err := parser.ParseRFC3164(line, now)
	if err != nil {
		return
	}

	rl := logs.ResourceLogs().AppendEmpty()
	if sys.Hostname != "" {
		rl.Resource().Attributes().PutStr("host.name", sys.Hostname)
	}
	sl := rl.ScopeLogs().AppendEmpty()
	rec := sl.LogRecords().AppendEmpty()

	ts := now
	if sys.HasTimestamp {
		ts = sys.Timestamp
	}
	rec.SetTimestamp(pcommon.NewTimestampFromTime(ts))
	rec.SetObservedTimestamp(pcommon.NewTimestampFromTime(now))
	rec.Body().SetStr(sys.Content)

	attrs := rec.Attributes()
	if sys.HasPriority {
		attrs.PutInt("syslog.facility", int64(sys.Facility))
		attrs.PutInt("syslog.severity", int64(sys.Severity))
		rec.SetSeverityNumber(syslogSeverityToOTel(sys.Severity))
		rec.SetSeverityText(syslogSeverityText(sys.Severity))
	}
	if sys.Tag != "" {
		attrs.PutStr("syslog.appname", sys.Tag)
	}
	if sys.ProcID != "" {
		attrs.PutStr("syslog.procid", sys.ProcID)
	}

	if strings.HasPrefix(sys.Content, "CEF:") {
		if cef, err := parser.ParseCEF(sys.Content); err == nil {
			applyCEF(cef, rec)
		}
	}
}

func applyCEF(cef parser.CEFMessage, rec plog.LogRecord) {
	rec.Body().SetStr(cef.Name)
	attrs := rec.Attributes()
	attrs.PutStr("cef.device_vendor", cef.DeviceVendor)
	attrs.PutStr("cef.device_product", cef.DeviceProduct)
	attrs.PutStr("cef.device_version", cef.DeviceVersion)
	attrs.PutStr("cef.device_event_class_id", cef.DeviceEventClassID)
	attrs.PutStr("cef.severity", cef.Severity)
	for _, ext := range cef.Extensions {
		attrs.PutStr("cef.ext."+ext.Key, ext.Value)
	}
}

// syslogSeverityToOTel maps an RFC 3164 severity (0-7, most to least
// severe) onto the OTel log severity number scale.
func syslogSeverityToOTel(sev int) plog.SeverityNumber {
	switch sev {
	case 0, 1, 2:
		return plog.SeverityNumberFatal
	case 3:
		return plog.SeverityNumberError
	case 4:
		return plog.SeverityNumberWarn
	case 5, 6:
		return plog.SeverityNumberInfo
	case 7:
		return plog.SeverityNumberDebug
	default:
		return plog.SeverityNumberUnspecified
	}
}

var syslogSeverityNames = map[int]string{
	0: "emerg", 1: "alert", 2: "crit", 3: "err",
	4: "warning", 5: "notice", 6: "info", 7: "debug",
}

func syslogSeverityText(sev int) string {
	if s, ok := syslogSeverityNames[sev]; ok {
		return s
	}
	return strconv.Itoa(sev)
}
