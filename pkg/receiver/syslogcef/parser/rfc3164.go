// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SyslogMessage is a parsed RFC 3164 ("BSD syslog") message. Priority,
// Facility, Severity, and Timestamp are zero-valued when the corresponding
// optional field was absent from the wire message.
type SyslogMessage struct {
	HasPriority bool
	Priority    int
	Facility    int
	Severity    int

	HasTimestamp bool
	Timestamp    time.Time

	Hostname string

	// Tag is the `appname[pid]` prefix of the message content; ProcID is
	// empty unless the bracketed suffix was present and entirely numeric.
	Tag    string
	ProcID string

	Content string
}

var rfc3164Months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// ParseRFC3164 parses a single BSD syslog line: an optional `<PRI>`
// facility/severity prefix, an optional `Mmm dd hh:mm:ss` timestamp and
// hostname, and a TAG (`appname[pid]:`) prefix on the message content.
// Any field that doesn't match its expected shape is left unset and the
// remainder of the line is treated as Content, rather than failing the
// whole parse — real-world syslog senders diverge from the RFC constantly.
func ParseRFC3164(line string, now time.Time) (SyslogMessage, error) {
	if line == "" {
		return SyslogMessage{}, fmt.Errorf("syslogcef: empty syslog line")
	}
	msg := SyslogMessage{Content: line}
	rest := line

	if strings.HasPrefix(rest, "<") {
		if end := strings.IndexByte(rest, '>'); end > 0 {
			if pri, err := strconv.Atoi(rest[1:end]); err == nil {
				msg.HasPriority = true
				msg.Priority = pri
				msg.Facility = pri / 8
				msg.Severity = pri % 8
				rest = rest[end+1:]
			}
		}
	}

	if ts, tail, ok := parseRFC3164Timestamp(rest, now); ok {
		msg.HasTimestamp = true
		msg.Timestamp = ts
		rest = tail
		if sp := strings.IndexByte(rest, ' '); sp > 0 {
			msg.Hostname = rest[:sp]
			rest = strings.TrimPrefix(rest[sp:], " ")
		}
	}

	msg.Tag, msg.ProcID, rest = parseTag(rest)
	msg.Content = rest
	return msg, nil
}

// parseRFC3164Timestamp matches a leading "Mmm dd hh:mm:ss " stamp and
// returns the remainder of the line after it.
func parseRFC3164Timestamp(s string, now time.Time) (time.Time, string, bool) {
	const stampLen = len("Jan _2 15:04:05")
	if len(s) < stampLen {
		return time.Time{}, s, false
	}
	month, ok := rfc3164Months[s[0:3]]
	if !ok || s[3] != ' ' {
		return time.Time{}, s, false
	}
	t, err := time.Parse("Jan _2 15:04:05", s[0:stampLen])
	if err != nil {
		return time.Time{}, s, false
	}
	t = time.Date(now.Year(), month, t.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location())
	tail := s[stampLen:]
	if len(tail) > 0 && tail[0] == ' ' {
		tail = tail[1:]
	}
	return t, tail, true
}

// parseTag extracts a leading `appname[pid]: ` or `appname: ` tag. pid is
// only kept when the bracketed suffix is entirely numeric, per §6's "TAG
// parsing ... with numeric-only proc-id".
func parseTag(s string) (tag, procID, content string) {
	colon := strings.IndexByte(s, ':')
	if colon <= 0 {
		return "", "", s
	}
	candidate := s[:colon]
	content = strings.TrimPrefix(s[colon+1:], " ")

	if open := strings.IndexByte(candidate, '['); open > 0 && strings.HasSuffix(candidate, "]") {
		pid := candidate[open+1 : len(candidate)-1]
		if isAllDigits(pid) {
			return candidate[:open], pid, content
		}
	}
	if isValidTagName(candidate) {
		return candidate, "", content
	}
	return "", "", s
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isValidTagName rejects candidates containing spaces, since those are
// almost certainly not a TAG but the start of free-form message content.
func isValidTagName(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, " \t")
}
