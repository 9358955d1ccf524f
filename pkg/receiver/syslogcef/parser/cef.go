// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package parser implements the RFC 3164 syslog and CEF message parsers
// used by receiver/syslogcef, grounded on the original implementation's
// syslog_cef_receiver/parser/cef.rs.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// CEFMessage is a single parsed Common Event Format record (§6 "Syslog /
// CEF ingress"). Extensions is the ordered list of key-value pairs found
// after the seven pipe-delimited header fields.
type CEFMessage struct {
	Version             int
	DeviceVendor        string
	DeviceProduct       string
	DeviceVersion       string
	DeviceEventClassID  string
	Name                string
	Severity            string
	Extensions          []CEFExtension
}

// CEFExtension is one unescaped key=value pair from a CEF extensions string.
type CEFExtension struct {
	Key   string
	Value string
}

// ParseCEF parses a `CEF:0|vendor|product|version|class|name|severity|k=v ...`
// message. The seven header fields are split on unescaped `|`; everything
// after the seventh pipe is the extensions string, further split into
// key=value pairs with `\|`, `\=`, `\n`, `\r`, `\\` unescaping applied to
// values.
func ParseCEF(input string) (CEFMessage, error) {
	const prefix = "CEF:"
	if !strings.HasPrefix(input, prefix) {
		return CEFMessage{}, fmt.Errorf("syslogcef: not a CEF message")
	}
	content := input[len(prefix):]

	parts := splitUnescapedPipe(content, 8)
	if len(parts) < 7 {
		return CEFMessage{}, fmt.Errorf("syslogcef: CEF message has %d header fields, want 7", len(parts))
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil || (version != 0 && version != 1) {
		return CEFMessage{}, fmt.Errorf("syslogcef: invalid CEF version %q", parts[0])
	}

	msg := CEFMessage{
		Version:            version,
		DeviceVendor:       unescapeHeaderField(parts[1]),
		DeviceProduct:      unescapeHeaderField(parts[2]),
		DeviceVersion:      unescapeHeaderField(parts[3]),
		DeviceEventClassID: unescapeHeaderField(parts[4]),
		Name:               unescapeHeaderField(parts[5]),
		Severity:           unescapeHeaderField(parts[6]),
	}
	if len(parts) == 8 {
		msg.Extensions = parseExtensions(parts[7])
	}
	return msg, nil
}

// splitUnescapedPipe splits s on `|` that is not preceded by an odd number
// of backslashes, stopping once maxParts-1 pipes have been consumed (the
// remainder, including any further `|`, becomes the last element).
func splitUnescapedPipe(s string, maxParts int) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s) && len(parts) < maxParts-1; i++ {
		if s[i] != '|' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 1 {
			continue
		}
		parts = append(parts, s[start:i])
		start = i + 1
	}
	parts = append(parts, s[start:])
	return parts
}

// unescapeHeaderField resolves `\|` and `\\` in a CEF header field; the
// other CEF escapes (`\=`, `\n`, `\r`) only apply within extension values.
func unescapeHeaderField(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '|' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unescapeExtensionValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case '=', '|':
				b.WriteByte(s[i+1])
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// parseExtensions splits a CEF extensions string into key=value pairs. A
// space only separates pairs when it is followed by a syntactically valid
// `key=` (alphanumeric/underscore/hyphen key), so values may contain
// unescaped spaces.
func parseExtensions(s string) []CEFExtension {
	var out []CEFExtension
	pos := 0
	for pos < len(s) {
		for pos < len(s) && s[pos] == ' ' {
			pos++
		}
		if pos >= len(s) {
			break
		}
		keyStart := pos
		for pos < len(s) && s[pos] != '=' {
			pos++
		}
		if pos >= len(s) {
			break
		}
		key := s[keyStart:pos]
		pos++ // skip '='
		valueStart := pos
		escaped := false
		for pos < len(s) {
			if escaped {
				escaped = false
				pos++
				continue
			}
			if s[pos] == '\\' {
				escaped = true
				pos++
				continue
			}
			if s[pos] == ' ' && isNextKey(s, pos+1) {
				break
			}
			pos++
		}
		out = append(out, CEFExtension{Key: key, Value: unescapeExtensionValue(s[valueStart:pos])})
	}
	return out
}

// isNextKey reports whether s[from:] begins (after skipping spaces) with a
// syntactically valid `key=` sequence, used to decide whether an unescaped
// space terminates the current extension value.
func isNextKey(s string, from int) bool {
	i := from
	for i < len(s) && s[i] == ' ' {
		i++
	}
	start := i
	for i < len(s) {
		c := s[i]
		if c == '=' {
			return i > start
		}
		if !isKeyChar(c) {
			return false
		}
		i++
	}
	return false
}

func isKeyChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}
