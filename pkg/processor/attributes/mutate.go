// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package attributes

import (
	"crypto/sha256"
	"encoding/hex"

	"go.opentelemetry.io/collector/pdata/pcommon"
)

// mutate applies delete, upsert, rename then hash, in that order, to m if
// cfg.ApplyTo includes scope. Returns how many keys were deleted (S5's
// deleted_entries counter only tracks delete, per the scenario).
func mutate(cfg *Config, scope Scope, m pcommon.Map) (deleted int) {
	if !cfg.applies(scope) {
		return 0
	}
	for _, k := range cfg.Delete {
		if _, ok := m.Get(k); ok {
			m.Remove(k)
			deleted++
		}
	}
	for k, v := range cfg.Upsert {
		m.PutStr(k, v)
	}
	for oldKey, newKey := range cfg.Rename {
		if v, ok := m.Get(oldKey); ok {
			m.PutStr(newKey, v.Str())
			m.Remove(oldKey)
		}
	}
	for _, k := range cfg.Hash {
		if v, ok := m.Get(k); ok {
			sum := sha256.Sum256([]byte(v.Str()))
			v.SetStr(hex.EncodeToString(sum[:]))
		}
	}
	return deleted
}
