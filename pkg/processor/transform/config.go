// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package transform

// Branch pairs a condition with the actions to apply when it matches. The
// first matching branch wins; Config.Default applies when none do (§ S4
// "Conditional branch").
type Branch struct {
	Condition Condition
	Actions   []Action
}

// Config is the transform processor's configuration. Query, if set, is a
// filter pipeline (§ S3 "KQL filter"); Branches/Default implement the
// conditional rename table (§ S4). Both may be set on the same node: the
// filter runs first, then the branch table.
type Config struct {
	Query    string   `yaml:"query,omitempty" mapstructure:"query"`
	Branches []Branch `yaml:"branches,omitempty" mapstructure:"branches"`
	Default  []Action `yaml:"default,omitempty" mapstructure:"default"`

	filter    Condition
	hasFilter bool
}

// Validate parses Query (if set) into the internal filter condition.
func (c *Config) Validate() error {
	if c.Query == "" {
		return nil
	}
	cond, err := ParseQuery(c.Query)
	if err != nil {
		return err
	}
	c.filter = cond
	c.hasFilter = true
	return nil
}
