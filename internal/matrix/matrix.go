// Package matrix expands a job's combination space into concrete entries.
//
// Expansion follows the conventional CI matrix rules: the cartesian product
// of the axes in declaration order, minus combinations matched by an exclude
// rule, plus combinations contributed by include rules. Output order is
// deterministic for a given definition.
package matrix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/gridci/gridci/internal/config"
)

// Combination is a single resolved entry of a matrix: one value per axis,
// possibly with extra keys contributed by include rules.
type Combination struct {
	// keys preserves assignment order for deterministic rendering.
	keys   []string
	values map[string]string
}

// NewCombination builds a combination from ordered key/value pairs.
func NewCombination(pairs ...[2]string) *Combination {
	c := &Combination{values: make(map[string]string, len(pairs))}
	for _, p := range pairs {
		c.set(p[0], p[1])
	}
	return c
}

func (c *Combination) set(key, value string) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Value returns the value for an axis key, if present.
func (c *Combination) Value(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the combination's keys in assignment order.
func (c *Combination) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Key renders the combination as a stable short identifier, e.g.
// "python=3.11,interface=jax". Keys appear in axis declaration order.
func (c *Combination) Key() string {
	parts := make([]string, 0, len(c.keys))
	for _, k := range c.keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, c.values[k]))
	}
	return strings.Join(parts, ",")
}

// Values returns a copy of the combination's key/value map.
func (c *Combination) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// CtyObject renders the combination as a cty object for use in HCL
// evaluation contexts (available to expressions as `matrix.<axis>`).
func (c *Combination) CtyObject() cty.Value {
	if len(c.values) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(c.values))
	for k, v := range c.values {
		attrs[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(attrs)
}

// clone returns an independent copy of the combination.
func (c *Combination) clone() *Combination {
	out := &Combination{values: make(map[string]string, len(c.values))}
	for _, k := range c.keys {
		out.set(k, c.values[k])
	}
	return out
}

// matchesRule reports whether every key of the rule is present in the
// combination with the same value.
func (c *Combination) matchesRule(rule map[string]string) bool {
	if len(rule) == 0 {
		return false
	}
	for k, want := range rule {
		got, ok := c.values[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// sharedKeysMatch reports whether every rule key that names a declared axis
// matches the combination. Include rules use this to decide between
// augmenting an existing combination and appending a new one. A rule with no
// axis keys overwrites nothing and therefore augments every combination of a
// matrix that has axes; without axes there is nothing to augment.
func (c *Combination) sharedKeysMatch(rule map[string]string, axes map[string]struct{}) bool {
	for k, want := range rule {
		if _, isAxis := axes[k]; !isAxis {
			continue
		}
		if got, ok := c.values[k]; !ok || got != want {
			return false
		}
	}
	return len(axes) > 0
}

// Expand resolves a matrix definition into its ordered list of combinations.
// A nil matrix, or one without axes, yields a single empty combination so
// that a job without a matrix still runs exactly once.
func Expand(m *config.Matrix) ([]*Combination, error) {
	if m == nil || len(m.Axes) == 0 {
		combos := []*Combination{NewCombination()}
		if m != nil {
			if err := applyIncludes(&combos, m); err != nil {
				return nil, err
			}
		}
		return dedupe(combos), nil
	}

	for _, axis := range m.Axes {
		if len(axis.Values) == 0 {
			return nil, fmt.Errorf("matrix axis %q has no values", axis.Name)
		}
	}

	combos := []*Combination{NewCombination()}
	for _, axis := range m.Axes {
		next := make([]*Combination, 0, len(combos)*len(axis.Values))
		for _, c := range combos {
			for _, v := range axis.Values {
				extended := c.clone()
				extended.set(axis.Name, v)
				next = append(next, extended)
			}
		}
		combos = next
	}

	combos = applyExcludes(combos, m.Excludes)

	if err := applyIncludes(&combos, m); err != nil {
		return nil, err
	}

	return dedupe(combos), nil
}

// applyExcludes drops every combination matched by any exclude rule.
func applyExcludes(combos []*Combination, rules []map[string]string) []*Combination {
	if len(rules) == 0 {
		return combos
	}
	kept := combos[:0]
	for _, c := range combos {
		excluded := false
		for _, rule := range rules {
			if c.matchesRule(rule) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, c)
		}
	}
	return kept
}

// applyIncludes augments matching combinations with the rule's extra keys,
// or appends a brand-new combination when the rule's axis values match
// nothing (or the matrix has no axes at all).
func applyIncludes(combos *[]*Combination, m *config.Matrix) error {
	if len(m.Includes) == 0 {
		return nil
	}

	axes := make(map[string]struct{}, len(m.Axes))
	for _, a := range m.Axes {
		axes[a.Name] = struct{}{}
	}

	for _, rule := range m.Includes {
		if len(rule) == 0 {
			return fmt.Errorf("empty include rule")
		}

		augmented := false
		for _, c := range *combos {
			if c.sharedKeysMatch(rule, axes) {
				for _, k := range sortedKeys(rule) {
					if _, isAxis := axes[k]; !isAxis {
						c.set(k, rule[k])
					}
				}
				augmented = true
			}
		}
		if augmented {
			continue
		}

		extra := NewCombination()
		for _, k := range sortedKeys(rule) {
			extra.set(k, rule[k])
		}
		*combos = append(*combos, extra)
	}
	return nil
}

// dedupe drops combinations whose rendered key repeats an earlier one.
// Includes can reproduce an existing combination; the first wins.
func dedupe(combos []*Combination) []*Combination {
	seen := make(map[string]struct{}, len(combos))
	out := combos[:0]
	for _, c := range combos {
		key := c.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
