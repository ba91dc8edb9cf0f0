// Package foundation holds small generic helpers shared by the config and
// CLI layers.
package foundation

import (
	"fmt"
	"sort"
	"strings"
)

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Enum maps loosely written configuration strings onto a closed set of values.
type Enum[T comparable] struct {
	name   string
	values map[string]T
}

// NewEnum creates an enum named name (used in errors) from its spellings.
func NewEnum[T comparable](name string, values map[string]T) *Enum[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return &Enum[T]{name: name, values: normalized}
}

// Parse returns the value for raw, ignoring case and surrounding space.
func (e *Enum[T]) Parse(raw string) (T, error) {
	if v, ok := e.values[normalizeKey(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q (valid: %s)", e.name, raw, strings.Join(e.Keys(), ", "))
}

// ParseOr returns the value for raw, or def when raw is not recognized.
func (e *Enum[T]) ParseOr(raw string, def T) T {
	if v, err := e.Parse(raw); err == nil {
		return v
	}
	return def
}

// Keys returns the accepted spellings, sorted.
func (e *Enum[T]) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
