// Package stuff provides the versioned key-value context that is threaded
// between layout and page loads.
//
// A Context is immutable: Set and Merge return new values and never modify
// the receiver, so a layout's stuff can be handed to the next load without
// copying.
//
// # Merge rule
//
// Merge(a, b) contains every key of a and b. When both define a key the
// value from b wins. The merged version is max(a.Version(), b.Version())+1,
// so any derived context always has a strictly greater version than its
// inputs.
package stuff

import (
	"sort"

	"github.com/samber/lo"
)

// Context is an immutable, versioned bag of accumulated load data.
// The zero value is an empty context at version 0.
type Context struct {
	version uint64
	values  map[string]any
}

// New creates a context at version 1 holding a copy of values.
// A nil or empty map yields an empty context at version 0.
func New(values map[string]any) Context {
	if len(values) == 0 {
		return Context{}
	}
	return Context{
		version: 1,
		values:  lo.Assign(values),
	}
}

// Version returns the number of derivations that produced this context.
func (c Context) Version() uint64 {
	return c.version
}

// Len returns the number of keys.
func (c Context) Len() int {
	return len(c.values)
}

// Get returns the value stored under key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the value stored under key when it is a string.
func (c Context) String(key string) string {
	s, _ := c.values[key].(string)
	return s
}

// Keys returns the keys in sorted order.
func (c Context) Keys() []string {
	keys := lo.Keys(c.values)
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying values. Never nil.
func (c Context) Map() map[string]any {
	if c.values == nil {
		return map[string]any{}
	}
	return lo.Assign(c.values)
}

// Set returns a new context with key bound to value.
func (c Context) Set(key string, value any) Context {
	values := lo.Assign(c.values, map[string]any{key: value})
	return Context{version: c.version + 1, values: values}
}

// Merge returns c overridden by other. The result is always a new
// version, even when other is empty.
func (c Context) Merge(other Context) Context {
	version := max(c.version, other.version) + 1
	return Context{
		version: version,
		values:  lo.Assign(c.values, other.values),
	}
}
