package vellum

import "github.com/romecore/vellum/internal"

// Value is the dynamically typed runtime value the template engine
// evaluates expressions to and binds variables against (spec section
// 4.1: Null, Bool, Number, String, Array, Dict, HostObject, or a
// ContextAccessor).
type Value = internal.Value

// Null is the shared sentinel for the absence of a value.
var Null = internal.Null

// Message is a single {role, text} entry produced by rendering a
// `@messages` template (spec section 4.6).
type Message = internal.Message

// valueConfig collects NewValueFromHost's options.
type valueConfig struct {
	lowercase bool
	snapshot  bool
}

// ValueOption configures how NewValueFromHost wraps a host value.
type ValueOption func(*valueConfig)

// WithCaseInsensitiveProperties makes the wrapped value's property
// lookups case-insensitive (spec section 4.1's PropertiesToLowerCase),
// useful when the host data was decoded from JSON/YAML with
// inconsistent casing.
func WithCaseInsensitiveProperties() ValueOption {
	return func(c *valueConfig) { c.lowercase = true }
}

// WithSnapshot eagerly converts the host value into a pure Dict/Array/
// scalar tree via reflection (internal.Snapshot) instead of wrapping it
// as a live reflective HostObject. Use this when the caller may mutate
// or discard the original value before the template renders.
func WithSnapshot() ValueOption {
	return func(c *valueConfig) { c.snapshot = true }
}

// NewValueFromHost wraps an arbitrary Go value — a struct, map, slice,
// scalar, or nil — as a Value usable as render context data or bound
// into a template frame (spec section 4.1).
func NewValueFromHost(v any, opts ...ValueOption) Value {
	cfg := &valueConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.snapshot {
		return internal.Snapshot(v)
	}
	return hostRootValue(v, cfg.lowercase)
}

// hostRootValue mirrors internal.FromNative's scalar/composite cases
// but threads the case-insensitivity flag through to the HostObject
// fallback, which FromNative itself always constructs with lowercase
// comparisons disabled.
func hostRootValue(v any, lowercase bool) Value {
	if val, ok := v.(Value); ok {
		return val
	}
	switch v.(type) {
	case nil, bool, string,
		float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		[]any, map[string]any:
		return internal.FromNative(v)
	default:
		return internal.NewHostObject(v, lowercase)
	}
}
