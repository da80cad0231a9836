package internal

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ValueKind is the tag of the closed Value sum type (spec section 3).
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindDict
	KindHostObject
	KindContextAccessor
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindHostObject:
		return "host_object"
	case KindContextAccessor:
		return "context"
	default:
		return "unknown"
	}
}

// Value is the engine's uniform dynamically typed value. Every variant in
// spec section 3 implements it; operator dispatch lives in the package
// functions below rather than on the interface, since binary operators
// need to match on both operand kinds at once.
type Value interface {
	Kind() ValueKind
	AsBool() bool
	ToString(format string) (string, error)
	Property(name string) (Value, error)
	Index(idx Value) (Value, error)
	Call(method string, args []Value) (Value, error)
	String() string
}

// ---- Null ----

type nullValue struct{}

// Null is the shared sentinel for the absence of a value.
var Null Value = nullValue{}

func (nullValue) Kind() ValueKind                { return KindNull }
func (nullValue) AsBool() bool                   { return false }
func (nullValue) ToString(string) (string, error) { return "", nil }
func (nullValue) String() string                 { return "null" }
func (nullValue) Property(name string) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", nil, "cannot access property "+name+" on null")
}
func (nullValue) Index(Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrIndexingNotSupported, "", nil, "cannot index null")
}
func (nullValue) Call(method string, _ []Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", nil, "method "+method+" not supported on null")
}

// ---- Bool ----

type BoolValue bool

func NewBool(b bool) Value { return BoolValue(b) }

func (b BoolValue) Kind() ValueKind { return KindBool }
func (b BoolValue) AsBool() bool    { return bool(b) }
func (b BoolValue) String() string  { return strconv.FormatBool(bool(b)) }

func (b BoolValue) ToString(format string) (string, error) {
	if format != "" {
		parts := strings.SplitN(format, "/", 2)
		if len(parts) == 2 {
			if bool(b) {
				return parts[0], nil
			}
			return parts[1], nil
		}
	}
	if bool(b) {
		return "True", nil
	}
	return "False", nil
}

func (b BoolValue) Property(name string) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", b, "cannot access property "+name+" on bool")
}
func (b BoolValue) Index(Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrIndexingNotSupported, "", b, "cannot index bool")
}
func (b BoolValue) Call(method string, _ []Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", b, "method "+method+" not supported on bool")
}

// ---- Number ----

type NumberValue float64

func NewNumber(f float64) Value { return NumberValue(f) }

func (n NumberValue) Kind() ValueKind { return KindNumber }
func (n NumberValue) AsBool() bool    { return float64(n) != 0 }
func (n NumberValue) String() string  { return strconv.FormatFloat(float64(n), 'g', -1, 64) }

func (n NumberValue) ToString(format string) (string, error) {
	return formatNumber(float64(n), format)
}

func formatNumber(f float64, format string) (string, error) {
	if format == "" {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	spec := format
	prec := -1
	if len(spec) > 1 {
		if p, err := strconv.Atoi(spec[1:]); err == nil {
			prec = p
		}
	}
	switch strings.ToUpper(spec[:1]) {
	case "F", "N":
		if prec < 0 {
			prec = 2
		}
		return strconv.FormatFloat(f, 'f', prec, 64), nil
	case "E":
		if prec < 0 {
			prec = 6
		}
		return strconv.FormatFloat(f, 'e', prec, 64), nil
	case "P":
		if prec < 0 {
			prec = 2
		}
		return strconv.FormatFloat(f*100, 'f', prec, 64) + "%", nil
	case "G":
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	default:
		return "", NewRuntimeError(RuntimeErrFormatInvalid, "", f, "unknown numeric format "+format)
	}
}

func (n NumberValue) Property(name string) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", n, "cannot access property "+name+" on number")
}
func (n NumberValue) Index(Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrIndexingNotSupported, "", n, "cannot index number")
}
func (n NumberValue) Call(method string, _ []Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", n, "method "+method+" not supported on number")
}

// ---- String ----

type StringValue string

func NewString(s string) Value { return StringValue(s) }

func (s StringValue) Kind() ValueKind { return KindString }
func (s StringValue) AsBool() bool    { return len(s) > 0 }
func (s StringValue) String() string  { return string(s) }

func (s StringValue) ToString(format string) (string, error) {
	switch format {
	case "", "null":
		return string(s), nil
	case "upper":
		return strings.ToUpper(string(s)), nil
	case "lower":
		return strings.ToLower(string(s)), nil
	case "trim":
		return strings.TrimSpace(string(s)), nil
	default:
		return string(s), nil
	}
}

func (s StringValue) Property(name string) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", s, "cannot access property "+name+" on string")
}

func (s StringValue) Index(idx Value) (Value, error) {
	i, err := intIndex(idx)
	if err != nil {
		return nil, err
	}
	runes := []rune(string(s))
	if i < 0 || i >= len(runes) {
		return nil, NewRuntimeError(RuntimeErrIndexOutOfRange, "", i, fmt.Sprintf("index %d out of range for string of length %d", i, len(runes)))
	}
	return StringValue(string(runes[i])), nil
}

func (s StringValue) Call(method string, _ []Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", s, "method "+method+" not supported on string")
}

// ---- Array ----

type ArrayValue []Value

func NewArray(elems []Value) Value { return ArrayValue(elems) }

func (a ArrayValue) Kind() ValueKind { return KindArray }
func (a ArrayValue) AsBool() bool    { return len(a) > 0 }

func (a ArrayValue) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a ArrayValue) ToString(string) (string, error) {
	return "", NewRuntimeError(RuntimeErrFormatInvalid, "", a, "array is not directly stringifiable")
}

func (a ArrayValue) Property(name string) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", a, "cannot access property "+name+" on array")
}

func (a ArrayValue) Index(idx Value) (Value, error) {
	i, err := intIndex(idx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(a) {
		return nil, NewRuntimeError(RuntimeErrIndexOutOfRange, "", i, fmt.Sprintf("index %d out of range for array of length %d", i, len(a)))
	}
	return a[i], nil
}

func (a ArrayValue) Call(method string, _ []Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", a, "method "+method+" not supported on array")
}

// ---- Dict ----

// DictValue is an insertion-ordered string-keyed mapping.
type DictValue struct {
	keys   []string
	values map[string]Value
}

func NewDict() *DictValue {
	return &DictValue{values: make(map[string]Value)}
}

// NewDictFrom builds a DictValue preserving the given key order.
func NewDictFrom(keys []string, values map[string]Value) *DictValue {
	d := &DictValue{keys: append([]string(nil), keys...), values: make(map[string]Value, len(values))}
	for _, k := range keys {
		d.values[k] = values[k]
	}
	return d
}

func (d *DictValue) Kind() ValueKind { return KindDict }
func (d *DictValue) AsBool() bool    { return len(d.keys) > 0 }

func (d *DictValue) String() string {
	parts := make([]string, len(d.keys))
	for i, k := range d.keys {
		parts[i] = fmt.Sprintf("%s: %s", k, d.values[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d *DictValue) ToString(string) (string, error) {
	return "", NewRuntimeError(RuntimeErrFormatInvalid, "", d, "dict is not directly stringifiable")
}

func (d *DictValue) Property(name string) (Value, error) {
	v, ok := d.values[name]
	if !ok {
		suggestions := FindSimilarStrings(name, d.keys, 3)
		msg := "no such key: " + name + FormatSuggestions(suggestions)
		return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", d, msg)
	}
	return v, nil
}

func (d *DictValue) Index(idx Value) (Value, error) {
	key, err := idx.ToString("")
	if err != nil {
		return nil, NewRuntimeError(RuntimeErrIndexNotInteger, "", idx, "dict index must be stringifiable")
	}
	v, ok := d.values[key]
	if !ok {
		return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", d, "no such key: "+key)
	}
	return v, nil
}

func (d *DictValue) Call(method string, _ []Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", d, "method "+method+" not supported on dict")
}

func (d *DictValue) Keys() []string { return append([]string(nil), d.keys...) }

func (d *DictValue) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set writes key=value, appending key to the order if new.
func (d *DictValue) Set(key string, v Value) {
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

func (d *DictValue) Len() int { return len(d.keys) }

// Merge returns a new dict holding d's entries overwritten by other's
// (right-wins shallow merge, per the `+` operator contract).
func (d *DictValue) Merge(other *DictValue) *DictValue {
	result := NewDictFrom(d.keys, d.values)
	for _, k := range other.keys {
		result.Set(k, other.values[k])
	}
	return result
}

func intIndex(idx Value) (int, error) {
	n, ok := idx.(NumberValue)
	if !ok {
		return 0, NewRuntimeError(RuntimeErrIndexNotInteger, "", idx, "index must be a number")
	}
	f := float64(n)
	i := int(f)
	if float64(i) != f {
		return 0, NewRuntimeError(RuntimeErrIndexNotInteger, "", idx, "index must be an integer")
	}
	return i, nil
}

// ---- HostObject ----

// HostObjectLookup is a property-lookup closure captured at construction
// time, so hosts without reflection support can supply their own.
type HostObjectLookup func(name string) (any, bool)

// HostObjectValue is a read-only reflected property/field bag over an
// arbitrary Go value. The engine never writes back through it.
type HostObjectValue struct {
	obj        any
	lowercase  bool
	lookupFunc HostObjectLookup
}

// NewHostObject wraps v for reflected property/index access. When
// lowercase is true, property lookups are compared case-insensitively
// (spec section 4.1's `PropertiesToLowerCase` option).
func NewHostObject(v any, lowercase bool) Value {
	return &HostObjectValue{obj: v, lowercase: lowercase}
}

// NewHostObjectWithLookup wraps v with a caller-supplied lookup closure,
// for hosts that cannot or should not be reached through reflection.
func NewHostObjectWithLookup(v any, lookup HostObjectLookup) Value {
	return &HostObjectValue{obj: v, lookupFunc: lookup}
}

func (h *HostObjectValue) Kind() ValueKind { return KindHostObject }
func (h *HostObjectValue) AsBool() bool    { return true }
func (h *HostObjectValue) String() string  { return fmt.Sprintf("%v", h.obj) }

func (h *HostObjectValue) ToString(format string) (string, error) {
	return fmt.Sprintf("%v", h.obj), nil
}

func (h *HostObjectValue) Raw() any { return h.obj }

func (h *HostObjectValue) Property(name string) (Value, error) {
	if h.lookupFunc != nil {
		raw, ok := h.lookupFunc(name)
		if !ok {
			return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", h, "no such property: "+name)
		}
		return FromNative(raw), nil
	}
	raw, ok := reflectProperty(h.obj, name, h.lowercase)
	if !ok {
		suggestions := FindSimilarStrings(name, reflectPropertyNames(h.obj), 3)
		msg := "no such property: " + name + FormatSuggestions(suggestions)
		return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", h, msg)
	}
	return FromNative(raw), nil
}

// Keys lists the host object's property names, for "did you mean?"
// suggestions (internal/suggest.go).
func (h *HostObjectValue) Keys() []string {
	return reflectPropertyNames(h.obj)
}

func (h *HostObjectValue) Index(idx Value) (Value, error) {
	rv := reflect.ValueOf(h.obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, err := intIndex(idx)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= rv.Len() {
			return nil, NewRuntimeError(RuntimeErrIndexOutOfRange, "", i, "index out of range")
		}
		return FromNative(rv.Index(i).Interface()), nil
	case reflect.Map:
		key, err := idx.ToString("")
		if err != nil {
			return nil, NewRuntimeError(RuntimeErrIndexNotInteger, "", idx, "index must be stringifiable")
		}
		mv := rv.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return nil, NewRuntimeError(RuntimeErrCannotAccessProperty, "", h, "no such key: "+key)
		}
		return FromNative(mv.Interface()), nil
	}
	return nil, NewRuntimeError(RuntimeErrIndexingNotSupported, "", h, "cannot index host object")
}

func (h *HostObjectValue) Call(method string, _ []Value) (Value, error) {
	return nil, NewRuntimeError(RuntimeErrMethodNotSupported, "", h, "method "+method+" not supported on host object")
}

// Length projects an iterable-ish value's element count, used by the
// `length` built-in function (section 4.9).
func (h *HostObjectValue) Length() (int, bool) {
	rv := reflect.ValueOf(h.obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len(), true
	}
	return 0, false
}

func reflectProperty(obj any, name string, lowercase bool) (any, bool) {
	if obj == nil {
		return nil, false
	}
	if m, ok := obj.(map[string]any); ok {
		if v, ok := lookupMapKey(m, name, lowercase); ok {
			return v, true
		}
		return nil, false
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			fieldName := field.Name
			if jsonTag := field.Tag.Get("json"); jsonTag != "" {
				if tagName := strings.Split(jsonTag, ",")[0]; tagName != "" && tagName != "-" {
					fieldName = tagName
				}
			}
			if matchName(fieldName, name, lowercase) {
				return rv.Field(i).Interface(), true
			}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		for _, key := range rv.MapKeys() {
			if matchName(key.String(), name, lowercase) {
				return rv.MapIndex(key).Interface(), true
			}
		}
	}
	return nil, false
}

// reflectPropertyNames lists the field/key names reachable through
// reflectProperty, for "did you mean?" suggestions on lookup failure.
func reflectPropertyNames(obj any) []string {
	if obj == nil {
		return nil
	}
	if m, ok := obj.(map[string]any); ok {
		names := make([]string, 0, len(m))
		for k := range m {
			names = append(names, k)
		}
		return names
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		rt := rv.Type()
		var names []string
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			fieldName := field.Name
			if jsonTag := field.Tag.Get("json"); jsonTag != "" {
				if tagName := strings.Split(jsonTag, ",")[0]; tagName != "" && tagName != "-" {
					fieldName = tagName
				}
			}
			names = append(names, fieldName)
		}
		return names
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		names := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			names = append(names, key.String())
		}
		return names
	}
	return nil
}

func lookupMapKey(m map[string]any, name string, lowercase bool) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	if lowercase {
		for k, v := range m {
			if strings.EqualFold(k, name) {
				return v, true
			}
		}
	}
	return nil, false
}

func matchName(fieldName, name string, lowercase bool) bool {
	if lowercase {
		return strings.EqualFold(fieldName, name)
	}
	return fieldName == name
}

// FromNative converts an arbitrary Go value into the engine's Value
// type, wrapping composite/unknown types as a reflective HostObject.
func FromNative(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null
	case Value:
		return val
	case bool:
		return BoolValue(val)
	case string:
		return StringValue(val)
	case float64:
		return NumberValue(val)
	case float32:
		return NumberValue(float64(val))
	case int:
		return NumberValue(float64(val))
	case int8:
		return NumberValue(float64(val))
	case int16:
		return NumberValue(float64(val))
	case int32:
		return NumberValue(float64(val))
	case int64:
		return NumberValue(float64(val))
	case uint:
		return NumberValue(float64(val))
	case uint8:
		return NumberValue(float64(val))
	case uint16:
		return NumberValue(float64(val))
	case uint32:
		return NumberValue(float64(val))
	case uint64:
		return NumberValue(float64(val))
	case []any:
		elems := make([]Value, len(val))
		for i, e := range val {
			elems[i] = FromNative(e)
		}
		return ArrayValue(elems)
	case map[string]any:
		d := NewDict()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d.Set(k, FromNative(val[k]))
		}
		return d
	default:
		return NewHostObject(v, false)
	}
}

// Snapshot recursively converts an arbitrary Go value (structs, slices,
// maps, pointers) into a pure Dict/Array/scalar Value tree via
// reflection, for callers who want a value that owns its data instead
// of a live reflection closure over the caller's object.
func Snapshot(v any) Value {
	return snapshot(reflect.ValueOf(v), 0)
}

const maxSnapshotDepth = 64

func snapshot(rv reflect.Value, depth int) Value {
	if depth > maxSnapshotDepth {
		return Null
	}
	if !rv.IsValid() {
		return Null
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberValue(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NumberValue(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return NumberValue(rv.Float())
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elems[i] = snapshot(rv.Index(i), depth+1)
		}
		return ArrayValue(elems)
	case reflect.Map:
		d := NewDict()
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, fmt.Sprintf("%v", k.Interface()))
		}
		sort.Strings(keys)
		for _, k := range keys {
			d.Set(k, snapshot(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())), depth+1))
		}
		return d
	case reflect.Struct:
		d := NewDict()
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			d.Set(field.Name, snapshot(rv.Field(i), depth+1))
		}
		return d
	default:
		return Null
	}
}
