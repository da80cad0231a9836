package internal

import (
	"fmt"
	"reflect"
	"strings"
)

// Metadata is the open interface for values attached to a Template.
// Concrete built-ins are Identifier, Language, TargetModel, and
// TargetModelFamily; callers may implement their own.
type Metadata interface {
	// TypeKey identifies the metadata's concrete type for multiset
	// bucketing. Built-ins return a stable constant; custom
	// implementations should return something unique to their type.
	TypeKey() string
	// Equal reports structural equality against another Metadata of
	// the same concrete type.
	Equal(other Metadata) bool
	// Hash is a stable string key for the value, used to bucket
	// "templates carrying this exact value" in the library index.
	Hash() string
	String() string
}

// MetadataFromKeyValue builds a built-in Metadata value from a
// key/value pair using the same key aliases the `@metadata { }` block
// grammar accepts (parser.go's metadataFor). Exported so callers
// importing metadata sidecars (e.g. a YAML overrides file) can reuse
// the same key vocabulary instead of re-deriving it.
func MetadataFromKeyValue(key, value string) (Metadata, bool) {
	return metadataFor(key, value)
}

// ---- Identifier ----

type IdentifierMetadata struct{ Name string }

func NewIdentifier(name string) IdentifierMetadata { return IdentifierMetadata{Name: name} }

func (m IdentifierMetadata) TypeKey() string { return "identifier" }
func (m IdentifierMetadata) Hash() string    { return "identifier:" + m.Name }
func (m IdentifierMetadata) String() string  { return m.Name }
func (m IdentifierMetadata) Equal(other Metadata) bool {
	o, ok := other.(IdentifierMetadata)
	return ok && o.Name == m.Name
}

// ---- TargetModel ----

type TargetModelMetadata struct{ Name string }

func NewTargetModel(name string) TargetModelMetadata { return TargetModelMetadata{Name: name} }

func (m TargetModelMetadata) TypeKey() string { return "target_model" }
func (m TargetModelMetadata) Hash() string    { return "target_model:" + strings.ToLower(m.Name) }
func (m TargetModelMetadata) String() string  { return m.Name }
func (m TargetModelMetadata) Equal(other Metadata) bool {
	o, ok := other.(TargetModelMetadata)
	return ok && strings.EqualFold(o.Name, m.Name)
}

// ---- TargetModelFamily ----

type TargetModelFamilyMetadata struct{ Name string }

func NewTargetModelFamily(name string) TargetModelFamilyMetadata {
	return TargetModelFamilyMetadata{Name: name}
}

func (m TargetModelFamilyMetadata) TypeKey() string { return "target_model_family" }
func (m TargetModelFamilyMetadata) Hash() string {
	return "target_model_family:" + strings.ToLower(m.Name)
}
func (m TargetModelFamilyMetadata) String() string { return m.Name }
func (m TargetModelFamilyMetadata) Equal(other Metadata) bool {
	o, ok := other.(TargetModelFamilyMetadata)
	return ok && strings.EqualFold(o.Name, m.Name)
}

// ---- Language ----

// LanguageCode is a case-insensitive BCP-47-like language tag.
type LanguageCode string

func NewLanguage(code string) LanguageMetadata {
	return LanguageMetadata{Code: LanguageCode(code)}
}

type LanguageMetadata struct{ Code LanguageCode }

func (m LanguageMetadata) TypeKey() string { return "language" }
func (m LanguageMetadata) Hash() string    { return "language:" + strings.ToLower(string(m.Code)) }
func (m LanguageMetadata) String() string  { return string(m.Code) }
func (m LanguageMetadata) Equal(other Metadata) bool {
	o, ok := other.(LanguageMetadata)
	return ok && strings.EqualFold(string(o.Code), string(m.Code))
}

// IsSubLanguageOf reports whether c is a more specific variant of
// parent (e.g. "en-US" is a sub-language of "en").
func (c LanguageCode) IsSubLanguageOf(parent LanguageCode) bool {
	cs, ps := strings.ToLower(string(c)), strings.ToLower(string(parent))
	if cs == ps {
		return true
	}
	return strings.HasPrefix(cs, ps+"-")
}

// SuperLanguage trims the code by its last "-"-delimited segment.
// Returns ok=false if the code has no such segment.
func (c LanguageCode) SuperLanguage() (LanguageCode, bool) {
	s := string(c)
	idx := strings.LastIndex(s, "-")
	if idx < 0 {
		return "", false
	}
	return LanguageCode(s[:idx]), true
}

// Topmost trims the code down to its first "-"-delimited segment.
func (c LanguageCode) Topmost() LanguageCode {
	s := string(c)
	idx := strings.Index(s, "-")
	if idx < 0 {
		return c
	}
	return LanguageCode(s[:idx])
}

// majorWorldLanguages backs the built-in language fallback scheme
// (spec section 4.7): topmost codes considered "major" when no exact
// match is available.
var majorWorldLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "zh": true,
	"ja": true, "ru": true, "pt": true, "ar": true, "hi": true,
}

// ---- MetadataCollection ----

// MetadataCollection is a type-indexed multiset: every stored value is
// retrievable both by iterating All() and by its concrete Go type via
// the generic accessors below.
type MetadataCollection struct {
	all    []Metadata
	byType map[reflect.Type][]Metadata
}

func NewMetadataCollection(values ...Metadata) *MetadataCollection {
	mc := &MetadataCollection{byType: make(map[reflect.Type][]Metadata)}
	for _, v := range values {
		mc.Add(v)
	}
	return mc
}

// Add inserts a metadata value, indexing it under its concrete type.
func (mc *MetadataCollection) Add(m Metadata) {
	mc.all = append(mc.all, m)
	t := reflect.TypeOf(m)
	mc.byType[t] = append(mc.byType[t], m)
}

func (mc *MetadataCollection) All() []Metadata {
	return append([]Metadata(nil), mc.all...)
}

// Has reports whether the collection carries any metadata equal to m.
func (mc *MetadataCollection) Has(m Metadata) bool {
	for _, v := range mc.byType[reflect.TypeOf(m)] {
		if v.Equal(m) {
			return true
		}
	}
	return false
}

func ofType[T Metadata](mc *MetadataCollection) []T {
	var zero T
	bucket := mc.byType[reflect.TypeOf(zero)]
	result := make([]T, 0, len(bucket))
	for _, v := range bucket {
		if tv, ok := v.(T); ok {
			result = append(result, tv)
		}
	}
	return result
}

// MetadataTryGet returns the first metadata value of type T, if any.
func MetadataTryGet[T Metadata](mc *MetadataCollection) (T, bool) {
	values := ofType[T](mc)
	if len(values) == 0 {
		var zero T
		return zero, false
	}
	return values[0], true
}

// MetadataGetAll returns every metadata value of type T.
func MetadataGetAll[T Metadata](mc *MetadataCollection) []T {
	return ofType[T](mc)
}

// MetadataHasType reports whether any metadata value of type T exists.
func MetadataHasType[T Metadata](mc *MetadataCollection) bool {
	return len(ofType[T](mc)) > 0
}

// MetadataRequire returns the first value of type T or an error
// carrying msg.
func MetadataRequire[T Metadata](mc *MetadataCollection, msg string) (T, error) {
	v, ok := MetadataTryGet[T](mc)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s", msg)
	}
	return v, nil
}

// MetadataCheck applies pred to every value of type T; returns
// fallback if none are present.
func MetadataCheck[T Metadata](mc *MetadataCollection, pred func(T) bool, fallback bool) bool {
	values := ofType[T](mc)
	if len(values) == 0 {
		return fallback
	}
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}
