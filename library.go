package vellum

import "github.com/romecore/vellum/internal"

// Template is a parsed, self-contained template body plus the metadata
// it was registered under (spec section 5).
type Template = internal.Template

// TemplateKind distinguishes what a Template renders to.
type TemplateKind = internal.TemplateKind

// The three template kinds: `@template` declarations parse to text
// templates (TemplateKindPrompt), `@messages` declarations parse to an
// ordered list of {role, text} entries (TemplateKindMessages), and
// TemplateKindPlaintext marks a Template built directly around fixed
// text; the parser never produces it.
const (
	TemplateKindPrompt    = internal.TemplateKindPrompt
	TemplateKindMessages  = internal.TemplateKindMessages
	TemplateKindPlaintext = internal.TemplateKindPlaintext
)

// Library is a concurrency-safe collection of templates, queried by
// metadata (spec sections 4.7-4.8). It wraps internal.Library purely to
// translate its errors into the public cuserr taxonomy at the API
// boundary.
type Library struct {
	inner *internal.Library
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{inner: internal.NewLibrary()}
}

// SharedLibrary returns the process-wide Library that `@render`
// resolves against when a template can't be found in its own library
// (spec section 4.6's cross-library render fallback).
func SharedLibrary() *Library {
	return &Library{inner: internal.SharedLibrary()}
}

func wrapLibrary(inner *internal.Library) *Library {
	if inner == nil {
		return nil
	}
	return &Library{inner: inner}
}

// Add registers t unconditionally.
func (l *Library) Add(t *Template) { l.inner.Add(t) }

// TryAdd registers t, failing if a template with an identical metadata
// multiset is already registered.
func (l *Library) TryAdd(t *Template) error { return wrapErr(l.inner.TryAdd(t)) }

// AddRange registers every template in ts unconditionally.
func (l *Library) AddRange(ts []*Template) { l.inner.AddRange(ts) }

// TryAddRange registers every template in ts, stopping at the first
// duplicate-metadata collision.
func (l *Library) TryAddRange(ts []*Template) error { return wrapErr(l.inner.TryAddRange(ts)) }

// GetSingleStrictExact returns the first template, in registration
// order, that carries every constraint in query exactly, failing only
// if the intersection is empty (spec section 4.8).
func (l *Library) GetSingleStrictExact(query ...Metadata) (*Template, error) {
	t, err := l.inner.GetSingleStrictExact(query...)
	return t, wrapErr(err)
}

// GetSingleStrictBestEffort returns the one template matching as many
// of query's constraints as possible, without language fallback.
func (l *Library) GetSingleStrictBestEffort(query ...Metadata) (*Template, error) {
	t, err := l.inner.GetSingleStrictBestEffort(query...)
	return t, wrapErr(err)
}

// GetSingleWithFallbackExact returns the one template matching query
// exactly, walking the language fallback chain for any Language
// constraint (spec section 4.8).
func (l *Library) GetSingleWithFallbackExact(query ...Metadata) (*Template, error) {
	t, err := l.inner.GetSingleWithFallbackExact(query...)
	return t, wrapErr(err)
}

// GetSingleWithFallbackBestEffort combines language fallback with
// best-effort constraint dropping.
func (l *Library) GetSingleWithFallbackBestEffort(query ...Metadata) (*Template, error) {
	t, err := l.inner.GetSingleWithFallbackBestEffort(query...)
	return t, wrapErr(err)
}

// GetAllStrictExact returns every template carrying every constraint in
// query exactly; templates may carry further metadata as well.
func (l *Library) GetAllStrictExact(query ...Metadata) ([]*Template, error) {
	ts, err := l.inner.GetAllStrictExact(query...)
	return ts, wrapErr(err)
}

// GetAllStrictBestEffort returns every template matching as many of
// query's constraints as possible, without language fallback.
func (l *Library) GetAllStrictBestEffort(query ...Metadata) ([]*Template, error) {
	ts, err := l.inner.GetAllStrictBestEffort(query...)
	return ts, wrapErr(err)
}

// GetAllWithFallbackExact returns every template matching query
// exactly, walking the language fallback chain.
func (l *Library) GetAllWithFallbackExact(query ...Metadata) ([]*Template, error) {
	ts, err := l.inner.GetAllWithFallbackExact(query...)
	return ts, wrapErr(err)
}

// GetAllWithFallbackBestEffort combines language fallback with
// best-effort constraint dropping.
func (l *Library) GetAllWithFallbackBestEffort(query ...Metadata) ([]*Template, error) {
	ts, err := l.inner.GetAllWithFallbackBestEffort(query...)
	return ts, wrapErr(err)
}

// GetByIdentifierStrict returns a template carrying Identifier name,
// failing if none does. Unlike GetByIdentifier, a Language constraint
// elsewhere in a combined query would not be resolved through fallback.
func (l *Library) GetByIdentifierStrict(name string) (*Template, error) {
	t, err := l.inner.GetByIdentifierStrict(name)
	return t, wrapErr(err)
}

// GetByIdentifier returns the one template carrying Identifier name,
// regardless of what other metadata it carries.
func (l *Library) GetByIdentifier(name string) (*Template, error) {
	t, err := l.inner.GetByIdentifier(name)
	return t, wrapErr(err)
}

// GetAllByIdentifier returns every template carrying Identifier name.
func (l *Library) GetAllByIdentifier(name string) ([]*Template, error) {
	ts, err := l.inner.GetAllByIdentifier(name)
	return ts, wrapErr(err)
}

// GetAllByIdentifierStrict returns every template carrying Identifier
// name, whatever other metadata it carries, without language fallback.
func (l *Library) GetAllByIdentifierStrict(name string) ([]*Template, error) {
	ts, err := l.inner.GetAllByIdentifierStrict(name)
	return ts, wrapErr(err)
}

// Templates returns every template currently registered in l, in
// registration order. Used by tooling (cmd/vellumctl) that needs to
// enumerate a freshly parsed source rather than query it by metadata.
func (l *Library) Templates() []*Template {
	all, _ := l.inner.GetAllStrictBestEffort()
	return all
}
