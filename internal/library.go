package internal

import (
	"strings"
	"sync"
)

// TemplateKind distinguishes what a Template renders to.
type TemplateKind int

const (
	TemplateKindPrompt TemplateKind = iota
	TemplateKindMessages
	TemplateKindPlaintext
)

func (k TemplateKind) String() string {
	switch k {
	case TemplateKindPrompt:
		return "prompt"
	case TemplateKindMessages:
		return "messages"
	case TemplateKindPlaintext:
		return "plaintext"
	default:
		return "unknown"
	}
}

// Template is a parsed, self-contained template body plus the
// metadata it was registered under (spec section 5). Exactly one of
// TextBody/MessagesBody/PlainContent is meaningful, selected by Kind.
type Template struct {
	ID           string
	Kind         TemplateKind
	Name         string
	TextBody     TextNode
	MessagesBody MessagesNode
	PlainContent string
	Metadata     *MetadataCollection
	Library      *Library
}

// Render produces the template's text output. It fails with
// TemplateKindMismatch if the template is a Messages template.
func (t *Template) Render(ctx *ContextAccessor) (string, error) {
	switch t.Kind {
	case TemplateKindPrompt:
		return renderText(t.TextBody, ctx)
	case TemplateKindPlaintext:
		return t.PlainContent, nil
	default:
		return "", NewRuntimeError(RuntimeErrTemplateKindMismatch, t.Name, t.Kind, "template does not produce text")
	}
}

// RenderMessages produces the template's ordered {role, text} pairs.
// It fails with TemplateKindMismatch for any non-Messages template.
func (t *Template) RenderMessages(ctx *ContextAccessor) ([]Message, error) {
	if t.Kind != TemplateKindMessages {
		return nil, NewRuntimeError(RuntimeErrTemplateKindMismatch, t.Name, t.Kind, "template does not produce messages")
	}
	return renderMessages(t.MessagesBody, ctx)
}

// Library is a concurrency-safe set of templates, queried by metadata.
// A single mutex guards the whole index (spec's Open Question on
// retrieval granularity resolved in favor of simplicity — see
// DESIGN.md — a library is expected to hold at most a few hundred
// templates, not a hot per-request write path).
type Library struct {
	mu        sync.RWMutex
	templates []*Template
}

func NewLibrary() *Library { return &Library{} }

// Add registers t unconditionally, overwriting nothing (duplicate
// metadata sets are legal — retrieval disambiguates by order or by
// narrowing the query further).
func (lib *Library) Add(t *Template) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	t.Library = lib
	lib.templates = append(lib.templates, t)
}

// TryAdd rejects t if an existing template carries an identical
// metadata multiset (same set of Hash() values), since such a
// template could never be disambiguated by any query.
func (lib *Library) TryAdd(t *Template) error {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	for _, existing := range lib.templates {
		if sameMetadataSet(existing.Metadata, t.Metadata) {
			return NewRuntimeError(RuntimeErrTemplateNotFound, t.Name, nil, "a template with identical metadata is already registered")
		}
	}
	t.Library = lib
	lib.templates = append(lib.templates, t)
	return nil
}

func (lib *Library) AddRange(ts []*Template) {
	for _, t := range ts {
		lib.Add(t)
	}
}

func (lib *Library) TryAddRange(ts []*Template) error {
	for _, t := range ts {
		if err := lib.TryAdd(t); err != nil {
			return err
		}
	}
	return nil
}

func sameMetadataSet(a, b *MetadataCollection) bool {
	if a == nil || b == nil {
		return a == b
	}
	av, bv := a.All(), b.All()
	if len(av) != len(bv) {
		return false
	}
	seen := make([]bool, len(bv))
	for _, m := range av {
		found := false
		for i, o := range bv {
			if seen[i] {
				continue
			}
			if m.TypeKey() == o.TypeKey() && m.Equal(o) {
				seen[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ---- retrieval ----

type languageMode int

const (
	languageStrict languageMode = iota
	languageWithFallback
)

type failMode int

const (
	failExact failMode = iota
	failBestEffort
)

// retrieve narrows the full template set by intersecting it against
// each constraint in query, in order (spec section 4.7). Under
// with_fallback mode, a Language constraint is resolved through the
// sub/super/topmost/major-language/language-neutral chain instead of
// requiring an exact tag match; under best_effort mode, a constraint
// after the first that matches nothing is dropped instead of failing
// the whole query. The first constraint is never dropped: if it
// matches nothing, the query fails in every mode.
func (lib *Library) retrieve(query []Metadata, lm languageMode, fm failMode) ([]*Template, error) {
	lib.mu.RLock()
	candidates := append([]*Template(nil), lib.templates...)
	lib.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, NewRuntimeError(RuntimeErrTemplateNotFound, "", nil, "library is empty")
	}

	for i, constraint := range query {
		if lang, ok := constraint.(LanguageMetadata); ok && lm == languageWithFallback {
			narrowed, found := narrowByLanguageFallback(candidates, lang)
			if found {
				candidates = narrowed
				continue
			}
			if fm == failExact || i == 0 {
				return nil, NewRuntimeError(RuntimeErrTemplateNotFound, "", lang, "no template matches language "+string(lang.Code)+" or any fallback")
			}
			continue
		}
		matched := filterByMetadata(candidates, constraint)
		if len(matched) > 0 {
			candidates = matched
			continue
		}
		if fm == failExact || i == 0 {
			return nil, NewRuntimeError(RuntimeErrTemplateNotFound, "", constraint, "no template matches "+constraint.String())
		}
	}

	if len(candidates) == 0 {
		return nil, NewRuntimeError(RuntimeErrTemplateNotFound, "", nil, "no template matches query")
	}
	return candidates, nil
}

func filterByMetadata(ts []*Template, m Metadata) []*Template {
	var out []*Template
	for _, t := range ts {
		if t.Metadata != nil && t.Metadata.Has(m) {
			out = append(out, t)
		}
	}
	return out
}

func filterByLanguage(ts []*Template, code LanguageCode) []*Template {
	return filterByMetadata(ts, LanguageMetadata{Code: code})
}

// narrowByLanguageFallback implements the fallback chain: exact tag,
// then successively broader super-languages, then the topmost
// segment, then any sibling dialect under the same major-world-
// language topmost, then any language-neutral template.
func narrowByLanguageFallback(ts []*Template, want LanguageMetadata) ([]*Template, bool) {
	if m := filterByMetadata(ts, want); len(m) > 0 {
		return m, true
	}
	code := want.Code
	for {
		super, ok := code.SuperLanguage()
		if !ok {
			break
		}
		if m := filterByLanguage(ts, super); len(m) > 0 {
			return m, true
		}
		code = super
	}
	top := want.Code.Topmost()
	if m := filterByLanguage(ts, top); len(m) > 0 {
		return m, true
	}
	if majorWorldLanguages[strings.ToLower(string(top))] {
		var siblings []*Template
		for _, t := range ts {
			if t.Metadata == nil {
				continue
			}
			for _, lm := range MetadataGetAll[LanguageMetadata](t.Metadata) {
				if strings.EqualFold(string(lm.Code.Topmost()), string(top)) {
					siblings = append(siblings, t)
					break
				}
			}
		}
		if len(siblings) > 0 {
			return siblings, true
		}
	}
	var neutral []*Template
	for _, t := range ts {
		if t.Metadata == nil || !MetadataHasType[LanguageMetadata](t.Metadata) {
			neutral = append(neutral, t)
		}
	}
	if len(neutral) > 0 {
		return neutral, true
	}
	return nil, false
}

func (lib *Library) single(query []Metadata, lm languageMode, fm failMode) (*Template, error) {
	ts, err := lib.retrieve(query, lm, fm)
	if err != nil {
		return nil, err
	}
	return ts[0], nil
}

// GetSingleStrictExact requires an exact match on every constraint and
// fails if the final intersection is empty. When more than one
// template survives (the query under-specifies), the first survivor
// in registration order is returned, per the "last template to
// survive intersection is the most specific" rule in spec section 4.8
// — a caller wanting to detect ambiguity should use GetAllStrictExact
// and check the result length itself.
func (lib *Library) GetSingleStrictExact(query ...Metadata) (*Template, error) {
	return lib.single(query, languageStrict, failExact)
}

// GetSingleStrictBestEffort requires exact metadata matches but drops
// any constraint after the first that matches nothing rather than
// failing.
func (lib *Library) GetSingleStrictBestEffort(query ...Metadata) (*Template, error) {
	return lib.single(query, languageStrict, failBestEffort)
}

// GetSingleWithFallbackExact resolves Language constraints through the
// fallback chain but still fails if a constraint (language included)
// matches nothing even after fallback.
func (lib *Library) GetSingleWithFallbackExact(query ...Metadata) (*Template, error) {
	return lib.single(query, languageWithFallback, failExact)
}

// GetSingleWithFallbackBestEffort is the most permissive single-result
// variant: Language fallback applies, and any constraint after the
// first that matches nothing is simply dropped.
func (lib *Library) GetSingleWithFallbackBestEffort(query ...Metadata) (*Template, error) {
	return lib.single(query, languageWithFallback, failBestEffort)
}

func (lib *Library) GetAllStrictExact(query ...Metadata) ([]*Template, error) {
	return lib.retrieve(query, languageStrict, failExact)
}

func (lib *Library) GetAllStrictBestEffort(query ...Metadata) ([]*Template, error) {
	return lib.retrieve(query, languageStrict, failBestEffort)
}

func (lib *Library) GetAllWithFallbackExact(query ...Metadata) ([]*Template, error) {
	return lib.retrieve(query, languageWithFallback, failExact)
}

func (lib *Library) GetAllWithFallbackBestEffort(query ...Metadata) ([]*Template, error) {
	return lib.retrieve(query, languageWithFallback, failBestEffort)
}

// ---- identifier-first convenience wrappers ----

func (lib *Library) GetByIdentifierStrict(name string) (*Template, error) {
	return lib.GetSingleStrictExact(NewIdentifier(name))
}

func (lib *Library) GetByIdentifier(name string) (*Template, error) {
	return lib.GetSingleWithFallbackBestEffort(NewIdentifier(name))
}

func (lib *Library) GetAllByIdentifier(name string) ([]*Template, error) {
	return lib.GetAllWithFallbackBestEffort(NewIdentifier(name))
}

func (lib *Library) GetAllByIdentifierStrict(name string) ([]*Template, error) {
	return lib.GetAllStrictExact(NewIdentifier(name))
}

// sharedLibrary is the process-wide fallback target `@render` consults
// when the current template's own library has no match (spec section
// 4.8).
var sharedLibrary = NewLibrary()

func SharedLibrary() *Library { return sharedLibrary }
