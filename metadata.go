package vellum

import "github.com/romecore/vellum/internal"

// Metadata is the open interface for values attached to a Template:
// Identifier, Language, TargetModel, TargetModelFamily, or a
// caller-defined implementation (spec section 5).
type Metadata = internal.Metadata

// Identifier tags a template with a stable name, queried via
// GetByIdentifier and its variants.
func Identifier(name string) Metadata { return internal.NewIdentifier(name) }

// Language tags a template with a BCP-47-like language code. Retrieval
// with fallback walks sub-language, super-language, topmost, and
// major-world-language siblings before giving up (spec section 4.8).
func Language(code string) Metadata { return internal.NewLanguage(code) }

// TargetModel tags a template as tuned for one specific model name,
// matched case-insensitively.
func TargetModel(name string) Metadata { return internal.NewTargetModel(name) }

// TargetModelFamily tags a template as tuned for a family of models
// (e.g. "gpt-4", "claude"), matched case-insensitively.
func TargetModelFamily(name string) Metadata { return internal.NewTargetModelFamily(name) }
