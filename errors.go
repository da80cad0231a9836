package vellum

import (
	"strconv"

	"github.com/itsatony/go-cuserr"

	"github.com/romecore/vellum/internal"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	ErrMsgParseFailed     = "template parsing failed"
	ErrMsgRenderFailed     = "template rendering failed"
	ErrMsgLibraryRetrieval = "template library retrieval failed"
	ErrMsgNoMatch          = "no template matches the given metadata query"
	ErrMsgAmbiguousMatch   = "more than one template matches the given metadata query"
	ErrMsgDuplicateMetadata = "a template with identical metadata is already registered"
)

// Error code constants for categorization, mirroring the internal
// taxonomy (internal/constants.go) on the public surface.
const (
	ErrCodeParse   = "VELLUM_PARSE"
	ErrCodeRuntime = "VELLUM_RUNTIME"
	ErrCodeLibrary = "VELLUM_LIBRARY"
)

// Metadata keys attached to wrapped errors.
const (
	MetaKeyLine     = "line"
	MetaKeyColumn   = "column"
	MetaKeyOffset   = "offset"
	MetaKeyKind     = "kind"
	MetaKeyExpected = "expected"
	MetaKeyActual   = "actual"
	MetaKeyNode     = "node"
	MetaKeyValue    = "value"
)

// Position mirrors internal.Position for callers who want to report a
// source location without importing the internal package directly.
type Position struct {
	Offset int
	Line   int
	Column int
}

func positionFrom(p internal.Position) Position {
	return Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}

// NewParseError wraps an internal.ParseError into a cuserr validation
// error carrying the offending position and expectation as metadata,
// so CLI and API callers get a uniform error shape regardless of which
// stage of the pipeline failed.
func NewParseError(pe *internal.ParseError) error {
	return cuserr.NewValidationError(ErrCodeParse, ErrMsgParseFailed).
		WithMetadata(MetaKeyKind, string(pe.Kind)).
		WithMetadata(MetaKeyLine, strconv.Itoa(pe.Pos.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(pe.Pos.Column)).
		WithMetadata(MetaKeyOffset, strconv.Itoa(pe.Pos.Offset)).
		WithMetadata(MetaKeyExpected, pe.Expected).
		WithMetadata(MetaKeyActual, pe.Actual)
}

// NewRenderError wraps an internal.RuntimeError raised while evaluating
// or rendering a template.
func NewRenderError(re *internal.RuntimeError) error {
	err := cuserr.WrapStdError(re, ErrCodeRuntime, ErrMsgRenderFailed).
		WithMetadata(MetaKeyKind, string(re.Kind)).
		WithMetadata(MetaKeyNode, re.Node)
	if re.Value != nil {
		err = err.WithMetadata(MetaKeyValue, internal.FromNative(re.Value).String())
	}
	return err
}

// NewNoMatchError reports that a metadata query matched zero templates.
func NewNoMatchError() error {
	return cuserr.NewNotFoundError(ErrCodeLibrary, ErrMsgNoMatch)
}

// NewAmbiguousMatchError reports that a metadata query matched more
// than one template when a single result was required.
func NewAmbiguousMatchError(count int) error {
	return cuserr.NewValidationError(ErrCodeLibrary, ErrMsgAmbiguousMatch).
		WithMetadata("match_count", strconv.Itoa(count))
}

// wrapErr translates an internal parse/runtime error into the public
// cuserr-based taxonomy. Errors of any other shape (e.g. already a
// *cuserr.CustomError, or an opaque caller error) pass through
// unchanged.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *internal.ParseError:
		return NewParseError(e)
	case *internal.RuntimeError:
		return NewRenderError(e)
	default:
		return err
	}
}
