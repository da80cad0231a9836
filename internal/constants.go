package internal

// Keyword constants for the template and expression grammars.
const (
	KeywordIf      = "if"
	KeywordElse    = "else"
	KeywordForeach = "foreach"
	KeywordIn      = "in"
	KeywordLet     = "let"
	KeywordRender  = "render"
	KeywordCtx     = "ctx"
	KeywordTrue    = "true"
	KeywordFalse   = "false"
	KeywordNull    = "null"
	KeywordWith    = "with"
)

// Top-level declaration and directive keywords (spec section 4.1, 4.6).
const (
	KeywordTemplateDecl = "template"
	KeywordMessagesDecl = "messages"
	KeywordMetadata     = "metadata"
	KeywordMessage      = "message"
)

// Directive sigil. The grammar is Razor-like: every control construct is
// introduced by this rune followed immediately by a keyword or brace.
const DirectiveSigil = '@'

// Operator strings recognized by the expression tokenizer.
const (
	OpQuestion  = "?"
	OpColon     = ":"
	OpOr        = "||"
	OpAnd       = "&&"
	OpEq        = "=="
	OpNeq       = "!="
	OpLt        = "<"
	OpLte       = "<="
	OpGt        = ">"
	OpGte       = ">="
	OpAdd       = "+"
	OpSub       = "-"
	OpMul       = "*"
	OpDiv       = "/"
	OpMod       = "%"
	OpNot       = "!"
	OpDot       = "."
	OpComma     = ","
	OpLParen    = "("
	OpRParen    = ")"
	OpLBracket  = "["
	OpRBracket  = "]"
	OpLBrace    = "{"
	OpRBrace    = "}"
)

// Message entry role names (spec section 4.6).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Built-in function names (spec section 4.9).
const (
	FuncLength = "length"
	FuncStrcat = "strcat"
	FuncSubstr = "substr"
)

// Frame stack defaults.
const (
	DefaultMaxFrameDepth = 1000
)

// Error code constants used throughout the internal error taxonomy.
const (
	ErrCodeLex     = "VELLUM_LEX"
	ErrCodeParse   = "VELLUM_PARSE"
	ErrCodeRuntime = "VELLUM_RUNTIME"
	ErrCodeLibrary = "VELLUM_LIBRARY"
)

// Metadata keys attached to wrapped errors.
const (
	MetaKeyLine      = "line"
	MetaKeyColumn    = "column"
	MetaKeyOffset    = "offset"
	MetaKeyKind      = "kind"
	MetaKeyExpected  = "expected"
	MetaKeyActual    = "actual"
	MetaKeyPath      = "path"
	MetaKeyValue     = "value"
	MetaKeyOperator  = "operator"
	MetaKeyMethod    = "method"
	MetaKeyFunction  = "function"
	MetaKeyDepth     = "depth"
	MetaKeyMaxDepth  = "max_depth"
	MetaKeyTemplate  = "template"
	MetaKeyLanguage  = "language"
	MetaKeyRole      = "role"
	MetaKeyFormat    = "format"
)
