package main

// Exit codes, mirroring the granularity of a caller-facing CLI that
// needs to tell "malformed invocation" from "bad template" from
// "couldn't read input" in scripts piping this tool's output.
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Flag names shared across subcommands.
const (
	FlagIdentifier = "identifier"
	FlagData       = "data"
	FlagDataFile   = "data-file"
	FlagOutput     = "output"
)

const (
	ErrMsgReadTemplateFailed = "failed to read template file"
	ErrMsgReadDataFailed     = "failed to read data file"
	ErrMsgInvalidDataJSON    = "failed to parse data JSON"
	ErrMsgParseFailed        = "template parse failed"
	ErrMsgRenderFailed       = "template render failed"
	ErrMsgWriteOutputFailed  = "failed to write output"
	ErrMsgNoTemplates        = "source contains no templates"
	ErrMsgAmbiguousTemplate  = "source contains more than one template; use --identifier to pick one"
	ErrMsgTemplateNotFound   = "no template matches the given identifier"

	FmtErrorWithCause = "error: %s: %v\n"
	FmtError          = "error: %s\n"
)
