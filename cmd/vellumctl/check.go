package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/romecore/vellum/internal"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <template-file>",
		Short: "Parse a template and report syntax errors with a source caret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func runCheck(path string, stdout io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return newCLIError(ExitCodeInputError, fmt.Errorf("%s: %w", ErrMsgReadTemplateFailed, err))
	}

	lib, err := internal.ParseSource(string(src))
	if err != nil {
		var pe *internal.ParseError
		if errors.As(err, &pe) {
			fmt.Fprintln(stdout, formatParseError(path, string(src), pe))
		}
		return newCLIError(ExitCodeValidationError, fmt.Errorf("%s: %w", ErrMsgParseFailed, err))
	}

	templates, _ := lib.GetAllStrictBestEffort()
	fmt.Fprintf(stdout, "ok: %d template(s)\n", len(templates))
	return nil
}

// formatParseError renders a GCC/rustc-style three-line diagnostic:
// a header with path:line:column, the offending source line, and a
// caret placed under the failing column. runewidth accounts for wide
// runes so the caret lines up even when the source contains CJK text
// before the error column.
func formatParseError(path, src string, pe *internal.ParseError) string {
	lines := strings.Split(src, "\n")
	var lineText string
	if pe.Pos.Line >= 1 && pe.Pos.Line <= len(lines) {
		lineText = lines[pe.Pos.Line-1]
	}
	col := pe.Pos.Column
	if col < 1 {
		col = 1
	}
	if col > len(lineText)+1 {
		col = len(lineText) + 1
	}
	prefix := lineText[:col-1]
	caret := strings.Repeat(" ", runewidth.StringWidth(prefix)) + "^"
	header := fmt.Sprintf("%s:%d:%d: %s", path, pe.Pos.Line, pe.Pos.Column, pe.Error())
	return strings.Join([]string{header, lineText, caret}, "\n")
}
