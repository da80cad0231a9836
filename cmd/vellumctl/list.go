package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/romecore/vellum"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <template-file>",
		Short: "Print every template declared in a source file, with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func runList(path string, stdout io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return newCLIError(ExitCodeInputError, fmt.Errorf("%s: %w", ErrMsgReadTemplateFailed, err))
	}

	engine := vellum.New()
	lib, err := engine.Parse(string(src))
	if err != nil {
		return newCLIError(ExitCodeValidationError, fmt.Errorf("%s: %w", ErrMsgParseFailed, err))
	}

	for _, tmpl := range lib.Templates() {
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", tmpl.Name, kindLabel(tmpl.Kind), formatMetadata(tmpl))
	}
	return nil
}

func kindLabel(k vellum.TemplateKind) string {
	switch k {
	case vellum.TemplateKindMessages:
		return "messages"
	case vellum.TemplateKindPlaintext:
		return "plaintext"
	default:
		return "prompt"
	}
}

func formatMetadata(tmpl *vellum.Template) string {
	if tmpl.Metadata == nil {
		return "-"
	}
	all := tmpl.Metadata.All()
	if len(all) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(all))
	for _, m := range all {
		parts = append(parts, m.TypeKey()+"="+m.String())
	}
	return strings.Join(parts, ", ")
}
