package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/romecore/vellum"
)

func newRenderCmd() *cobra.Command {
	var identifier, dataJSON, dataFile, output string
	cmd := &cobra.Command{
		Use:   "render <template-file>",
		Short: "Render a template against JSON data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args[0], identifier, dataJSON, dataFile, output, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&identifier, FlagIdentifier, "", "select a template by its identifier metadata")
	cmd.Flags().StringVar(&dataJSON, FlagData, "", "inline JSON object used as render context")
	cmd.Flags().StringVar(&dataFile, FlagDataFile, "", "path to a JSON file used as render context")
	cmd.Flags().StringVar(&output, FlagOutput, "", "write output here instead of stdout")
	return cmd
}

func runRender(path, identifier, dataJSON, dataFile, output string, stdout io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return newCLIError(ExitCodeInputError, fmt.Errorf("%s: %w", ErrMsgReadTemplateFailed, err))
	}

	engine := vellum.New()
	lib, err := engine.Parse(string(src))
	if err != nil {
		return newCLIError(ExitCodeValidationError, fmt.Errorf("%s: %w", ErrMsgParseFailed, err))
	}

	tmpl, err := selectTemplate(lib, identifier)
	if err != nil {
		return newCLIError(ExitCodeUsageError, err)
	}

	data, err := loadData(dataJSON, dataFile)
	if err != nil {
		return newCLIError(ExitCodeInputError, err)
	}

	var rendered []byte
	switch tmpl.Kind {
	case vellum.TemplateKindMessages:
		msgs, err := engine.RenderMessages(tmpl, data)
		if err != nil {
			return newCLIError(ExitCodeError, fmt.Errorf("%s: %w", ErrMsgRenderFailed, err))
		}
		rendered, err = json.MarshalIndent(msgs, "", "  ")
		if err != nil {
			return newCLIError(ExitCodeError, err)
		}
	default:
		text, err := engine.RenderText(tmpl, data)
		if err != nil {
			return newCLIError(ExitCodeError, fmt.Errorf("%s: %w", ErrMsgRenderFailed, err))
		}
		rendered = []byte(text)
	}

	return writeOutput(output, rendered, stdout)
}

// selectTemplate picks the template a render invocation should act on:
// the one carrying Identifier(identifier) when given, or the
// library's sole template when it holds exactly one.
func selectTemplate(lib *vellum.Library, identifier string) (*vellum.Template, error) {
	if identifier != "" {
		tmpl, err := lib.GetByIdentifier(identifier)
		if err != nil {
			return nil, fmt.Errorf("%s: %q", ErrMsgTemplateNotFound, identifier)
		}
		return tmpl, nil
	}
	all := lib.Templates()
	switch len(all) {
	case 0:
		return nil, errors.New(ErrMsgNoTemplates)
	case 1:
		return all[0], nil
	default:
		return nil, errors.New(ErrMsgAmbiguousTemplate)
	}
}

func loadData(dataJSON, dataFile string) (map[string]any, error) {
	var raw []byte
	switch {
	case dataFile != "":
		content, err := os.ReadFile(dataFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgReadDataFailed, err)
		}
		raw = content
	case dataJSON != "":
		raw = []byte(dataJSON)
	default:
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgInvalidDataJSON, err)
	}
	return data, nil
}

func writeOutput(path string, content []byte, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(content)
		if err == nil {
			fmt.Fprintln(stdout)
		}
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return newCLIError(ExitCodeError, fmt.Errorf("%s: %w", ErrMsgWriteOutputFailed, err))
	}
	return nil
}
