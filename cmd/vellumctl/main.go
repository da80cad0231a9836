package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cliError carries the exit code a failure should surface as, so main
// can translate any subcommand error into the right process exit
// status without every RunE reimplementing os.Exit bookkeeping.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func newCLIError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(reportAndExitCode(root.Name(), err))
	}
}

func reportAndExitCode(name string, err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		fmt.Fprintf(os.Stderr, FmtErrorWithCause, name, ce.err)
		return ce.code
	}
	fmt.Fprintf(os.Stderr, FmtErrorWithCause, name, err)
	return ExitCodeError
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vellumctl",
		Short:         "Parse, validate, and render vellum prompt/chat templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRenderCmd(), newCheckCmd(), newListCmd())
	return root
}
