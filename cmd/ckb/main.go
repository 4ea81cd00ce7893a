// Command ckb is the node's CLI entrypoint, one file per subcommand.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitGenericError = 1
	ExitConfigError  = 2
	ExitIOError      = 3
)

var workDir string

func main() {
	root := &cobra.Command{
		Use:   "ckb",
		Short: "CKB full node",
	}
	root.PersistentFlags().StringVarP(&workDir, "dir", "C", ".", "working directory")

	root.AddCommand(
		runCmd(),
		minerCmd(),
		exportCmd(),
		importCmd(),
		initCmd(),
		resetDataCmd(),
		statsCmd(),
		listHashesCmd(),
		peerIDCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to its exit code. Errors
// from this package are tagged via cliError; anything else is generic.
func exitCodeFor(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ExitGenericError
}

// cliError carries the exit code a subcommand wants on failure.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func configError(err error) error { return &cliError{code: ExitConfigError, err: err} }
func ioError(err error) error     { return &cliError{code: ExitIOError, err: err} }
