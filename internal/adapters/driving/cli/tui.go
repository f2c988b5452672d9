package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui"
)

var tuiFiles []string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Chat in a full-screen terminal UI",
	Long: `Open a full-screen chat over a new session. Answers stream in and
their sources are listed underneath.

  Enter       send the question or /command
  Ctrl+X      stop the answer being written
  PgUp/PgDn   scroll
  F1          help
  Ctrl+C      quit

  /upload <file> [file...]   index files
  /quit                      leave`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringArrayVarP(&tuiFiles, "file", "f", nil, "file to index on start (repeatable)")
	rootCmd.AddCommand(tuiCmd)
}

// runTUI reports a panic inside the program as an error carrying its stack.
func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tui panic: %v\n%s", r, debug.Stack())
		}
	}()

	session, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(session)

	app, err := tui.NewApp(&tui.Ports{Session: session})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).WithFiles(tuiFiles).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
