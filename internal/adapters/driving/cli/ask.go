package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats for ask.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	askFiles  []string
	askFormat string
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer a single question from files",
	Long: `Index the given files into a fresh session and answer one question.

In text format the answer is streamed as it is generated, followed by the
cited sources. The ingestion summary is printed to stderr.

Examples:
  sercha-rag ask -f report.pdf "What was the revenue in 2023?"
  sercha-rag ask -f a.pdf -f notes.md --format json "Summarise the findings"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askFiles, "file", "f", nil, "file to index (repeatable)")
	askCmd.Flags().StringVar(&askFormat, "format", formatText, "output format: text, json or yaml")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if len(askFiles) == 0 {
		return errors.New("at least one --file is required")
	}
	switch askFormat {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", askFormat)
	}

	session, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(session)

	if err := ingestPaths(cmd.Context(), cmd.ErrOrStderr(), session, askFiles); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var onFragment func(string) error
	if askFormat == formatText {
		onFragment = func(fragment string) error {
			_, err := fmt.Fprint(out, fragment)
			return err
		}
	}

	answer, err := session.Ask(cmd.Context(), args[0], onFragment)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	switch askFormat {
	case formatJSON:
		data, err := json.MarshalIndent(newAnswerOutput(answer), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case formatYAML:
		data, err := yaml.Marshal(newAnswerOutput(answer))
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprint(out, string(data))
	default:
		fmt.Fprintln(out)
		printSources(out, answer)
	}
	return nil
}
