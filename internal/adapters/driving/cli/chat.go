package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/watcher"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// maxLineSize bounds a single line of chat input.
const maxLineSize = 1024 * 1024

const chatHelp = `Commands:
  /upload <file> [file...]  Index files into this session
  /history                  Show the conversation so far
  /help                     Show this help
  /quit                     Exit
Anything else is asked as a question.`

var (
	chatFiles []string
	chatWatch string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat over your files",
	Long: `Start a session and answer questions read line by line from stdin.

Files can be indexed up front with --file, during the chat with /upload,
or picked up automatically from a folder with --watch. Follow-up questions
are rewritten using the conversation so far.

` + chatHelp,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringArrayVarP(&chatFiles, "file", "f", nil, "file to index before chatting (repeatable)")
	chatCmd.Flags().StringVarP(&chatWatch, "watch", "w", "", "index files added to this folder")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	session, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(session)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := &lockedWriter{w: cmd.OutOrStdout()}
	fmt.Fprintf(out, "Session %s started. Type /help for commands.\n", session.ID())

	if len(chatFiles) > 0 {
		if err := ingestPaths(ctx, out, session, chatFiles); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}

	var wg sync.WaitGroup
	if chatWatch != "" {
		if err := watchFolder(ctx, cmd, session, out, &wg); err != nil {
			return err
		}
	}

	err = chatLoop(ctx, cmd.InOrStdin(), out, session)

	// Stop the watcher before the session is closed.
	cancel()
	wg.Wait()
	return err
}

// watchFolder indexes the accepted files already in the folder, then keeps
// indexing new or changed ones in the background until ctx is done.
func watchFolder(
	ctx context.Context,
	cmd *cobra.Command,
	session driving.ChatSession,
	out io.Writer,
	wg *sync.WaitGroup,
) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	w := watcher.New(chatWatch, rt.Accepts, watcher.DefaultDebounce)
	existing, err := w.Existing()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if len(existing) > 0 {
		if err := ingestPaths(ctx, out, session, existing); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}

	batches, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	fmt.Fprintf(out, "Watching %s for new files\n", w.Dir())

	wg.Add(1)
	go func() {
		defer wg.Done()
		for batch := range batches {
			logger.Debug("watcher picked up %d file(s)", len(batch))
			if err := ingestPaths(ctx, out, session, batch); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
	}()
	return nil
}

// chatLoop reads questions and commands until EOF or /quit. A failed
// question prints one error line and the loop continues.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, session driving.ChatSession) error {
	interactive := isTerminal(in)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runChatCommand(ctx, out, session, line); quit {
				return nil
			}
			continue
		}

		answer, err := session.Ask(ctx, line, func(fragment string) error {
			_, err := fmt.Fprint(out, fragment)
			return err
		})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out)
		printSources(out, answer)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// runChatCommand runs a slash command and reports whether to quit.
func runChatCommand(ctx context.Context, out io.Writer, session driving.ChatSession, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/upload":
		if len(fields) == 1 {
			fmt.Fprintln(out, "Usage: /upload <file> [file...]")
			break
		}
		if err := ingestPaths(ctx, out, session, fields[1:]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	case "/history":
		turns, err := session.History(ctx)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			break
		}
		if len(turns) == 0 {
			fmt.Fprintln(out, "No conversation yet.")
			break
		}
		for _, t := range turns {
			fmt.Fprintf(out, "%s: %s\n", t.Role, t.Content)
		}
	default:
		fmt.Fprintf(out, "Unknown command %s. Type /help for commands.\n", fields[0])
	}
	return false
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
