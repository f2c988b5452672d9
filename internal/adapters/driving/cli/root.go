// Package cli provides the cobra command tree for sercha-rag.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Runtime holds what the session commands need.
type Runtime struct {
	// Sessions starts chat sessions.
	Sessions driving.SessionService

	// Accepts reports whether a file name has an allowed type.
	Accepts func(name string) bool

	// Warnings are non-fatal provider issues to show the user.
	Warnings []string

	// Close releases provider resources. May be nil.
	Close func() error
}

// RuntimeFactory builds the runtime from the current settings.
// It is called on first use so that settings and version work
// without a reachable AI provider.
type RuntimeFactory func(ctx context.Context) (*Runtime, error)

var (
	settingsService driving.SettingsService
	runtimeFactory  RuntimeFactory

	runtimeOnce   sync.Once
	activeRuntime *Runtime
	runtimeErr    error

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Ask questions about your documents",
	Long: `sercha-rag indexes PDF, text and markdown files into a per-session
hybrid index and answers questions from them with citations.

Each run starts a fresh session. Retrieval combines semantic (embedding)
search with keyword (BM25) search, and follow-up questions are rewritten
using the conversation so far.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices injects the settings service and the runtime factory.
func SetServices(settings driving.SettingsService, factory RuntimeFactory) {
	settingsService = settings
	runtimeFactory = factory
	runtimeOnce = sync.Once{}
	activeRuntime, runtimeErr = nil, nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeRuntime()
	return rootCmd.ExecuteContext(ctx)
}

// loadRuntime builds the runtime once and prints its warnings.
func loadRuntime(cmd *cobra.Command) (*Runtime, error) {
	runtimeOnce.Do(func() {
		if runtimeFactory == nil {
			runtimeErr = errors.New("session services not configured")
			return
		}
		activeRuntime, runtimeErr = runtimeFactory(cmd.Context())
		if runtimeErr != nil {
			return
		}
		for _, w := range activeRuntime.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
		}
	})
	return activeRuntime, runtimeErr
}

func closeRuntime() {
	if activeRuntime != nil && activeRuntime.Close != nil {
		if err := activeRuntime.Close(); err != nil {
			logger.Warn("closing providers: %v", err)
		}
	}
}

// startSession starts an empty session. The caller closes it.
func startSession(cmd *cobra.Command) (driving.ChatSession, error) {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return nil, err
	}

	session, err := rt.Sessions.Start(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	logger.Debug("session %s in %s", session.ID(), session.Folder())
	return session, nil
}

// closeSession closes the session, logging any failure.
func closeSession(session driving.ChatSession) {
	if err := session.Close(); err != nil {
		logger.Warn("closing session: %v", err)
	}
}
