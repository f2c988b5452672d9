// Command sercha-rag answers questions about uploaded documents from a
// per-session hybrid index.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/index/dense"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/index/lexical"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/loader"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/chunker"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := file.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		return err
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening config: %v\n", err)
		return err
	}
	for _, name := range configStore.ApplyEnv() {
		logger.Warn("ignoring %s: not a valid value", name)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewPinger())
	settings, err := settingsService.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading settings: %v\n", err)
		return err
	}
	if level, err := logger.ParseLevel(settings.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	cli.SetVersion(version)
	cli.SetServices(settingsService, newRuntimeFactory(settingsService))

	// cobra prints the error itself.
	return cli.Execute(ctx)
}

// newRuntimeFactory wires the providers, pipelines and session service
// from the current settings.
func newRuntimeFactory(settingsService driving.SettingsService) cli.RuntimeFactory {
	return func(ctx context.Context) (*cli.Runtime, error) {
		settings, err := settingsService.Get()
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		// Unconfigured providers are reported by ai.Init with a fix hint.
		if err := settingsService.Validate(); err != nil &&
			!errors.Is(err, domain.ErrEmbeddingUnavailable) && !errors.Is(err, domain.ErrLLMUnavailable) {
			return nil, fmt.Errorf("invalid settings: %w", err)
		}

		providers, err := ai.Init(ctx, settings)
		if err != nil {
			return nil, err
		}

		prompts, err := file.NewPromptStore("")
		if err != nil {
			_ = providers.Close()
			return nil, err
		}

		docs := loader.FromSettings(settings.Session)
		semantic := chunker.New(providers.Embedding,
			chunker.WithBreakpointPercentile(settings.Chunking.BreakpointPercentile),
			chunker.WithBufferSize(settings.Chunking.BufferSize),
		)

		ingestion := services.NewIngestionPipeline(semantic, dense.NewFactory(providers.Embedding), lexical.NewBuilder())
		query := services.NewQueryPipeline(providers.LLM, prompts, services.QueryConfigFromSettings(settings))

		sessions := services.NewSessionService(services.SessionDeps{
			Loader:     docs,
			Ingestion:  ingestion,
			Query:      query,
			LLM:        providers.LLM,
			Prompts:    prompts,
			NewHistory: openHistory,
		}, settings)

		return &cli.Runtime{
			Sessions: sessions,
			Accepts:  docs.Accepts,
			Warnings: providers.Warnings,
			Close:    providers.Close,
		}, nil
	}
}

// openHistory keeps the conversation in the session folder and falls back
// to memory when the database cannot be opened there.
func openHistory(folder string) (driven.HistoryStore, error) {
	h, err := sqlite.Open(folder)
	if err != nil {
		logger.Warn("history database unavailable, keeping history in memory: %v", err)
		return memory.Open(folder)
	}
	return h, nil
}
