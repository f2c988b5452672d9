// Package ai builds the embedding and LLM adapters named in the settings
// and checks that they answer before a session uses them.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// startupPingTimeout bounds each ping made by Init.
const startupPingTimeout = 5 * time.Second

const fixHint = "Run 'sercha-rag settings' to fix"

// Services are the providers a session runs with.
type Services struct {
	Embedding driven.EmbeddingService

	// LLM is nil when no LLM could be reached. Retrieval still works but
	// questions are neither rewritten nor answered.
	LLM driven.LLMService

	// Warnings explain why a provider was left out.
	Warnings []string
}

func (s *Services) Close() error {
	var errs []error
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	return errors.Join(errs...)
}

// Init opens both providers. The embedding provider is mandatory because
// nothing can be ingested without it; LLM problems become warnings.
func Init(ctx context.Context, settings *domain.AppSettings) (*Services, error) {
	embedding, err := OpenEmbedding(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured. %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, fixHint)
	}

	out := &Services{Embedding: embedding}
	switch llm, err := OpenLLM(ctx, &settings.LLM); {
	case err != nil:
		out.Warnings = append(out.Warnings, err.Error())
	case llm == nil:
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("LLM provider %q is not configured, answers are disabled", settings.LLM.Provider))
	default:
		out.LLM = llm
	}
	return out, nil
}

// OpenEmbedding builds the embedding service and pings it. It returns nil
// and no error when the settings are incomplete.
func OpenEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	return connect(ctx, svc, err, domain.ErrEmbeddingUnavailable)
}

// OpenLLM is OpenEmbedding for the LLM.
func OpenLLM(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	return connect(ctx, svc, err, domain.ErrLLMUnavailable)
}

type provider interface {
	Ping(ctx context.Context) error
	Close() error
}

// connect pings a freshly built service and closes it if the ping fails.
// Errors wrap unavailable and end with a hint on how to fix the settings.
func connect[S provider](ctx context.Context, svc S, err error, unavailable error) (S, error) {
	var none S
	if err != nil {
		return none, fmt.Errorf("%w: %w. %s", unavailable, err, fixHint)
	}
	if any(svc) == nil {
		return none, nil
	}

	ctx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return none, fmt.Errorf("%w: service unreachable (%w). %s", unavailable, err, fixHint)
	}
	return svc, nil
}

// CreateEmbeddingService builds the adapter for settings.Provider without
// contacting it. Incomplete settings give nil and no error.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	// Unknown models report 0 and learn their length from the first reply.
	dims := domain.EmbeddingDimensions()[settings.Model]

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dims,
		}), nil
	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dims,
		})
	case domain.AIProviderAnthropic:
		return nil, errors.New("anthropic has no embeddings API, use ollama or openai")
	}
	return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
}

// CreateLLMService is CreateEmbeddingService for the LLM.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	}
	return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
}
