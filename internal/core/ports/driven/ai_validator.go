package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ProviderValidator checks that configured providers answer before a
// session depends on them. A provider that is not configured is valid.
type ProviderValidator interface {
	ValidateEmbedding(ctx context.Context, cfg *domain.EmbeddingSettings) error
	ValidateLLM(ctx context.Context, cfg *domain.LLMSettings) error
}
