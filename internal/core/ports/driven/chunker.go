package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Chunker splits page-level documents into semantically coherent chunks.
// Implementations must not return a partial chunk list on failure.
type Chunker interface {
	// Split chunks the whole batch. Breakpoints may depend on statistics
	// computed over every document in the batch.
	Split(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error)
}
