package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Retriever ranks chunks against a query.
// Implemented by both the dense and the lexical index so they can be merged
// generically.
type Retriever interface {
	// Name identifies the retriever in logs and errors.
	Name() string

	// Search returns up to k chunks, most relevant first.
	Search(ctx context.Context, query string, k int) ([]domain.Chunk, error)
}

// DenseIndex is a vector-similarity index over embedded chunks.
// It grows by appending and never shrinks or reorders.
type DenseIndex interface {
	Retriever

	// Extend embeds chunks and appends them in place.
	// On error the index is left exactly as it was.
	Extend(ctx context.Context, chunks []domain.Chunk) error

	// Len returns the number of indexed chunks.
	Len() int
}

// DenseIndexFactory creates dense indexes.
type DenseIndexFactory interface {
	// Create builds a fresh index from chunks.
	// Returns domain.ErrEmptyIndex when chunks is empty.
	Create(ctx context.Context, chunks []domain.Chunk) (DenseIndex, error)
}

// LexicalIndex is a term-frequency ranking index.
// It has no append primitive: a changed chunk set requires a full rebuild.
type LexicalIndex interface {
	Retriever

	// Len returns the number of indexed chunks.
	Len() int
}

// LexicalIndexBuilder builds lexical indexes from scratch.
type LexicalIndexBuilder interface {
	// Build indexes the complete chunk collection.
	Build(ctx context.Context, chunks []domain.Chunk) (LexicalIndex, error)
}
