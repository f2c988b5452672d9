// Package dense provides an exact in-memory vector index.
//
// Vectors are L2-normalised on insertion, so search is a dot product against
// every stored vector. The index only grows: Extend appends and nothing is
// ever removed or reordered.
package dense

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Name identifies the dense retriever.
const Name = domain.RetrieverDense

// Ensure Index implements the interfaces.
var (
	_ driven.DenseIndex        = (*Index)(nil)
	_ driven.DenseIndexFactory = (*Factory)(nil)
)

// Index stores chunks with their normalised embeddings.
type Index struct {
	embedder driven.EmbeddingService

	mu      sync.RWMutex
	chunks  []domain.Chunk
	vectors [][]float32
	dims    int
}

// Create embeds chunks and builds a new index.
// Returns domain.ErrEmptyIndex when chunks is empty.
func Create(ctx context.Context, embedder driven.EmbeddingService, chunks []domain.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	idx := &Index{embedder: embedder}
	if err := idx.Extend(ctx, chunks); err != nil {
		return nil, err
	}
	return idx, nil
}

// Name returns the retriever name.
func (i *Index) Name() string {
	return Name
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// Extend embeds chunks and appends them.
// All embeddings are computed before the index is touched, so a failure
// leaves it unchanged.
func (i *Index) Extend(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for n := range chunks {
		texts[n] = chunks[n].Content
	}

	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	dims := i.dims
	for n, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("embed chunks: empty vector at %d", n)
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return fmt.Errorf("embed chunks: dimension mismatch: got %d, want %d", len(v), dims)
		}
	}

	normalised := make([][]float32, len(vectors))
	for n, v := range vectors {
		normalised[n] = normalize(v)
	}

	i.dims = dims
	i.chunks = append(i.chunks, chunks...)
	i.vectors = append(i.vectors, normalised...)

	logger.Debug("Dense index: +%d chunks, %d total, %d dims", len(chunks), len(i.chunks), dims)
	return nil
}

type scored struct {
	pos   int
	score float64
}

// Search embeds query and returns up to k nearest chunks by cosine similarity.
// Equal scores keep insertion order.
func (i *Index) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if k <= 0 {
		return []domain.Chunk{}, nil
	}

	qv, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.vectors) == 0 {
		return []domain.Chunk{}, nil
	}
	if len(qv) != i.dims {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(qv), i.dims)
	}

	q := normalize(qv)
	results := make([]scored, len(i.vectors))
	for n, v := range i.vectors {
		results[n] = scored{pos: n, score: dot(q, v)}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})

	if k > len(results) {
		k = len(results)
	}
	out := make([]domain.Chunk, k)
	for n := 0; n < k; n++ {
		out[n] = i.chunks[results[n].pos]
	}
	return out, nil
}

// Factory creates dense indexes bound to one embedder.
type Factory struct {
	embedder driven.EmbeddingService
}

// NewFactory creates a factory for embedder.
func NewFactory(embedder driven.EmbeddingService) *Factory {
	return &Factory{embedder: embedder}
}

// Create builds a new index from chunks.
func (f *Factory) Create(ctx context.Context, chunks []domain.Chunk) (driven.DenseIndex, error) {
	idx, err := Create(ctx, f.embedder, chunks)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for n, x := range v {
		out[n] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for n := range a {
		s += float64(a[n]) * float64(b[n])
	}
	return s
}
