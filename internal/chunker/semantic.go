// Package chunker provides a semantic text chunker.
//
// Documents are split into sentences, each sentence is embedded together with
// its neighbours, and a chunk boundary is placed wherever the cosine distance
// between adjacent sentences exceeds a percentile of all distances in the
// batch. Boundaries therefore follow the content's own variability rather
// than a fixed size.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Semantic implements the interface.
var _ driven.Chunker = (*Semantic)(nil)

// DefaultBreakpointPercentile is the default distance percentile for boundaries.
const DefaultBreakpointPercentile = 95.0

// DefaultBufferSize is the default number of neighbouring sentences on each
// side that are embedded together with a sentence.
const DefaultBufferSize = 1

// Semantic splits documents at embedding-distance breakpoints.
// It holds no mutable state, so one instance may serve concurrent calls.
type Semantic struct {
	embedder   driven.EmbeddingService
	percentile float64
	bufferSize int
	newID      func() string
}

// Option configures the semantic chunker.
type Option func(*Semantic)

// WithBreakpointPercentile sets the percentile (0, 100] of adjacent-sentence
// distances above which a boundary is placed.
func WithBreakpointPercentile(p float64) Option {
	return func(s *Semantic) {
		if p > 0 && p <= 100 {
			s.percentile = p
		}
	}
}

// WithBufferSize sets how many neighbouring sentences on each side are
// embedded with every sentence.
func WithBufferSize(n int) Option {
	return func(s *Semantic) {
		if n >= 0 {
			s.bufferSize = n
		}
	}
}

// WithIDGenerator overrides how chunk IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Semantic) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates a semantic chunker that embeds with embedder.
func New(embedder driven.EmbeddingService, opts ...Option) *Semantic {
	s := &Semantic{
		embedder:   embedder,
		percentile: DefaultBreakpointPercentile,
		bufferSize: DefaultBufferSize,
		newID:      func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// docSpan locates one document's sentences within the batch embedding list.
type docSpan struct {
	sentences []string
	offset    int
}

// Split chunks every document in the batch.
// The breakpoint threshold is computed over the distances of the whole batch.
// If embedding fails, no chunks are returned.
func (s *Semantic) Split(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	// Documents with fewer than two sentences need no embedding.
	spans := make([]docSpan, len(docs))
	var combined []string
	for i := range docs {
		sentences := splitSentences(docs[i].Content)
		spans[i] = docSpan{sentences: sentences, offset: len(combined)}
		if len(sentences) > 1 {
			combined = append(combined, combineSentences(sentences, s.bufferSize)...)
		}
	}

	var vectors [][]float32
	if len(combined) > 0 {
		logger.Debug("Chunker: embedding %d sentence windows from %d documents", len(combined), len(docs))
		var err error
		vectors, err = s.embedder.EmbedBatch(ctx, combined)
		if err != nil {
			return nil, fmt.Errorf("embed sentences: %w", err)
		}
		if len(vectors) != len(combined) {
			return nil, fmt.Errorf("embed sentences: got %d vectors for %d sentences", len(vectors), len(combined))
		}
	}

	distances := make([][]float64, len(docs))
	var all []float64
	for i, span := range spans {
		for j := 0; j+1 < len(span.sentences); j++ {
			d := cosineDistance(vectors[span.offset+j], vectors[span.offset+j+1])
			distances[i] = append(distances[i], d)
			all = append(all, d)
		}
	}

	threshold := percentile(all, s.percentile)
	logger.Debug("Chunker: %d distances, p%.0f threshold=%.4f", len(all), s.percentile, threshold)

	var chunks []domain.Chunk
	for i := range docs {
		for pos, text := range groupSentences(spans[i].sentences, distances[i], threshold) {
			chunks = append(chunks, domain.Chunk{
				ID:       s.newID(),
				Content:  text,
				Metadata: docs[i].Metadata.Clone(),
				Position: pos,
			})
		}
	}

	logger.Debug("Chunker: %d documents -> %d chunks", len(docs), len(chunks))
	return chunks, nil
}

// groupSentences joins sentences into chunks, breaking after sentence i
// whenever distances[i] exceeds threshold.
func groupSentences(sentences []string, distances []float64, threshold float64) []string {
	if len(sentences) == 0 {
		return nil
	}

	var groups []string
	start := 0
	for i, d := range distances {
		if d > threshold {
			groups = append(groups, strings.Join(sentences[start:i+1], " "))
			start = i + 1
		}
	}
	if start < len(sentences) {
		groups = append(groups, strings.Join(sentences[start:], " "))
	}
	return groups
}
