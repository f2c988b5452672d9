// Package lexical provides an in-memory BM25 index.
//
// The index is immutable once built. Adding chunks means building a new
// index over the full collection, which keeps document frequencies exact.
package lexical

import (
	"context"
	"math"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Name identifies the lexical retriever.
const Name = domain.RetrieverLexical

// BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Ensure Index implements the interfaces.
var (
	_ driven.LexicalIndex        = (*Index)(nil)
	_ driven.LexicalIndexBuilder = (*Builder)(nil)
)

// Index ranks chunks with Okapi BM25.
type Index struct {
	chunks  []domain.Chunk
	terms   []map[string]int
	lengths []int
	df      map[string]int
	avgLen  float64
	k1      float64
	b       float64
}

// Build indexes chunks from scratch.
func Build(ctx context.Context, chunks []domain.Chunk) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := &Index{
		chunks:  append([]domain.Chunk(nil), chunks...),
		terms:   make([]map[string]int, len(chunks)),
		lengths: make([]int, len(chunks)),
		df:      make(map[string]int),
		k1:      DefaultK1,
		b:       DefaultB,
	}

	var total int
	for i := range chunks {
		tf := make(map[string]int)
		tokens := Tokenize(chunks[i].Content)
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			idx.df[term]++
		}
		idx.terms[i] = tf
		idx.lengths[i] = len(tokens)
		total += len(tokens)
	}
	if len(chunks) > 0 {
		idx.avgLen = float64(total) / float64(len(chunks))
	}

	logger.Debug("Lexical index: %d chunks, %d terms", len(chunks), len(idx.df))
	return idx, nil
}

// Name returns the retriever name.
func (i *Index) Name() string {
	return Name
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	return len(i.chunks)
}

// Search returns up to k chunks with a positive BM25 score for query.
// Equal scores keep collection order.
func (i *Index) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(i.chunks) == 0 {
		return []domain.Chunk{}, nil
	}

	queryTerms := Tokenize(query)
	type hit struct {
		pos   int
		score float64
	}
	var hits []hit
	for pos := range i.chunks {
		if s := i.score(pos, queryTerms); s > 0 {
			hits = append(hits, hit{pos: pos, score: s})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]domain.Chunk, k)
	for n := 0; n < k; n++ {
		out[n] = i.chunks[hits[n].pos]
	}
	return out, nil
}

func (i *Index) score(pos int, queryTerms []string) float64 {
	tf := i.terms[pos]
	norm := 1 - i.b
	if i.avgLen > 0 {
		norm += i.b * float64(i.lengths[pos]) / i.avgLen
	}

	var s float64
	for _, term := range queryTerms {
		f := tf[term]
		if f == 0 {
			continue
		}
		freq := float64(f)
		s += i.idf(term) * freq * (i.k1 + 1) / (freq + i.k1*norm)
	}
	return s
}

// idf is the non-negative Lucene variant.
func (i *Index) idf(term string) float64 {
	n := float64(i.df[term])
	total := float64(len(i.chunks))
	return math.Log(1 + (total-n+0.5)/(n+0.5))
}

// Builder builds lexical indexes.
type Builder struct{}

// NewBuilder creates a builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build indexes chunks from scratch.
func (*Builder) Build(ctx context.Context, chunks []domain.Chunk) (driven.LexicalIndex, error) {
	idx, err := Build(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
