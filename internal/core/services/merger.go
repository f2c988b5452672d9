package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Merge interleaves ranked lists round-robin by rank and drops chunks whose
// content was already emitted. At most limit chunks are returned.
//
// For lists l1 and l2 the output order is l1[0], l2[0], l1[1], l2[1], ...
// A duplicate keeps its earliest position.
func Merge(lists [][]domain.Chunk, limit int) []domain.Chunk {
	out := []domain.Chunk{}
	if limit <= 0 {
		return out
	}

	maxLen := 0
	for _, l := range lists {
		maxLen = max(maxLen, len(l))
	}

	seen := make(map[string]struct{})
	for rank := 0; rank < maxLen; rank++ {
		for _, l := range lists {
			if rank >= len(l) {
				continue
			}
			c := l[rank]
			if _, dup := seen[c.Content]; dup {
				continue
			}
			seen[c.Content] = struct{}{}
			out = append(out, c)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

// HybridRetriever queries several retrievers and merges their rankings.
type HybridRetriever struct {
	// Retrievers are merged in this order; earlier ones win ties at equal rank.
	Retrievers []driven.Retriever

	// K is the number of candidates requested from each retriever.
	K int

	// Limit caps the merged result.
	Limit int
}

// Search queries every retriever concurrently and merges the results.
// If any retriever fails, no results are returned.
func (h *HybridRetriever) Search(ctx context.Context, query string) ([]domain.Chunk, error) {
	lists := make([][]domain.Chunk, len(h.Retrievers))
	errs := make([]error, len(h.Retrievers))

	var wg sync.WaitGroup
	for i, r := range h.Retrievers {
		wg.Add(1)
		go func(i int, r driven.Retriever) {
			defer wg.Done()
			lists[i], errs[i] = r.Search(ctx, query, h.K)
		}(i, r)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, domain.NewPipelineError(domain.StageRetrieval, h.Retrievers[i].Name(), err)
		}
		logger.Debug("Retriever %s: %d candidates", h.Retrievers[i].Name(), len(lists[i]))
	}

	merged := Merge(lists, h.Limit)
	logger.Debug("Merged candidates: %d (limit %d)", len(merged), h.Limit)
	return merged, nil
}
