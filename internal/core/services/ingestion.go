package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// IngestionPipeline turns documents into chunks and folds them into an
// IndexState.
type IngestionPipeline struct {
	chunker      driven.Chunker
	denseFactory driven.DenseIndexFactory
	lexical      driven.LexicalIndexBuilder
}

// NewIngestionPipeline creates an ingestion pipeline.
func NewIngestionPipeline(
	chunker driven.Chunker,
	denseFactory driven.DenseIndexFactory,
	lexical driven.LexicalIndexBuilder,
) *IngestionPipeline {
	return &IngestionPipeline{
		chunker:      chunker,
		denseFactory: denseFactory,
		lexical:      lexical,
	}
}

// Ingest chunks docs and returns a new state containing the old chunks
// followed by the new ones, together with the number of chunks added.
//
// On error the returned state is the zero value and the given state is
// still valid: its chunk list and lexical index are never modified, and the
// dense index is only touched by a single all-or-nothing Extend that runs
// after every other fallible step.
func (p *IngestionPipeline) Ingest(
	ctx context.Context, docs []domain.Document, state IndexState,
) (IndexState, int, error) {
	logger.Section("Ingestion")
	start := time.Now()

	if len(docs) == 0 {
		return IndexState{}, 0, domain.ErrNoDocuments
	}
	logger.Debug("Documents: %d, existing chunks: %d", len(docs), state.Len())

	chunks, err := p.chunker.Split(ctx, docs)
	if err != nil {
		return IndexState{}, 0, domain.NewPipelineError(domain.StageChunking, "", err)
	}
	logger.Debug("Chunked into %d chunks (%s)", len(chunks), time.Since(start))

	all := make([]domain.Chunk, 0, len(state.Chunks)+len(chunks))
	all = append(all, state.Chunks...)
	all = append(all, chunks...)

	lexical, err := p.lexical.Build(ctx, all)
	if err != nil {
		return IndexState{}, 0, domain.NewPipelineError(domain.StageIndexUpdate, domain.RetrieverLexical, err)
	}

	dense := state.Dense
	if dense == nil {
		dense, err = p.denseFactory.Create(ctx, chunks)
	} else {
		err = dense.Extend(ctx, chunks)
	}
	if err != nil {
		if errors.Is(err, domain.ErrEmptyIndex) {
			logger.Warn("No chunks produced from %d documents", len(docs))
		}
		return IndexState{}, 0, domain.NewPipelineError(domain.StageIndexUpdate, domain.RetrieverDense, err)
	}

	logger.Info("Ingested %d documents: +%d chunks, %d total (%s)",
		len(docs), len(chunks), len(all), time.Since(start))

	return IndexState{
		Chunks:  all,
		Dense:   dense,
		Lexical: lexical,
	}, len(chunks), nil
}
