package services

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// IndexState is the retrievable knowledge of a session.
//
// It is treated as a value: ingestion returns a new state and never edits
// the Chunks slice or the Lexical handle of the one it was given. Dense is
// shared between successive states and only ever grows.
type IndexState struct {
	// Chunks is every chunk ingested so far, in ingestion order.
	Chunks []domain.Chunk

	// Dense is nil until the first successful ingestion.
	Dense driven.DenseIndex

	// Lexical is rebuilt over Chunks on every ingestion.
	Lexical driven.LexicalIndex
}

// Ready reports whether the state can serve queries.
func (s IndexState) Ready() bool {
	return s.Dense != nil && s.Lexical != nil && len(s.Chunks) > 0
}

// Len returns the number of indexed chunks.
func (s IndexState) Len() int {
	return len(s.Chunks)
}

// retriever returns the index registered under name.
func (s IndexState) retriever(name string) (driven.Retriever, bool) {
	switch name {
	case domain.RetrieverDense:
		return s.Dense, s.Dense != nil
	case domain.RetrieverLexical:
		return s.Lexical, s.Lexical != nil
	default:
		return nil, false
	}
}
