package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore keeps conversation turns in memory.
type HistoryStore struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

// NewHistoryStore creates an empty in-memory history.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Open is a HistoryFactory that ignores the session folder.
func Open(_ string) (driven.HistoryStore, error) {
	return NewHistoryStore(), nil
}

// Append adds a turn to the end of the history.
func (s *HistoryStore) Append(_ context.Context, turn domain.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return nil
}

// Recent returns a copy of the last n turns.
func (s *HistoryStore) Recent(_ context.Context, n int) ([]domain.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.turns)-n, 0)
	return append([]domain.Turn(nil), s.turns[start:]...), nil
}

// All returns a copy of the whole history.
func (s *HistoryStore) All(_ context.Context) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Turn(nil), s.turns...), nil
}

// Close is a no-op.
func (s *HistoryStore) Close() error {
	return nil
}
