package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// HistoryStore records the conversation of one session.
type HistoryStore interface {
	// Append adds a turn to the end of the history.
	Append(ctx context.Context, turn domain.Turn) error

	// Recent returns the last n turns in chronological order.
	// n <= 0 returns no turns.
	Recent(ctx context.Context, n int) ([]domain.Turn, error)

	// All returns the whole history in chronological order.
	All(ctx context.Context) ([]domain.Turn, error)

	// Close releases resources.
	Close() error
}
