package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ChatSession is one user's conversation over the files they uploaded.
// A session owns its index, its history and its folder on disk.
type ChatSession interface {
	// ID returns the session identifier.
	ID() string

	// Folder returns the directory that holds the session's uploaded files.
	Folder() string

	// Ingest loads files and adds their chunks to the session index.
	// The report is returned even when the batch fails.
	Ingest(ctx context.Context, files []domain.FileBlob) (*domain.IngestReport, error)

	// Retrieve returns the merged passages for question and the query
	// actually used for retrieval.
	Retrieve(ctx context.Context, question string) ([]domain.Chunk, string, error)

	// Ask answers question from the indexed files. Answer fragments are
	// passed to onFragment as they are generated; onFragment may be nil.
	Ask(ctx context.Context, question string, onFragment func(fragment string) error) (*domain.Answer, error)

	// History returns the conversation so far.
	History(ctx context.Context) ([]domain.Turn, error)

	// ChunkCount returns the number of indexed chunks.
	ChunkCount() int

	// Close removes the session folder and releases resources.
	Close() error
}

// SessionService starts chat sessions.
type SessionService interface {
	// Start creates a new session with an empty index.
	Start(ctx context.Context) (ChatSession, error)
}
