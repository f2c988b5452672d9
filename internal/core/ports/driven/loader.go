package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentLoader turns an uploaded file into page-level documents.
type DocumentLoader interface {
	// Load saves blob into destDir and parses it.
	// Returns domain.ErrNoFileContent when the blob has neither content nor a path.
	Load(ctx context.Context, blob domain.FileBlob, destDir string) ([]domain.Document, error)
}
