package services

import (
	"os"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Citations returns the distinct source pages behind chunks, in first-seen
// order. Pages are 1-based. Chunks without a source, or whose source no
// longer exists according to exists, are skipped.
func Citations(chunks []domain.Chunk, exists func(path string) bool) []domain.Citation {
	if exists == nil {
		exists = FileExists
	}

	type key struct {
		name string
		page int
	}
	seen := make(map[key]struct{})
	var out []domain.Citation

	for _, c := range chunks {
		name := c.Metadata.Name
		if name == "" {
			name = "Doc"
		}
		k := key{name: name, page: c.Metadata.Page + 1}
		if _, dup := seen[k]; dup {
			continue
		}
		if c.Metadata.Source == "" {
			logger.Debug("Chunk %s has no source", c.ID)
			continue
		}
		if !exists(c.Metadata.Source) {
			logger.Warn("Source not found for %s: %s", name, c.Metadata.Source)
			continue
		}
		seen[k] = struct{}{}
		out = append(out, domain.Citation{Name: name, Page: k.page, Source: c.Metadata.Source})
	}
	return out
}
