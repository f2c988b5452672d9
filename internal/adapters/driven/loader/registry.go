package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.DocumentLoader = (*Registry)(nil)

// Parser extracts the text of each page of a saved file.
// Pages are returned in order; blank pages may be returned as empty strings.
type Parser interface {
	Parse(ctx context.Context, path string) ([]string, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, path string) ([]string, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, path string) ([]string, error) {
	return f(ctx, path)
}

// Registry saves uploads and dispatches them to a parser by file extension.
// Only extensions that are both registered and allowed are accepted.
type Registry struct {
	parsers  map[string]Parser
	allowed  map[string]bool
	maxBytes int64
}

// New creates a registry with the PDF, text, markdown, HTML and DOCX parsers
// registered. Only the allowed types among them are accepted.
// A maxBytes of zero or less disables the size check.
func New(maxBytes int64, allowedTypes []string) *Registry {
	r := &Registry{
		parsers:  make(map[string]Parser),
		allowed:  make(map[string]bool, len(allowedTypes)),
		maxBytes: maxBytes,
	}
	for _, t := range allowedTypes {
		r.allowed[normaliseExt(t)] = true
	}

	r.Register("pdf", ParserFunc(ParsePDF))
	r.Register("txt", ParserFunc(ParseText))
	r.Register("md", ParserFunc(ParseText))
	r.Register("html", ParserFunc(ParseHTML))
	r.Register("htm", ParserFunc(ParseHTML))
	r.Register("docx", ParserFunc(ParseDOCX))
	return r
}

// FromSettings creates a registry from the session settings.
func FromSettings(s domain.SessionSettings) *Registry {
	return New(s.MaxFileSizeBytes(), s.AllowedTypes)
}

// Register adds a parser for an extension, replacing any existing one.
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[normaliseExt(ext)] = p
}

// Types returns the sorted extensions that are both registered and allowed.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		if r.allowed[ext] {
			types = append(types, ext)
		}
	}
	sort.Strings(types)
	return types
}

// Accepts reports whether a file name has an accepted extension.
func (r *Registry) Accepts(name string) bool {
	return slices.Contains(r.Types(), extOf(name))
}

// Load saves blob into destDir and parses it into one document per non-blank page.
func (r *Registry) Load(ctx context.Context, blob domain.FileBlob, destDir string) ([]domain.Document, error) {
	if !blob.HasSource() {
		return nil, domain.ErrNoFileContent
	}

	name := blob.Name
	if name == "" {
		name = filepath.Base(blob.Path)
	}

	ext := extOf(name)
	parser, ok := r.parsers[ext]
	if !ok || !r.allowed[ext] {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, ext)
	}

	if err := r.checkSize(blob); err != nil {
		return nil, err
	}

	saved, err := save(blob, name, destDir)
	if err != nil {
		return nil, err
	}

	pages, err := parser.Parse(ctx, saved)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	docs := make([]domain.Document, 0, len(pages))
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			Content: text,
			Metadata: domain.Metadata{
				Source: saved,
				Name:   name,
				Page:   i,
			},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNoText)
	}

	logger.Debug("loaded %s: %d of %d pages with text", name, len(docs), len(pages))
	return docs, nil
}

// checkSize rejects blobs above the size limit.
func (r *Registry) checkSize(blob domain.FileBlob) error {
	if r.maxBytes <= 0 {
		return nil
	}

	size := int64(len(blob.Content))
	if blob.Content == nil {
		info, err := os.Stat(blob.Path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", blob.Path, err)
		}
		size = info.Size()
	}
	if size > r.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", domain.ErrFileTooLarge, size, r.maxBytes)
	}
	return nil
}

// save writes the blob into destDir under its base name and returns the saved path.
func save(blob domain.FileBlob, name, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(name))

	if blob.Content != nil {
		if err := os.WriteFile(dest, blob.Content, 0o600); err != nil {
			return "", fmt.Errorf("save %s: %w", name, err)
		}
		return dest, nil
	}

	// Already in place, e.g. a watched file re-ingested from the session folder.
	if same, _ := samePath(blob.Path, dest); same {
		return dest, nil
	}

	src, err := os.Open(blob.Path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", blob.Path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return dest, nil
}

func samePath(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

func extOf(name string) string {
	return normaliseExt(filepath.Ext(name))
}

func normaliseExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
