package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// keywordEmbedder embeds text onto a fixed concept space so that synonyms
// such as "cat" and "feline" land on the same axis.
type keywordEmbedder struct {
	mu  sync.Mutex
	err error
}

var keywordAxes = map[string]int{
	"cat":    0,
	"feline": 0,
	"dog":    1,
	"canine": 1,
	"bird":   2,
}

func (e *keywordEmbedder) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, 4)
	v[3] = 0.01
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	}) {
		if axis, ok := keywordAxes[w]; ok {
			v[axis]++
		}
	}
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int              { return 4 }
func (e *keywordEmbedder) ModelName() string            { return "keyword" }
func (e *keywordEmbedder) Ping(_ context.Context) error { return nil }
func (e *keywordEmbedder) Close() error                 { return nil }

// pageChunker emits one chunk per non-blank document.
type pageChunker struct {
	mu    sync.Mutex
	err   error
	calls int
	seq   int
}

func (c *pageChunker) Split(_ context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	var out []domain.Chunk
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		c.seq++
		out = append(out, domain.Chunk{
			ID:       fmt.Sprintf("c%d", c.seq),
			Content:  d.Content,
			Metadata: d.Metadata.Clone(),
		})
	}
	return out, nil
}

// failingLexicalBuilder always fails to build.
type failingLexicalBuilder struct {
	err error
}

func (b *failingLexicalBuilder) Build(_ context.Context, _ []domain.Chunk) (driven.LexicalIndex, error) {
	return nil, b.err
}

// mockRetriever returns fixed results.
type mockRetriever struct {
	name    string
	results []domain.Chunk
	err     error
	gotK    int
}

func (r *mockRetriever) Name() string { return r.name }

func (r *mockRetriever) Search(_ context.Context, _ string, k int) ([]domain.Chunk, error) {
	r.gotK = k
	if r.err != nil {
		return nil, r.err
	}
	if k < len(r.results) {
		return r.results[:k], nil
	}
	return r.results, nil
}

// mockLLM records chat calls and streams a canned reply.
type mockLLM struct {
	mu        sync.Mutex
	reply     string
	chatErr   error
	streamErr error
	block     bool
	fragments []string
	chats     [][]driven.ChatMessage
	streams   [][]driven.ChatMessage
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.chats = append(m.chats, messages)
	block, reply, err := m.block, m.reply, m.chatErr
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (m *mockLLM) StreamChat(
	_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions, onFragment driven.FragmentHandler,
) (string, error) {
	m.mu.Lock()
	m.streams = append(m.streams, messages)
	fragments, err := m.fragments, m.streamErr
	m.mu.Unlock()

	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range fragments {
		if err := onFragment(f); err != nil {
			return b.String(), err
		}
		b.WriteString(f)
	}
	return b.String(), nil
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) chatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chats)
}

// mockLoader returns documents keyed by blob name.
type mockLoader struct {
	docs map[string][]domain.Document
	errs map[string]error
}

func (l *mockLoader) Load(_ context.Context, blob domain.FileBlob, destDir string) ([]domain.Document, error) {
	if err, ok := l.errs[blob.Name]; ok {
		return nil, err
	}
	docs := l.docs[blob.Name]
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		d.Metadata.Name = blob.Name
		d.Metadata.Source = destDir + "/" + blob.Name
		d.Metadata.Page = i
		out[i] = d
	}
	return out, nil
}

// --- Helpers ---

func doc(content string) domain.Document {
	return domain.Document{Content: content}
}

func chunksOf(contents ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		out[i] = domain.Chunk{ID: c, Content: c}
	}
	return out
}

func contentsOf(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
