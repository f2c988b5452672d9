package chunker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// topicEmbedder embeds text as keyword counts for "cat" and "dog".
type topicEmbedder struct {
	mu       sync.Mutex
	calls    int
	texts    []string
	err      error
	dropLast bool
}

func (e *topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return topicVector(text), nil
}

func (e *topicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.texts = append(e.texts, texts...)
	e.mu.Unlock()

	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, topicVector(t))
	}
	if e.dropLast && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *topicEmbedder) Dimensions() int              { return 2 }
func (e *topicEmbedder) ModelName() string            { return "topic" }
func (e *topicEmbedder) Ping(_ context.Context) error { return nil }
func (e *topicEmbedder) Close() error                 { return nil }

func topicVector(text string) []float32 {
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "cat")),
		float32(strings.Count(lower, "dog")),
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "chunk-" + string(rune('0'+n))
	}
}

func TestSemantic_SplitsAtTopicShift(t *testing.T) {
	emb := &topicEmbedder{}
	c := New(emb, WithBufferSize(0), WithIDGenerator(sequentialIDs()))

	docs := []domain.Document{{
		Content:  "The cat sat. A cat slept. The dog ran. A dog barked.",
		Metadata: domain.Metadata{Source: "/tmp/pets.txt", Name: "pets.txt"},
	}}

	chunks, err := c.Split(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "The cat sat. A cat slept.", chunks[0].Content)
	assert.Equal(t, "The dog ran. A dog barked.", chunks[1].Content)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, "chunk-1", chunks[0].ID)
	assert.Equal(t, "chunk-2", chunks[1].ID)
	assert.Equal(t, "pets.txt", chunks[1].Metadata.Name)
	assert.Equal(t, 1, emb.calls)
}

func TestSemantic_ContentPreserved(t *testing.T) {
	c := New(&topicEmbedder{})
	docs := []domain.Document{
		{Content: "One cat. Two cats! Three dogs? Four dogs."},
		{Content: "Only one sentence here"},
	}

	chunks, err := c.Split(context.Background(), docs)
	require.NoError(t, err)

	var joined []string
	for _, ch := range chunks {
		assert.NotEmpty(t, ch.Content)
		assert.NotEmpty(t, ch.ID)
		joined = append(joined, ch.Content)
	}
	assert.Equal(t,
		"One cat. Two cats! Three dogs? Four dogs. Only one sentence here",
		strings.Join(joined, " "))
}

func TestSemantic_SingleSentenceSkipsEmbedding(t *testing.T) {
	emb := &topicEmbedder{}
	c := New(emb)

	chunks, err := c.Split(context.Background(), []domain.Document{{Content: "Just one sentence."}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Just one sentence.", chunks[0].Content)
	assert.Equal(t, 0, emb.calls)
}

func TestSemantic_BlankDocumentsYieldNothing(t *testing.T) {
	c := New(&topicEmbedder{})

	chunks, err := c.Split(context.Background(), []domain.Document{{Content: "   \n\t "}})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Split(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSemantic_MetadataIsCopied(t *testing.T) {
	c := New(&topicEmbedder{})
	doc := domain.Document{
		Content: "A cat. A dog.",
		Metadata: domain.Metadata{
			Name:  "a.pdf",
			Page:  3,
			Extra: map[string]string{"k": "v"},
		},
	}

	chunks, err := c.Split(context.Background(), []domain.Document{doc})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	chunks[0].Metadata.Extra["k"] = "changed"
	assert.Equal(t, "v", doc.Metadata.Extra["k"])
	assert.Equal(t, 3, chunks[0].Metadata.Page)
}

func TestSemantic_BatchWideThreshold(t *testing.T) {
	emb := &topicEmbedder{}
	c := New(emb, WithBufferSize(0))

	docs := []domain.Document{
		{Content: "A cat. A cat. A dog."},
		{Content: "A dog. A dog. A dog."},
	}

	chunks, err := c.Split(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
	require.Len(t, chunks, 3)
	assert.Equal(t, "A cat. A cat.", chunks[0].Content)
	assert.Equal(t, "A dog.", chunks[1].Content)
	assert.Equal(t, "A dog. A dog. A dog.", chunks[2].Content)
	assert.Equal(t, 0, chunks[2].Position)
}

func TestSemantic_EmbedErrorFailsWholeBatch(t *testing.T) {
	boom := errors.New("embedding backend down")
	c := New(&topicEmbedder{err: boom})

	chunks, err := c.Split(context.Background(), []domain.Document{{Content: "A cat. A dog."}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, chunks)
}

func TestSemantic_VectorCountMismatch(t *testing.T) {
	c := New(&topicEmbedder{dropLast: true})

	chunks, err := c.Split(context.Background(), []domain.Document{{Content: "A cat. A dog."}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 sentences")
	assert.Nil(t, chunks)
}

func TestSemantic_NilEmbedder(t *testing.T) {
	c := New(nil)
	_, err := c.Split(context.Background(), []domain.Document{{Content: "x"}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSemantic_BufferedWindows(t *testing.T) {
	emb := &topicEmbedder{}
	c := New(emb)

	_, err := c.Split(context.Background(), []domain.Document{{Content: "A. B. C."}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A. B.", "A. B. C.", "B. C."}, emb.texts)
}

func TestOptions_IgnoreInvalidValues(t *testing.T) {
	c := New(nil, WithBreakpointPercentile(0), WithBreakpointPercentile(150), WithBufferSize(-1))
	assert.Equal(t, DefaultBreakpointPercentile, c.percentile)
	assert.Equal(t, DefaultBufferSize, c.bufferSize)

	c = New(nil, WithBreakpointPercentile(80), WithBufferSize(2))
	assert.Equal(t, 80.0, c.percentile)
	assert.Equal(t, 2, c.bufferSize)
}
