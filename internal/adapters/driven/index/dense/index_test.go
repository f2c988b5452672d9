package dense

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// conceptEmbedder maps words onto a tiny fixed concept space.
type conceptEmbedder struct {
	err      error
	dims     int
	embedded int
}

var concepts = map[string]int{
	"cat":    0,
	"feline": 0,
	"dog":    1,
	"canine": 1,
	"bird":   2,
}

func (e *conceptEmbedder) vector(text string) []float32 {
	dims := e.dims
	if dims == 0 {
		dims = 3
	}
	v := make([]float32, dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if d, ok := concepts[w]; ok && d < dims {
			v[d]++
		}
	}
	return v
}

func (e *conceptEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *conceptEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.embedded += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *conceptEmbedder) Dimensions() int              { return 3 }
func (e *conceptEmbedder) ModelName() string            { return "concept" }
func (e *conceptEmbedder) Ping(_ context.Context) error { return nil }
func (e *conceptEmbedder) Close() error                 { return nil }

func chunk(id, content string) domain.Chunk {
	return domain.Chunk{ID: id, Content: content}
}

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func TestCreate_Empty(t *testing.T) {
	idx, err := Create(context.Background(), &conceptEmbedder{}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.Nil(t, idx)
}

func TestCreate_NilEmbedder(t *testing.T) {
	_, err := Create(context.Background(), nil, []domain.Chunk{chunk("a", "cat")})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSearch_SemanticMatch(t *testing.T) {
	ctx := context.Background()
	idx, err := Create(ctx, &conceptEmbedder{}, []domain.Chunk{
		chunk("a", "cat sat"),
		chunk("b", "dog ran"),
	})
	require.NoError(t, err)
	assert.Equal(t, Name, idx.Name())
	assert.Equal(t, 2, idx.Len())

	got, err := idx.Search(ctx, "feline", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat sat", "dog ran"}, contents(got))

	got, err = idx.Search(ctx, "canine", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog ran"}, contents(got))
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx, err := Create(ctx, &conceptEmbedder{}, []domain.Chunk{
		chunk("1", "first cat"),
		chunk("2", "second cat"),
		chunk("3", "a dog"),
		chunk("4", "third cat"),
	})
	require.NoError(t, err)

	got, err := idx.Search(ctx, "cat", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first cat", "second cat", "third cat"}, contents(got))
}

func TestSearch_KBounds(t *testing.T) {
	ctx := context.Background()
	idx, err := Create(ctx, &conceptEmbedder{}, []domain.Chunk{chunk("a", "cat")})
	require.NoError(t, err)

	got, err := idx.Search(ctx, "cat", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = idx.Search(ctx, "cat", -3)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = idx.Search(ctx, "cat", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestExtend_Appends(t *testing.T) {
	ctx := context.Background()
	emb := &conceptEmbedder{}
	idx, err := Create(ctx, emb, []domain.Chunk{chunk("a", "cat sat")})
	require.NoError(t, err)

	require.NoError(t, idx.Extend(ctx, []domain.Chunk{chunk("b", "dog ran"), chunk("c", "bird flew")}))
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, emb.embedded)

	got, err := idx.Search(ctx, "bird", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"bird flew"}, contents(got))

	require.NoError(t, idx.Extend(ctx, nil))
	assert.Equal(t, 3, idx.Len())
}

func TestExtend_FailureLeavesIndexUnchanged(t *testing.T) {
	ctx := context.Background()
	emb := &conceptEmbedder{}
	idx, err := Create(ctx, emb, []domain.Chunk{chunk("a", "cat sat")})
	require.NoError(t, err)

	boom := errors.New("provider down")
	emb.err = boom
	err = idx.Extend(ctx, []domain.Chunk{chunk("b", "dog ran")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, idx.Len())

	emb.err = nil
	emb.dims = 2
	err = idx.Extend(ctx, []domain.Chunk{chunk("b", "dog ran")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
	assert.Equal(t, 1, idx.Len())
}

func TestSearch_EmbedError(t *testing.T) {
	ctx := context.Background()
	emb := &conceptEmbedder{}
	idx, err := Create(ctx, emb, []domain.Chunk{chunk("a", "cat")})
	require.NoError(t, err)

	emb.err = errors.New("timeout")
	_, err = idx.Search(ctx, "cat", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory(&conceptEmbedder{})

	idx, err := f.Create(context.Background(), []domain.Chunk{chunk("a", "cat")})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	idx, err = f.Create(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	assert.Nil(t, idx)
}

func TestNormalize(t *testing.T) {
	v := normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, []float32{0, 0}, normalize([]float32{0, 0}))
}
