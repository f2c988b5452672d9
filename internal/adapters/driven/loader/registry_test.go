package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestRegistry() *Registry {
	return New(1024, []string{"pdf", "txt", "md"})
}

func TestNew_Types(t *testing.T) {
	r := New(0, []string{".TXT", "pdf", "docx"})

	// docx is allowed but has no parser; md has a parser but is not allowed.
	assert.Equal(t, []string{"pdf", "txt"}, r.Types())
	assert.True(t, r.Accepts("notes.TXT"))
	assert.False(t, r.Accepts("notes.md"))
	assert.False(t, r.Accepts("report.docx"))
}

func TestFromSettings(t *testing.T) {
	s := domain.DefaultAppSettings().Session
	r := FromSettings(s)

	assert.Equal(t, s.MaxFileSizeBytes(), r.maxBytes)
	assert.Equal(t, []string{"md", "pdf", "txt"}, r.Types())
}

func TestLoad_InlineContent(t *testing.T) {
	dest := t.TempDir()
	r := newTestRegistry()

	docs, err := r.Load(context.Background(), domain.FileBlob{
		Name:    "notes.txt",
		Content: []byte("first page\fsecond page"),
	}, dest)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	saved := filepath.Join(dest, "notes.txt")
	assert.FileExists(t, saved)
	for i, doc := range docs {
		assert.Equal(t, saved, doc.Metadata.Source)
		assert.Equal(t, "notes.txt", doc.Metadata.Name)
		assert.Equal(t, i, doc.Metadata.Page)
	}
	assert.Equal(t, "first page", docs[0].Content)
	assert.Equal(t, "second page", docs[1].Content)
}

func TestLoad_FromPath(t *testing.T) {
	src := filepath.Join(t.TempDir(), "readme.md")
	require.NoError(t, os.WriteFile(src, []byte("# Title\n\nBody"), 0o600))
	dest := t.TempDir()

	docs, err := newTestRegistry().Load(context.Background(), domain.FileBlob{Path: src}, dest)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "readme.md", docs[0].Metadata.Name)
	assert.Equal(t, filepath.Join(dest, "readme.md"), docs[0].Metadata.Source)

	saved, err := os.ReadFile(filepath.Join(dest, "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody", string(saved))
}

func TestLoad_PathAlreadyInDest(t *testing.T) {
	dest := t.TempDir()
	path := filepath.Join(dest, "in-place.txt")
	require.NoError(t, os.WriteFile(path, []byte("kept as is"), 0o600))

	docs, err := newTestRegistry().Load(context.Background(), domain.FileBlob{Path: path}, dest)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kept as is", docs[0].Content)
}

func TestLoad_NameStripsDirectories(t *testing.T) {
	dest := t.TempDir()

	docs, err := newTestRegistry().Load(context.Background(), domain.FileBlob{
		Name:    "../../escape.txt",
		Content: []byte("text"),
	}, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "escape.txt"), docs[0].Metadata.Source)
}

func TestLoad_PDF(t *testing.T) {
	dest := t.TempDir()

	docs, err := newTestRegistry().Load(context.Background(), domain.FileBlob{
		Name:    "Report.PDF",
		Content: buildPDF("Alpha", "", "Gamma"),
	}, dest)
	require.NoError(t, err)

	// The blank second page is dropped but page indexes are preserved.
	require.Len(t, docs, 2)
	assert.Equal(t, 0, docs[0].Metadata.Page)
	assert.Equal(t, 2, docs[1].Metadata.Page)
	assert.Contains(t, docs[1].Content, "Gamma")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		blob  domain.FileBlob
		check func(t *testing.T, err error)
	}{
		{
			name: "no content or path",
			blob: domain.FileBlob{Name: "a.txt"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrNoFileContent)
			},
		},
		{
			name: "unsupported extension",
			blob: domain.FileBlob{Name: "a.docx", Content: []byte("x")},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrUnsupportedType)
			},
		},
		{
			name: "no extension",
			blob: domain.FileBlob{Name: "Makefile", Content: []byte("x")},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrUnsupportedType)
			},
		},
		{
			name: "too large",
			blob: domain.FileBlob{Name: "big.txt", Content: make([]byte, 2048)},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrFileTooLarge)
			},
		},
		{
			name: "only whitespace",
			blob: domain.FileBlob{Name: "blank.txt", Content: []byte("  \n\f\t")},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrNoText)
			},
		},
		{
			name: "missing path",
			blob: domain.FileBlob{Name: "gone.txt", Path: "/does/not/exist/gone.txt"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, os.ErrNotExist)
			},
		},
		{
			name: "parser failure",
			blob: domain.FileBlob{Name: "broken.pdf", Content: []byte("not a pdf")},
			check: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "parse broken.pdf")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := newTestRegistry().Load(context.Background(), tc.blob, t.TempDir())
			assert.Nil(t, docs)
			tc.check(t, err)
		})
	}
}

func TestLoad_TooLargeFromPath(t *testing.T) {
	src := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(src, make([]byte, 2048), 0o600))

	_, err := newTestRegistry().Load(context.Background(), domain.FileBlob{Path: src}, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestLoad_NoSizeLimit(t *testing.T) {
	r := New(0, []string{"txt"})

	docs, err := r.Load(context.Background(), domain.FileBlob{
		Name:    "big.txt",
		Content: []byte(strings.Repeat(" ", 4096)),
	}, t.TempDir())
	// No size error; the spaces are simply not text.
	assert.ErrorIs(t, err, domain.ErrNoText)
	assert.Nil(t, docs)

	docs, err = r.Load(context.Background(), domain.FileBlob{
		Name:    "small.txt",
		Content: []byte("a lot of text"),
	}, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRegister_CustomParser(t *testing.T) {
	r := New(0, []string{"csv"})
	r.Register(".CSV", ParserFunc(func(_ context.Context, _ string) ([]string, error) {
		return []string{"row one", "row two"}, nil
	}))

	docs, err := r.Load(context.Background(), domain.FileBlob{
		Name:    "table.csv",
		Content: []byte("ignored"),
	}, t.TempDir())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "row two", docs[1].Content)
}
