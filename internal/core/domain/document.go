package domain

import "maps"

// Metadata describes where a piece of text came from.
// It survives chunking unchanged so answers can cite their sources.
type Metadata struct {
	// Source is the path of the originating file on disk.
	Source string

	// Name is the display label of the originating file.
	Name string

	// Page is the 0-based page index within the source.
	Page int

	// Extra holds loader-specific key-value pairs.
	Extra map[string]string
}

// Clone returns a copy of the metadata that shares no maps with the original.
func (m Metadata) Clone() Metadata {
	c := m
	if m.Extra != nil {
		c.Extra = maps.Clone(m.Extra)
	}
	return c
}

// Document is an immutable unit of retrievable text.
// Loaders produce one Document per source page.
type Document struct {
	// Content is the page text.
	Content string

	// Metadata identifies the originating file and page.
	Metadata Metadata
}

// Chunk is a semantically bounded span of a Document.
// Chunks are the unit stored in both the dense and the lexical index.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Content is the text content of this chunk.
	Content string

	// Metadata is inherited from the source Document.
	Metadata Metadata

	// Position is the ordinal position within the source Document.
	Position int
}

// FileBlob is an uploaded file before it has been loaded.
// Either Content or Path must be set.
type FileBlob struct {
	// Name is the file name shown to the user.
	Name string

	// Content is the inline file content.
	Content []byte

	// Path is the location of the file on disk, used when Content is nil.
	Path string
}

// HasSource reports whether the blob carries inline content or a path.
func (b FileBlob) HasSource() bool {
	return b.Content != nil || b.Path != ""
}
