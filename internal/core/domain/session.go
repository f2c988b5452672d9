package domain

import (
	"fmt"
	"strings"
	"time"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single entry of the conversation history.
type Turn struct {
	// Role is either RoleUser or RoleAssistant.
	Role string

	// Content is the message text.
	Content string

	// CreatedAt is when the turn was recorded.
	CreatedAt time.Time
}

// Citation points an answer back at a source page.
type Citation struct {
	// Name is the display label of the source file.
	Name string

	// Page is the 1-based page number.
	Page int

	// Source is the path of the source file on disk.
	Source string
}

// Label renders the citation as it is shown to users, e.g. "report.pdf (p. 3)".
func (c Citation) Label() string {
	return fmt.Sprintf("%s (p. %d)", c.Name, c.Page)
}

// Answer is the outcome of one question.
type Answer struct {
	// Question is the question as the user asked it.
	Question string

	// RewrittenQuery is the standalone query used for retrieval.
	RewrittenQuery string

	// Text is the generated answer.
	Text string

	// Passages are the merged retrieval candidates used as context.
	Passages []Chunk

	// Citations are the distinct source pages behind Passages.
	Citations []Citation
}

// FileResult is the outcome of loading a single uploaded file.
// Exactly one of Documents or Err is meaningful.
type FileResult struct {
	// Name is the uploaded file name.
	Name string

	// Documents are the page-level documents produced by the loader.
	Documents []Document

	// Err is the load failure, if any.
	Err error
}

// OK reports whether the file loaded successfully.
func (r FileResult) OK() bool {
	return r.Err == nil
}

// IngestReport summarises one ingestion batch.
type IngestReport struct {
	// Files holds one result per uploaded file, in upload order.
	Files []FileResult

	// ChunksAdded is the number of chunks this batch added to the session.
	ChunksAdded int

	// TotalChunks is the number of chunks in the session after the batch.
	TotalChunks int

	// Duration is the wall-clock time spent on the batch.
	Duration time.Duration
}

// Loaded returns the results of files that loaded successfully.
func (r *IngestReport) Loaded() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.OK() {
			out = append(out, f)
		}
	}
	return out
}

// Failed returns the results of files that could not be loaded.
func (r *IngestReport) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if !f.OK() {
			out = append(out, f)
		}
	}
	return out
}

// Documents returns every document loaded in this batch, in upload order.
func (r *IngestReport) Documents() []Document {
	var docs []Document
	for _, f := range r.Files {
		docs = append(docs, f.Documents...)
	}
	return docs
}

// Summary renders the batch outcome as a single human-readable message.
func (r *IngestReport) Summary() string {
	loaded := r.Loaded()
	failed := r.Failed()

	var b strings.Builder
	fmt.Fprintf(&b, "Indexed %d of %d file(s): %d new chunk(s), %d total (%.1fs)",
		len(loaded), len(r.Files), r.ChunksAdded, r.TotalChunks, r.Duration.Seconds())
	for _, f := range failed {
		fmt.Fprintf(&b, "\n  skipped %s: %v", f.Name, f.Err)
	}
	return b.String()
}
