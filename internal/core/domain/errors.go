package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates a file type no loader accepts.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Query rewriting and answer generation are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Chunking and dense retrieval are impossible without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Ingestion Errors.

	// ErrNoDocuments indicates ingestion was invoked with no documents.
	ErrNoDocuments = errors.New("no documents to ingest")

	// ErrEmptyBatch indicates no uploaded file produced any usable document.
	ErrEmptyBatch = errors.New("no documents loaded from the uploaded files")

	// ErrEmptyIndex indicates a dense index was created from zero chunks.
	ErrEmptyIndex = errors.New("cannot create an index from zero chunks")

	// ErrNoFileContent indicates an upload has neither inline content nor a path.
	ErrNoFileContent = errors.New("file is empty (no content or path)")

	// ErrFileTooLarge indicates an upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoText indicates a file parsed cleanly but contained no text.
	ErrNoText = errors.New("no extractable text")

	// Session Errors.

	// ErrNoIndex indicates a query was made before anything was ingested.
	ErrNoIndex = errors.New("nothing indexed yet, upload files first")

	// ErrSessionClosed indicates the session has been closed and cleaned up.
	ErrSessionClosed = errors.New("session closed")
)

// Stage identifies the pipeline step that failed.
type Stage string

// Pipeline stages that can fail.
const (
	StageLoad        Stage = "load"
	StageChunking    Stage = "chunking"
	StageIndexUpdate Stage = "index_update"
	StageRewrite     Stage = "rewrite"
	StageRetrieval   Stage = "retrieval"
)

// PipelineError records which stage of ingestion or retrieval failed.
type PipelineError struct {
	// Stage is the failing step.
	Stage Stage

	// Subject names what was being processed (a file name, a retriever, ...).
	// It may be empty.
	Subject string

	// Err is the underlying cause.
	Err error
}

// NewPipelineError wraps err with the stage that produced it.
func NewPipelineError(stage Stage, subject string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Subject: subject, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s %q: %v", e.Stage, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage of the first PipelineError in err's chain.
// The second result is false when err carries no stage.
func StageOf(err error) (Stage, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	return "", false
}
