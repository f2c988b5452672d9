package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var _ driving.ChatSession = (*mockSession)(nil)

// mockSession is a mock implementation of driving.ChatSession.
type mockSession struct {
	report    *domain.IngestReport
	ingestErr error
	ingested  []domain.FileBlob

	chunks []domain.Chunk
	query  string
	answer *domain.Answer
	turns  []domain.Turn
	err    error

	asked []string
}

func (m *mockSession) ID() string     { return "session-1" }
func (m *mockSession) Folder() string { return "/tmp/sessions/session-1" }
func (m *mockSession) ChunkCount() int {
	return len(m.chunks)
}

func (m *mockSession) Ingest(_ context.Context, files []domain.FileBlob) (*domain.IngestReport, error) {
	m.ingested = append(m.ingested, files...)
	return m.report, m.ingestErr
}

func (m *mockSession) Retrieve(_ context.Context, _ string) ([]domain.Chunk, string, error) {
	return m.chunks, m.query, m.err
}

func (m *mockSession) Ask(_ context.Context, question string, _ func(string) error) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	return m.answer, m.err
}

func (m *mockSession) History(_ context.Context) ([]domain.Turn, error) {
	return m.turns, m.err
}

func (m *mockSession) Close() error { return nil }
