package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure implementations satisfy the interfaces.
var (
	_ driving.SessionService = (*SessionService)(nil)
	_ driving.ChatSession    = (*Session)(nil)
)

// HistoryFactory opens the history store of a new session.
// folder is the session folder, which is removed when the session closes.
type HistoryFactory func(folder string) (driven.HistoryStore, error)

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	// Loader parses uploaded files. Required.
	Loader driven.DocumentLoader

	// Ingestion folds documents into a session's index. Required.
	Ingestion *IngestionPipeline

	// Query rewrites and retrieves. Required.
	Query *QueryPipeline

	// LLM generates answers. Optional; Ask fails without it.
	LLM driven.LLMService

	// Prompts supplies the answer template. Optional.
	Prompts driven.PromptStore

	// NewHistory opens per-session history. Required.
	NewHistory HistoryFactory

	// Exists reports whether a cited source file still exists.
	// Defaults to FileExists.
	Exists func(path string) bool
}

// SessionService starts chat sessions under a common parent folder.
type SessionService struct {
	deps     SessionDeps
	folder   string
	chatOpts driven.ChatOptions
}

// NewSessionService creates a session service.
// Sessions are created as subfolders of settings.Session.Folder.
func NewSessionService(deps SessionDeps, settings *domain.AppSettings) *SessionService {
	if deps.Exists == nil {
		deps.Exists = FileExists
	}
	return &SessionService{
		deps:   deps,
		folder: settings.Session.Folder,
		chatOpts: driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
	}
}

// Start creates a session folder and an empty session.
func (s *SessionService) Start(_ context.Context) (driving.ChatSession, error) {
	id := uuid.New().String()
	folder := filepath.Join(s.folder, id)

	if err := os.MkdirAll(folder, 0700); err != nil {
		return nil, fmt.Errorf("create session folder: %w", err)
	}

	history, err := s.deps.NewHistory(folder)
	if err != nil {
		_ = os.RemoveAll(folder)
		return nil, fmt.Errorf("open history: %w", err)
	}

	logger.Info("Session %s started in %s", id, folder)
	return &Session{
		id:       id,
		folder:   folder,
		deps:     s.deps,
		prompts:  promptLoader{store: s.deps.Prompts},
		chatOpts: s.chatOpts,
		history:  history,
	}, nil
}

// Session is a single conversation over uploaded files.
//
// Ingestions are serialised by ingestMu. Queries read a snapshot of the
// state under mu and never block on a running ingestion.
type Session struct {
	id       string
	folder   string
	deps     SessionDeps
	prompts  promptLoader
	chatOpts driven.ChatOptions
	history  driven.HistoryStore

	ingestMu sync.Mutex

	mu     sync.RWMutex
	state  IndexState
	closed bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Folder returns the session folder.
func (s *Session) Folder() string {
	return s.folder
}

// ChunkCount returns the number of indexed chunks.
func (s *Session) ChunkCount() int {
	return s.snapshot().Len()
}

func (s *Session) snapshot() IndexState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Ingest loads every file concurrently and ingests the documents of the
// files that loaded. Files that fail are listed in the report. If no file
// produced a document the batch fails with domain.ErrEmptyBatch.
func (s *Session) Ingest(ctx context.Context, files []domain.FileBlob) (*domain.IngestReport, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if s.isClosed() {
		return nil, domain.ErrSessionClosed
	}

	start := time.Now()
	report := &domain.IngestReport{Files: s.loadAll(ctx, files)}

	state := s.snapshot()
	finish := func(err error) (*domain.IngestReport, error) {
		report.Duration = time.Since(start)
		logger.Info("%s", report.Summary())
		return report, err
	}

	docs := report.Documents()
	if len(docs) == 0 {
		report.TotalChunks = state.Len()
		return finish(domain.ErrEmptyBatch)
	}

	next, added, err := s.deps.Ingestion.Ingest(ctx, docs, state)
	if err != nil {
		report.TotalChunks = state.Len()
		return finish(err)
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	report.ChunksAdded = added
	report.TotalChunks = next.Len()
	return finish(nil)
}

// loadAll loads each file in its own goroutine. Results keep upload order.
func (s *Session) loadAll(ctx context.Context, files []domain.FileBlob) []domain.FileResult {
	results := make([]domain.FileResult, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f domain.FileBlob) {
			defer wg.Done()
			docs, err := s.deps.Loader.Load(ctx, f, s.folder)
			if err != nil {
				logger.Warn("Failed to load %s: %v", f.Name, err)
				err = domain.NewPipelineError(domain.StageLoad, f.Name, err)
			}
			results[i] = domain.FileResult{Name: f.Name, Documents: docs, Err: err}
		}(i, f)
	}
	wg.Wait()

	return results
}

// Retrieve returns the merged passages for question and the query used.
func (s *Session) Retrieve(ctx context.Context, question string) ([]domain.Chunk, string, error) {
	if s.isClosed() {
		return nil, "", domain.ErrSessionClosed
	}

	history, err := s.history.Recent(ctx, s.deps.Query.HistoryWindow())
	if err != nil {
		logger.Warn("Failed to read history, continuing without it: %v", err)
		history = nil
	}

	return s.deps.Query.Retrieve(ctx, question, history, s.snapshot())
}

// Ask retrieves passages for question and streams a grounded answer.
// The question and the answer are appended to the session history.
func (s *Session) Ask(
	ctx context.Context, question string, onFragment func(fragment string) error,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}
	if s.deps.LLM == nil {
		return nil, domain.ErrLLMUnavailable
	}

	logger.Section("Answer")
	start := time.Now()

	passages, rewritten, err := s.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	contents := make([]string, len(passages))
	for i, p := range passages {
		contents[i] = p.Content
	}

	messages := []driven.ChatMessage{
		{Role: domain.RoleSystem, Content: s.prompts.answerPrompt(strings.Join(contents, "\n"), question)},
		{Role: domain.RoleUser, Content: question},
	}

	handler := driven.FragmentHandler(onFragment)
	if handler == nil {
		handler = func(string) error { return nil }
	}

	text, err := s.deps.LLM.StreamChat(ctx, messages, s.chatOpts, handler)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	logger.Debug("Answer: %d characters from %d passages (%s)", len(text), len(passages), time.Since(start))

	answer := &domain.Answer{
		Question:       question,
		RewrittenQuery: rewritten,
		Text:           text,
		Passages:       passages,
		Citations:      Citations(passages, s.deps.Exists),
	}

	now := time.Now()
	for _, turn := range []domain.Turn{
		{Role: domain.RoleUser, Content: question, CreatedAt: now},
		{Role: domain.RoleAssistant, Content: text, CreatedAt: now},
	} {
		if err := s.history.Append(ctx, turn); err != nil {
			logger.Warn("Failed to record history: %v", err)
			break
		}
	}

	return answer, nil
}

// History returns the conversation so far.
func (s *Session) History(ctx context.Context) ([]domain.Turn, error) {
	if s.isClosed() {
		return nil, domain.ErrSessionClosed
	}
	return s.history.All(ctx)
}

// Close waits for a running ingestion, then closes the history store and
// removes the session folder. Closing twice is a no-op.
func (s *Session) Close() error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = IndexState{}
	s.mu.Unlock()

	var errs []error
	if err := s.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}
	if err := os.RemoveAll(s.folder); err != nil {
		errs = append(errs, fmt.Errorf("remove session folder: %w", err))
	}

	logger.Info("Session %s closed", s.id)
	return errors.Join(errs...)
}
