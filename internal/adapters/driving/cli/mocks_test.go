package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var (
	_ driving.ChatSession     = (*mockChatSession)(nil)
	_ driving.SessionService  = (*mockSessionService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
)

// mockChatSession records ingests and questions.
type mockChatSession struct {
	mu sync.Mutex

	report    *domain.IngestReport
	ingestErr error
	ingested  [][]domain.FileBlob

	fragments []string
	answer    *domain.Answer
	askErr    error
	asked     []string

	turns  []domain.Turn
	closed bool
}

func (m *mockChatSession) ID() string     { return "sess-42" }
func (m *mockChatSession) Folder() string { return "/tmp/sess-42" }
func (m *mockChatSession) ChunkCount() int {
	return 0
}

func (m *mockChatSession) Ingest(_ context.Context, files []domain.FileBlob) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, files)
	return m.report, m.ingestErr
}

func (m *mockChatSession) Retrieve(_ context.Context, q string) ([]domain.Chunk, string, error) {
	return nil, q, nil
}

func (m *mockChatSession) Ask(_ context.Context, question string, onFragment func(string) error) (*domain.Answer, error) {
	m.mu.Lock()
	m.asked = append(m.asked, question)
	m.mu.Unlock()

	if m.askErr != nil {
		return nil, m.askErr
	}
	if onFragment != nil {
		for _, f := range m.fragments {
			if err := onFragment(f); err != nil {
				return nil, err
			}
		}
	}
	answer := *m.answer
	answer.Question = question
	if answer.RewrittenQuery == "" {
		answer.RewrittenQuery = question
	}
	return &answer, nil
}

func (m *mockChatSession) History(_ context.Context) ([]domain.Turn, error) {
	return m.turns, nil
}

func (m *mockChatSession) Close() error {
	m.closed = true
	return nil
}

func (m *mockChatSession) ingestedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var paths []string
	for _, batch := range m.ingested {
		for _, b := range batch {
			paths = append(paths, b.Path)
		}
	}
	return paths
}

// mockSessionService hands out a single session.
type mockSessionService struct {
	session *mockChatSession
	err     error
	started int
}

func (m *mockSessionService) Start(_ context.Context) (driving.ChatSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.started++
	return m.session, nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	set         map[string]string
	setErr      error
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"llm.model", "retrieval.per_retriever_k"}
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider, m.settings.Embedding.Model, m.settings.Embedding.APIKey = p, model, apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider, m.settings.LLM.Model, m.settings.LLM.APIKey = p, model, apiKey
	return nil
}

func (m *mockSettingsService) Validate() error                               { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings               { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig(context.Context) error { return nil }
func (m *mockSettingsService) ValidateLLMConfig(context.Context) error       { return nil }

// newTestSession returns a session that answers with a single citation.
func newTestSession() *mockChatSession {
	return &mockChatSession{
		report: &domain.IngestReport{
			Files: []domain.FileResult{
				{Name: "france.pdf", Documents: []domain.Document{{Content: "Paris"}}},
			},
			ChunksAdded: 3,
			TotalChunks: 3,
		},
		fragments: []string{"Paris is ", "the capital."},
		answer: &domain.Answer{
			Text:      "Paris is the capital.",
			Citations: []domain.Citation{{Name: "france.pdf", Page: 3, Source: "/tmp/sess-42/france.pdf"}},
		},
	}
}

// setupTestServices injects mocks and resets command flags.
func setupTestServices(t *testing.T, session *mockChatSession, warnings ...string) (*mockSessionService, *mockSettingsService) {
	t.Helper()

	sessions := &mockSessionService{session: session}
	settings := newMockSettingsService()
	SetServices(settings, func(_ context.Context) (*Runtime, error) {
		return &Runtime{
			Sessions: sessions,
			Accepts:  func(name string) bool { return strings.HasSuffix(name, ".pdf") },
			Warnings: warnings,
		}, nil
	})

	askFiles, askFormat = nil, formatText
	chatFiles, chatWatch = nil, ""
	tuiFiles, mcpFiles, mcpPort = nil, nil, 0

	t.Cleanup(func() { SetServices(nil, nil) })
	return sessions, settings
}

// executeCommand runs the root command and returns stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}
