package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults, *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStoreFrom(map[string]any{
		"embedding.provider":           "openai",
		"embedding.model":              "text-embedding-3-large",
		"llm.temperature":              0.5,
		"retrieval.per_retriever_k":    int64(8),
		"retrieval.order":              []any{"dense", "lexical"},
		"chunking.buffer_size":         int64(0),
		"conversation.rewrite_timeout": "5s",
		"session.allowed_types":        []string{".PDF", "txt"},
		"log.level":                    "DEBUG",
	})
	service := NewSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.InDelta(t, 0.5, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, 8, settings.Retrieval.PerRetrieverK)
	assert.Equal(t, []string{"dense", "lexical"}, settings.Retrieval.Order)
	assert.Equal(t, 0, settings.Chunking.BufferSize)
	assert.Equal(t, 5*time.Second, settings.Conversation.RewriteTimeout)
	assert.Equal(t, []string{"pdf", "txt"}, settings.Session.AllowedTypes)
	assert.Equal(t, "debug", settings.Log.Level)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStoreFrom(map[string]any{
		"embedding.provider":           "invalid_provider",
		"conversation.rewrite_timeout": "soon",
	})
	service := NewSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, 30*time.Second, settings.Conversation.RewriteTimeout)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(t *testing.T, s *domain.AppSettings)
	}{
		{"retrieval.per_retriever_k", "8", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 8, s.Retrieval.PerRetrieverK)
		}},
		{"retrieval.order", "dense, lexical", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, []string{"dense", "lexical"}, s.Retrieval.Order)
		}},
		{"llm.temperature", "0.7", func(t *testing.T, s *domain.AppSettings) {
			assert.InDelta(t, 0.7, s.LLM.Temperature, 1e-9)
		}},
		{"conversation.rewrite_timeout", "10s", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 10*time.Second, s.Conversation.RewriteTimeout)
		}},
		{"session.allowed_types", ".pdf,TXT", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, []string{"pdf", "txt"}, s.Session.AllowedTypes)
		}},
		{"chunking.buffer_size", "0", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 0, s.Chunking.BufferSize)
		}},
		{"log.level", "Info", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, "info", s.Log.Level)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)
			require.NoError(t, service.Set(tt.key, tt.value))

			settings, err := service.Get()
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"not a number", "retrieval.per_retriever_k", "many"},
		{"zero k", "retrieval.per_retriever_k", "0"},
		{"unknown retriever", "retrieval.order", "dense,graph"},
		{"duplicate retriever", "retrieval.order", "dense,dense"},
		{"percentile out of range", "chunking.breakpoint_percentile", "150"},
		{"bad duration", "conversation.rewrite_timeout", "later"},
		{"bad level", "log.level", "loud"},
		{"limit above capacity", "retrieval.combined_limit", "11"},
		{"temperature too high", "llm.temperature", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, nil)

			err := service.Set(tt.key, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			_, stored := store.Get(tt.key)
			assert.False(t, stored)
		})
	}
}

func TestSettingsService_Save_WritesOnlyChanges(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)
	settings.Retrieval.CombinedLimit = 4

	require.NoError(t, service.Save(settings))

	assert.Equal(t, 4, store.GetInt("retrieval.combined_limit"))
	_, stored := store.Get("retrieval.per_retriever_k")
	assert.False(t, stored)
}

func TestSettingsService_Save_EmptyAPIKeyKeepsStored(t *testing.T) {
	store := memory.NewConfigStoreFrom(map[string]any{"llm.api_key": "sk-stored"})
	service := NewSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)
	settings.LLM.APIKey = ""
	require.NoError(t, service.Save(settings))

	assert.Equal(t, "sk-stored", store.GetString("llm.api_key"))
}

func TestSettingsService_Keys(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	keys := service.Keys()

	assert.Contains(t, keys, "retrieval.combined_limit")
	assert.Contains(t, keys, "session.max_file_size_mb")
	assert.IsIncreasing(t, keys)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "sk-test"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Error(t, service.SetEmbeddingProvider("invalid", "", ""))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key"))
	assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	store := memory.NewConfigStoreFrom(map[string]any{"llm.base_url": "http://gpu-box:11434"})
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "mistral", ""))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "mistral", settings.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434", settings.LLM.BaseURL)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
	assert.Error(t, service.SetLLMProvider("nope", "", ""))
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		store := memory.NewConfigStoreFrom(map[string]any{"llm.provider": "openai"})
		service := NewSettingsService(store, nil)
		assert.ErrorIs(t, service.Validate(), domain.ErrLLMUnavailable)
	})

	t.Run("limit above capacity", func(t *testing.T) {
		store := memory.NewConfigStoreFrom(map[string]any{
			"retrieval.order":          []string{"dense"},
			"retrieval.combined_limit": 6,
		})
		service := NewSettingsService(store, nil)
		err := service.Validate()
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "combined_limit")
	})
}

// stubPinger records validation calls.
type stubPinger struct {
	err       error
	embedding *domain.EmbeddingSettings
	llm       *domain.LLMSettings
}

func (v *stubPinger) ValidateEmbedding(_ context.Context, cfg *domain.EmbeddingSettings) error {
	v.embedding = cfg
	return v.err
}

func (v *stubPinger) ValidateLLM(_ context.Context, cfg *domain.LLMSettings) error {
	v.llm = cfg
	return v.err
}

func TestSettingsService_ValidateProviders(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	ctx := context.Background()
	assert.NoError(t, service.ValidateEmbeddingConfig(ctx))
	assert.NoError(t, service.ValidateLLMConfig(ctx))

	boom := errors.New("connection refused")
	v := &stubPinger{err: boom}
	service = NewSettingsService(memory.NewConfigStore(), v)

	assert.ErrorIs(t, service.ValidateEmbeddingConfig(ctx), boom)
	assert.ErrorIs(t, service.ValidateLLMConfig(ctx), boom)
	require.NotNil(t, v.embedding)
	assert.Equal(t, "nomic-embed-text", v.embedding.Model)
	require.NotNil(t, v.llm)
	assert.Equal(t, "llama3.2", v.llm.Model)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
