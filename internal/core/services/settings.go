package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMMaxTokens      = "llm.max_tokens"
	keyLLMTemperature    = "llm.temperature"
	keyRetrievalK        = "retrieval.per_retriever_k"
	keyRetrievalLimit    = "retrieval.combined_limit"
	keyRetrievalOrder    = "retrieval.order"
	keyChunkPercentile   = "chunking.breakpoint_percentile"
	keyChunkBuffer       = "chunking.buffer_size"
	keyHistoryMessages   = "conversation.history_messages"
	keyRewriteTimeout    = "conversation.rewrite_timeout"
	keySessionFolder     = "session.folder"
	keySessionMaxFileMB  = "session.max_file_size_mb"
	keySessionAllowTypes = "session.allowed_types"
	keyLogLevel          = "log.level"
)

// settingParsers apply a textual value to a single settings field.
var settingParsers = map[string]func(s *domain.AppSettings, v string) error{
	keyEmbedProvider: func(s *domain.AppSettings, v string) error {
		s.Embedding.Provider = domain.AIProvider(v)
		return nil
	},
	keyEmbedModel:   func(s *domain.AppSettings, v string) error { s.Embedding.Model = v; return nil },
	keyEmbedBaseURL: func(s *domain.AppSettings, v string) error { s.Embedding.BaseURL = v; return nil },
	keyEmbedAPIKey:  func(s *domain.AppSettings, v string) error { s.Embedding.APIKey = v; return nil },
	keyLLMProvider: func(s *domain.AppSettings, v string) error {
		s.LLM.Provider = domain.AIProvider(v)
		return nil
	},
	keyLLMModel:   func(s *domain.AppSettings, v string) error { s.LLM.Model = v; return nil },
	keyLLMBaseURL: func(s *domain.AppSettings, v string) error { s.LLM.BaseURL = v; return nil },
	keyLLMAPIKey:  func(s *domain.AppSettings, v string) error { s.LLM.APIKey = v; return nil },
	keyLLMMaxTokens: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.LLM.MaxTokens)
	},
	keyLLMTemperature: func(s *domain.AppSettings, v string) error {
		return parseFloat(v, &s.LLM.Temperature)
	},
	keyRetrievalK: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Retrieval.PerRetrieverK)
	},
	keyRetrievalLimit: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Retrieval.CombinedLimit)
	},
	keyRetrievalOrder: func(s *domain.AppSettings, v string) error {
		s.Retrieval.Order = splitList(v)
		return nil
	},
	keyChunkPercentile: func(s *domain.AppSettings, v string) error {
		return parseFloat(v, &s.Chunking.BreakpointPercentile)
	},
	keyChunkBuffer: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Chunking.BufferSize)
	},
	keyHistoryMessages: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Conversation.HistoryMessages)
	},
	keyRewriteTimeout: func(s *domain.AppSettings, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		s.Conversation.RewriteTimeout = d
		return nil
	},
	keySessionFolder: func(s *domain.AppSettings, v string) error { s.Session.Folder = v; return nil },
	keySessionMaxFileMB: func(s *domain.AppSettings, v string) error {
		return parseInt(v, &s.Session.MaxFileSizeMB)
	},
	keySessionAllowTypes: func(s *domain.AppSettings, v string) error {
		s.Session.AllowedTypes = normaliseTypes(splitList(v))
		return nil
	},
	keyLogLevel: func(s *domain.AppSettings, v string) error {
		s.Log.Level = strings.ToLower(v)
		return nil
	},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	pinger      driven.ProviderValidator
	validate    *validator.Validate
}

// NewSettingsService creates a new settings service.
// pinger is optional; without it provider pings are skipped.
func NewSettingsService(configStore driven.ConfigStore, pinger driven.ProviderValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		pinger:      pinger,
		validate:    validator.New(),
	}
}

// Get retrieves current application settings, filling unset keys with defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.getString(keyEmbedBaseURL, defaults.Embedding.BaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		Retrieval: domain.RetrievalSettings{
			PerRetrieverK: s.getInt(keyRetrievalK, defaults.Retrieval.PerRetrieverK),
			CombinedLimit: s.getInt(keyRetrievalLimit, defaults.Retrieval.CombinedLimit),
			Order:         s.getStringSlice(keyRetrievalOrder, defaults.Retrieval.Order),
		},
		Chunking: domain.ChunkingSettings{
			BreakpointPercentile: s.getFloat(keyChunkPercentile, defaults.Chunking.BreakpointPercentile),
			BufferSize:           s.getInt(keyChunkBuffer, defaults.Chunking.BufferSize),
		},
		Conversation: domain.ConversationSettings{
			HistoryMessages: s.getInt(keyHistoryMessages, defaults.Conversation.HistoryMessages),
			RewriteTimeout:  s.getDuration(keyRewriteTimeout, defaults.Conversation.RewriteTimeout),
		},
		Session: domain.SessionSettings{
			Folder:        s.getString(keySessionFolder, defaults.Session.Folder),
			MaxFileSizeMB: s.getInt(keySessionMaxFileMB, defaults.Session.MaxFileSizeMB),
			AllowedTypes:  normaliseTypes(s.getStringSlice(keySessionAllowTypes, defaults.Session.AllowedTypes)),
		},
		Log: domain.LogSettings{
			Level: strings.ToLower(s.getString(keyLogLevel, defaults.Log.Level)),
		},
	}

	return settings, nil
}

// values flattens settings into config keys and storable values.
func values(settings *domain.AppSettings) map[string]any {
	return map[string]any{
		keyEmbedProvider:     settings.Embedding.Provider.String(),
		keyEmbedModel:        settings.Embedding.Model,
		keyEmbedBaseURL:      settings.Embedding.BaseURL,
		keyEmbedAPIKey:       settings.Embedding.APIKey,
		keyLLMProvider:       settings.LLM.Provider.String(),
		keyLLMModel:          settings.LLM.Model,
		keyLLMBaseURL:        settings.LLM.BaseURL,
		keyLLMAPIKey:         settings.LLM.APIKey,
		keyLLMMaxTokens:      settings.LLM.MaxTokens,
		keyLLMTemperature:    settings.LLM.Temperature,
		keyRetrievalK:        settings.Retrieval.PerRetrieverK,
		keyRetrievalLimit:    settings.Retrieval.CombinedLimit,
		keyRetrievalOrder:    settings.Retrieval.Order,
		keyChunkPercentile:   settings.Chunking.BreakpointPercentile,
		keyChunkBuffer:       settings.Chunking.BufferSize,
		keyHistoryMessages:   settings.Conversation.HistoryMessages,
		keyRewriteTimeout:    settings.Conversation.RewriteTimeout.String(),
		keySessionFolder:     settings.Session.Folder,
		keySessionMaxFileMB:  settings.Session.MaxFileSizeMB,
		keySessionAllowTypes: settings.Session.AllowedTypes,
		keyLogLevel:          settings.Log.Level,
	}
}

// Save persists the settings that differ from the current ones.
// Unchanged values, including any supplied by the environment, are not
// written. Empty API keys never overwrite stored ones.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	current, err := s.Get()
	if err != nil {
		return err
	}
	before := values(current)
	after := values(settings)

	for _, key := range s.Keys() {
		val := after[key]
		if reflect.DeepEqual(before[key], val) {
			continue
		}
		if (key == keyEmbedAPIKey || key == keyLLMAPIKey) && val == "" {
			continue
		}
		if err := s.configStore.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set parses value for key, validates the resulting settings and persists them.
func (s *SettingsService) Set(key, value string) error {
	parse, ok := settingParsers[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := parse(settings, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("parse %s: %v: %w", key, err, domain.ErrInvalidInput)
	}
	if err := s.check(settings); err != nil {
		return err
	}
	return s.Save(settings)
}

// Keys lists the settings keys accepted by Set, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingParsers))
	for k := range settingParsers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings for consistency.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := s.check(settings); err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured: %w",
			settings.Embedding.Provider, domain.ErrEmbeddingUnavailable)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured: %w",
			settings.LLM.Provider, domain.ErrLLMUnavailable)
	}
	return nil
}

// check runs struct-tag validation and the cross-field rules.
func (s *SettingsService) check(settings *domain.AppSettings) error {
	if err := s.validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			field := strings.TrimPrefix(e.Namespace(), "AppSettings.")
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag", field, e.Tag()))
		}
		return fmt.Errorf("invalid settings: %s: %w", strings.Join(msgs, "; "), domain.ErrInvalidInput)
	}

	r := settings.Retrieval
	if maxLimit := r.PerRetrieverK * len(r.Order); r.CombinedLimit > maxLimit {
		return fmt.Errorf("invalid settings: combined_limit %d exceeds per_retriever_k x retrievers (%d): %w",
			r.CombinedLimit, maxLimit, domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.pinger.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.pinger.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func modelOrDefault(model, defaultModel string) string {
	if model != "" {
		return model
	}
	return defaultModel
}

// baseURLFor keeps a custom endpoint for local providers and clears it for
// cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return domain.DefaultOllamaBaseURL
	}
	return current
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normaliseTypes lowercases extensions and strips leading dots.
func normaliseTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), ".")); t != "" {
			out = append(out, t)
		}
	}
	return out
}
