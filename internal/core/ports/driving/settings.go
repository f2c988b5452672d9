package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SettingsService reads and changes the persisted AppSettings.
type SettingsService interface {
	// Get returns the defaults overlaid with stored and environment values.
	Get() (*domain.AppSettings, error)

	Save(settings *domain.AppSettings) error

	// Set parses value for one dotted key, such as "retrieval.order", and
	// stores it. The result must still validate.
	Set(key, value string) error

	// Keys lists what Set accepts, sorted.
	Keys() []string

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks field ranges and cross-field rules without contacting
	// any provider.
	Validate() error

	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig and ValidateLLMConfig ping the configured
	// providers.
	ValidateEmbeddingConfig(ctx context.Context) error
	ValidateLLMConfig(ctx context.Context) error
}
