package domain

import (
	"os"
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider names a service that embeds text, generates text, or both.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// providerTraits describes what a provider needs and offers. A provider
// with an empty embedModel has no embedding API.
type providerTraits struct {
	description string
	local       bool
	embedModel  string
	llmModel    string
}

// providerOrder lists providers in menu order, local first.
var providerOrder = []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}

var providers = map[AIProvider]providerTraits{
	AIProviderOllama: {
		description: "Ollama (local)",
		local:       true,
		embedModel:  "nomic-embed-text",
		llmModel:    "llama3.2",
	},
	AIProviderOpenAI: {
		description: "OpenAI (cloud)",
		embedModel:  "text-embedding-3-small",
		llmModel:    "gpt-4o-mini",
	},
	AIProviderAnthropic: {
		description: "Anthropic (cloud)",
		llmModel:    "claude-3-5-sonnet-latest",
	},
}

func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

// RequiresAPIKey reports whether the provider is hosted and needs a key.
func (p AIProvider) RequiresAPIKey() bool {
	t, ok := providers[p]
	return ok && !t.local
}

// IsLocal reports whether the provider runs on this machine and is
// reached through a base URL.
func (p AIProvider) IsLocal() bool {
	return providers[p].local
}

func (p AIProvider) String() string {
	return string(p)
}

// Description is the label shown in menus and settings output.
func (p AIProvider) Description() string {
	if t, ok := providers[p]; ok {
		return t.description
	}
	return unknownDescription
}

// EmbeddingSettings selects the model that embeds sentences and chunks.
// BaseURL applies to local providers and APIKey to hosted ones.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether the provider is known and has a key if it
// needs one.
func (e EmbeddingSettings) IsConfigured() bool {
	return ready(e.Provider, e.APIKey)
}

func ready(p AIProvider, apiKey string) bool {
	return p.IsValid() && (!p.RequiresAPIKey() || apiKey != "")
}

// LLMSettings selects the model that rewrites questions and writes answers.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// MaxTokens caps the length of a generated answer.
	MaxTokens int `validate:"min=1"`

	// Temperature is sent as is; Anthropic clamps it to 1.
	Temperature float64 `validate:"gte=0,lte=2"`
}

func (l LLMSettings) IsConfigured() bool {
	return ready(l.Provider, l.APIKey)
}

// Retriever names accepted in RetrievalSettings.Order.
const (
	RetrieverDense   = "dense"
	RetrieverLexical = "lexical"
)

// RetrievalSettings controls hybrid retrieval.
type RetrievalSettings struct {
	// PerRetrieverK is the number of candidates requested from each index.
	PerRetrieverK int `validate:"min=1"`

	// CombinedLimit caps the merged candidate set.
	// It must not exceed PerRetrieverK times the number of retrievers.
	CombinedLimit int `validate:"min=1"`

	// Order lists retrievers in merge priority order.
	Order []string `validate:"min=1,unique,dive,oneof=dense lexical"`
}

// ChunkingSettings controls the semantic chunker.
type ChunkingSettings struct {
	// BreakpointPercentile is the distance percentile above which a chunk boundary is placed.
	BreakpointPercentile float64 `validate:"gt=0,lte=100"`

	// BufferSize is the number of neighbouring sentences embedded with each sentence.
	BufferSize int `validate:"gte=0"`
}

// ConversationSettings controls history-aware query rewriting.
type ConversationSettings struct {
	// HistoryMessages is how many recent history entries the rewrite sees.
	HistoryMessages int `validate:"min=1"`

	// RewriteTimeout bounds the rewrite call; on expiry the raw query is used.
	RewriteTimeout time.Duration `validate:"gt=0"`
}

// SessionSettings controls per-session file handling.
type SessionSettings struct {
	// Folder is the parent directory of per-session folders.
	Folder string `validate:"required"`

	// MaxFileSizeMB is the upload size limit in megabytes.
	MaxFileSizeMB int `validate:"min=1"`

	// AllowedTypes lists accepted file extensions without the dot.
	AllowedTypes []string `validate:"min=1,dive,required"`
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (s SessionSettings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB) * 1024 * 1024
}

// LogSettings controls diagnostic output.
type LogSettings struct {
	// Level is one of debug, info, warn or error.
	Level string `validate:"oneof=debug info warn error"`
}

// AppSettings is the whole persisted configuration.
type AppSettings struct {
	Embedding    EmbeddingSettings
	LLM          LLMSettings
	Retrieval    RetrievalSettings
	Chunking     ChunkingSettings
	Conversation ConversationSettings
	Session      SessionSettings
	Log          LogSettings
}

// DefaultAppSettings points both providers at a local Ollama and uses the
// retrieval and chunking values the pipeline was tuned with.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
			BaseURL:  DefaultOllamaBaseURL,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			BaseURL:     DefaultOllamaBaseURL,
			MaxTokens:   512,
			Temperature: 0.01,
		},
		Retrieval: RetrievalSettings{
			PerRetrieverK: 5,
			CombinedLimit: 6,
			Order:         []string{RetrieverLexical, RetrieverDense},
		},
		Chunking: ChunkingSettings{
			BreakpointPercentile: 95,
			BufferSize:           1,
		},
		Conversation: ConversationSettings{
			HistoryMessages: 3,
			RewriteTimeout:  30 * time.Second,
		},
		Session: SessionSettings{
			Folder:        filepath.Join(os.TempDir(), "sercha-rag", "sessions"),
			MaxFileSizeMB: 50,
			AllowedTypes:  []string{"pdf", "txt", "md"},
		},
		Log: LogSettings{
			Level: "warn",
		},
	}
}

// DefaultOllamaBaseURL is where a local Ollama instance listens.
const DefaultOllamaBaseURL = "http://localhost:11434"

// AllEmbeddingProviders returns the providers with an embedding API.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, p := range providerOrder {
		if providers[p].embedModel != "" {
			out = append(out, p)
		}
	}
	return out
}

// AllLLMProviders returns the providers that generate text.
func AllLLMProviders() []AIProvider {
	var out []AIProvider
	for _, p := range providerOrder {
		if providers[p].llmModel != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, p := range AllEmbeddingProviders() {
		out[p] = providers[p].embedModel
	}
	return out
}

// DefaultLLMModels maps each LLM provider to its default model.
func DefaultLLMModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, p := range AllLLMProviders() {
		out[p] = providers[p].llmModel
	}
	return out
}

// EmbeddingDimensions returns the vector length of well-known embedding
// models. Other models report their length on first use.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
