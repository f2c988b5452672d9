package file

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Environment variables read by ApplyEnv.
const (
	EnvSessionsFolder  = "TEMP_SESSIONS_FOLDER"
	EnvHistoryMessages = "CONVERSATION_HISTORY_MESSAGES"
	EnvLogLevel        = "LOG_LEVEL"
	EnvMaxFileSizeMB   = "MAX_FILE_SIZE_MB"
	EnvAllowedTypes    = "ALLOWED_FILE_TYPES"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY" //nolint:gosec // G101: variable name, not a credential.
	EnvOllamaHost      = "OLLAMA_HOST"
)

// envKind controls how a variable's text is converted before overlaying.
type envKind int

const (
	envString envKind = iota
	envInt
	envList
)

// envBinding maps one environment variable onto config keys.
type envBinding struct {
	env  string
	key  string
	kind envKind
	// provider, when set, restricts the binding to configurations whose
	// providerKey names this provider. An unset providerKey means ollama.
	providerKey string
	provider    domain.AIProvider
}

var envBindings = []envBinding{
	{env: EnvSessionsFolder, key: "session.folder"},
	{env: EnvHistoryMessages, key: "conversation.history_messages", kind: envInt},
	{env: EnvLogLevel, key: "log.level"},
	{env: EnvMaxFileSizeMB, key: "session.max_file_size_mb", kind: envInt},
	{env: EnvAllowedTypes, key: "session.allowed_types", kind: envList},
	{env: EnvOpenAIKey, key: "embedding.api_key", providerKey: "embedding.provider", provider: domain.AIProviderOpenAI},
	{env: EnvOpenAIKey, key: "llm.api_key", providerKey: "llm.provider", provider: domain.AIProviderOpenAI},
	{env: EnvAnthropicKey, key: "llm.api_key", providerKey: "llm.provider", provider: domain.AIProviderAnthropic},
	{env: EnvOllamaHost, key: "embedding.base_url", providerKey: "embedding.provider", provider: domain.AIProviderOllama},
	{env: EnvOllamaHost, key: "llm.base_url", providerKey: "llm.provider", provider: domain.AIProviderOllama},
}

// LoadEnv loads variables from .env files into the process environment.
// With no arguments it reads .env in the working directory. Missing files
// are ignored and variables already set are never overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays values from the process environment.
// Overlaid values shadow the file but are never persisted by Set or Save.
// Values that do not parse are skipped and reported by name.
func (s *ConfigStore) ApplyEnv() []string {
	return s.applyEnv(os.LookupEnv)
}

func (s *ConfigStore) applyEnv(lookup func(string) (string, bool)) []string {
	var invalid []string
	for _, b := range envBindings {
		raw, ok := lookup(b.env)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		raw = strings.TrimSpace(raw)

		if b.providerKey != "" && s.provider(b.providerKey) != b.provider {
			continue
		}

		var value any = raw
		switch b.kind {
		case envInt:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				invalid = append(invalid, b.env)
				continue
			}
			value = n
		case envList:
			var items []string
			for _, item := range strings.Split(raw, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			value = items
		}

		if b.env == EnvOllamaHost {
			value = ollamaURL(raw)
		}
		s.setOverlay(b.key, value)
	}
	return invalid
}

// provider returns the configured provider for key, defaulting to ollama.
func (s *ConfigStore) provider(key string) domain.AIProvider {
	if p := s.GetString(key); p != "" {
		return domain.AIProvider(p)
	}
	return domain.AIProviderOllama
}

// ollamaURL accepts OLLAMA_HOST in the forms Ollama itself does: a bare
// host:port or a full URL.
func ollamaURL(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + strings.TrimRight(host, "/")
}
