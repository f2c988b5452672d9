package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	for key, want := range map[string]string{
		"":                                   "****",
		"abc123":                             "****",
		"12345678":                           "****",
		"sk-1234567890abcdef":                "sk-1...cdef",
		"sk-proj-1234567890abcdefghijklmnop": "sk-p...mnop",
	} {
		assert.Equal(t, want, maskAPIKey(key), "key %q", key)
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input string
		def   int
		want  int
	}{
		{"", 1, 1},
		{"   ", 1, 1},
		{"3", 1, 3},
		{" 4 ", 1, 4},
		{"1", 3, 1},
		{"5", 1, 5},
		{"0", 1, 1},
		{"6", 1, 1},
		{"-1", 1, 1},
		{"abc", 2, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseChoice(tt.input, 5, tt.def), "input %q", tt.input)
	}
}

func TestSettingsShow(t *testing.T) {
	_, settings := setupTestServices(t, newTestSession())
	settings.settings.LLM.Provider = domain.AIProviderAnthropic
	settings.settings.LLM.APIKey = "sk-ant-1234567890"

	out, _, err := executeCommand(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Base URL: http://localhost:11434")
	assert.Contains(t, out, "API Key: sk-a...7890")
	assert.Contains(t, out, "Per retriever k: 5")
	assert.Contains(t, out, "Order: lexical, dense")
	assert.Contains(t, out, "Breakpoint percentile: 95")
	assert.Contains(t, out, "Allowed types: pdf, txt, md")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_InvalidConfig(t *testing.T) {
	_, settings := setupTestServices(t, newTestSession())
	settings.validateErr = errors.New("combined limit too large")

	out, _, err := executeCommand(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: combined limit too large")
}

func TestSettingsSet(t *testing.T) {
	_, settings := setupTestServices(t, newTestSession())

	out, _, err := executeCommand(t, "", "settings", "set", "retrieval.per_retriever_k", "8")

	require.NoError(t, err)
	assert.Equal(t, "8", settings.set["retrieval.per_retriever_k"])
	assert.Contains(t, out, "Set retrieval.per_retriever_k = 8")
}

func TestSettingsSet_MasksAPIKey(t *testing.T) {
	setupTestServices(t, newTestSession())

	out, _, err := executeCommand(t, "", "settings", "set", "llm.api_key", "sk-1234567890abcdef")

	require.NoError(t, err)
	assert.Contains(t, out, "Set llm.api_key = sk-1...cdef")
	assert.NotContains(t, out, "567890ab")
}

func TestSettingsSet_Error(t *testing.T) {
	_, settings := setupTestServices(t, newTestSession())
	settings.setErr = errors.New("unknown key")

	_, _, err := executeCommand(t, "", "settings", "set", "nope", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set nope: unknown key")
}

func TestSettingsSet_RequiresTwoArgs(t *testing.T) {
	setupTestServices(t, newTestSession())

	_, _, err := executeCommand(t, "", "settings", "set", "llm.model")

	assert.Error(t, err)
}

func TestSettingsKeys(t *testing.T) {
	setupTestServices(t, newTestSession())

	out, _, err := executeCommand(t, "", "settings", "keys")

	require.NoError(t, err)
	assert.Equal(t, "llm.model\nretrieval.per_retriever_k\n", out)
}

func TestSettingsSetKey(t *testing.T) {
	_, settings := setupTestServices(t, newTestSession())

	out, _, err := executeCommand(t, "sk-abcdefgh12345\n", "settings", "set-key", "llm")

	require.NoError(t, err)
	assert.Equal(t, "sk-abcdefgh12345", settings.set["llm.api_key"])
	assert.Contains(t, out, "Saved llm API key sk-a...2345")
}

func TestSettingsSetKey_Errors(t *testing.T) {
	setupTestServices(t, newTestSession())

	_, _, err := executeCommand(t, "key\n", "settings", "set-key", "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")

	_, _, err = executeCommand(t, "\n", "settings", "set-key", "embedding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key entered")
}

func TestSettingsLLM_Interactive(t *testing.T) {
	_, settings := setupTestServices(t, newTestSession())

	// Choose the second LLM provider, keep the default model, enter a key.
	providers := domain.AllLLMProviders()
	require.GreaterOrEqual(t, len(providers), 2)
	chosen := providers[1]
	input := "2\n\n"
	if chosen.RequiresAPIKey() {
		input += "sk-test-key-123456\n"
	}

	out, _, err := executeCommand(t, input, "settings", "llm")

	require.NoError(t, err)
	assert.Equal(t, chosen, settings.settings.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMModels()[chosen], settings.settings.LLM.Model)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettings_NotConfigured(t *testing.T) {
	SetServices(nil, nil)

	for _, args := range [][]string{
		{"settings", "show"},
		{"settings", "keys"},
		{"settings", "set", "a", "b"},
		{"settings", "embedding"},
	} {
		_, _, err := executeCommand(t, "", args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "settings service not configured")
	}
}

func TestSettingsEmbedding_LocalProviderSkipsKey(t *testing.T) {
	_, settings := setupTestServices(t, newTestSession())

	out, _, err := executeCommand(t, "1\nmxbai-embed-large\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, domain.AllEmbeddingProviders()[0], settings.settings.Embedding.Provider)
	assert.Equal(t, "mxbai-embed-large", settings.settings.Embedding.Model)
	assert.NotContains(t, out, "Enter API key")
	assert.Contains(t, out, "Embedding provider configured")
}

func TestSettingsLLM_MissingKey(t *testing.T) {
	setupTestServices(t, newTestSession())

	var hosted int
	for i, p := range domain.AllLLMProviders() {
		if p.RequiresAPIKey() {
			hosted = i + 1
			break
		}
	}
	require.NotZero(t, hosted)

	_, _, err := executeCommand(t, fmt.Sprintf("%d\n\n\n", hosted), "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}
