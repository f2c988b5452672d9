// Package openai generates chat completions with the OpenAI API or a
// compatible server.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/sse"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// streamDone is the data payload of the last event in a completion stream.
const streamDone = "[DONE]"

// LLMConfig configures the OpenAI LLM service. APIKey is required.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Limiter throttles requests. Nil uses the OpenAI provider limits.
	Limiter *ratelimit.Limiter
}

// LLMService calls /chat/completions.
type LLMService struct {
	api   *httpjson.Client
	model string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// NewLLMService creates an OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.ForProvider(domain.AIProviderOpenAI)
	}

	api := httpjson.New("openai", cfg.BaseURL, ratelimit.Client(limiter, cfg.Timeout))
	api.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	api.ErrorMessage = httpjson.ErrorField

	return &LLMService{api: api, model: cfg.Model}, nil
}

func (s *LLMService) request(messages []driven.ChatMessage, opts driven.ChatOptions, stream bool) chatCompletionRequest {
	msgs := make([]message, len(messages))
	for i, m := range messages {
		msgs[i] = message{Role: m.Role, Content: m.Content}
	}
	temperature := opts.Temperature
	return chatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		MaxTokens:   max(opts.MaxTokens, 0),
		Temperature: &temperature,
		Stream:      stream,
	}
}

// Chat returns the first choice of a completion.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var resp chatCompletionResponse
	if err := s.api.PostJSON(ctx, "/chat/completions", s.request(messages, opts, false), &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("openai error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat delivers content deltas as they arrive. A stream that ends
// without the [DONE] event is an error.
func (s *LLMService) StreamChat(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	onFragment driven.FragmentHandler,
) (string, error) {
	resp, err := s.api.Stream(ctx, "/chat/completions", s.request(messages, opts, true))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	done := false
	err = sse.Read(resp.Body, func(ev sse.Event) error {
		if ev.Data == streamDone {
			done = true
			return sse.ErrStop
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return fmt.Errorf("decode stream: %w", err)
		}
		if chunk.Error != nil {
			return fmt.Errorf("openai error: %s", chunk.Error.Message)
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content == "" {
				continue
			}
			full.WriteString(c.Delta.Content)
			if onFragment != nil {
				if err := onFragment(c.Delta.Content); err != nil {
					return err
				}
			}
		}
		return nil
	})
	switch {
	case err != nil:
		return full.String(), err
	case !done:
		return full.String(), errors.New("openai: stream ended before completion")
	}
	return full.String(), nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/models")
}

func (s *LLMService) Close() error {
	return nil
}
