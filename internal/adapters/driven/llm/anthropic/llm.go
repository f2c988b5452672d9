// Package anthropic generates replies with the Anthropic Messages API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Event and delta types read from a message stream.
const (
	eventContentDelta = "content_block_delta"
	eventMessageStop  = "message_stop"
	eventError        = "error"
	deltaText         = "text_delta"
)

// Config configures the Anthropic service. APIKey is required; the rest
// fall back to the package defaults.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Limiter throttles requests. Nil uses the Anthropic provider limits.
	Limiter *ratelimit.Limiter
}

// LLMService calls /v1/messages.
type LLMService struct {
	api   *httpjson.Client
	model string
}

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string   `json:"model"`
	Messages    []turn   `json:"messages"`
	MaxTokens   int      `json:"max_tokens"`
	System      string   `json:"system,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *apiError      `json:"error,omitempty"`
}

// streamEvent decodes only what text deltas, the stop event and errors need.
type streamEvent struct {
	Type  string       `json:"type"`
	Delta contentBlock `json:"delta"`
	Error *apiError    `json:"error,omitempty"`
}

// NewLLMService creates an Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.ForProvider(domain.AIProviderAnthropic)
	}

	api := httpjson.New("anthropic", cfg.BaseURL, ratelimit.Client(limiter, cfg.Timeout))
	api.Header.Set("x-api-key", cfg.APIKey)
	api.Header.Set("anthropic-version", anthropicVersion)
	api.ErrorMessage = httpjson.ErrorField

	return &LLMService{api: api, model: cfg.Model}, nil
}

// request lifts system messages into the system field, joined in order.
// max_tokens is mandatory and temperature must lie in [0, 1].
func (s *LLMService) request(messages []driven.ChatMessage, opts driven.ChatOptions, stream bool) messagesRequest {
	var (
		system []string
		turns  []turn
	)
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, turn{Role: m.Role, Content: m.Content})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := min(opts.Temperature, 1)

	return messagesRequest{
		Model:       s.model,
		Messages:    turns,
		MaxTokens:   maxTokens,
		System:      strings.Join(system, "\n\n"),
		Temperature: &temperature,
		Stream:      stream,
	}
}

// Chat returns the concatenated text blocks of the reply.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var resp messagesResponse
	if err := s.api.PostJSON(ctx, "/v1/messages", s.request(messages, opts, false), &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return "", errors.New("anthropic: no response content returned")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// StreamChat delivers text deltas until message_stop arrives.
func (s *LLMService) StreamChat(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	onFragment driven.FragmentHandler,
) (string, error) {
	resp, err := s.api.Stream(ctx, "/v1/messages", s.request(messages, opts, true))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	stopped := false
	err = sse.Read(resp.Body, func(ev sse.Event) error {
		var event streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
			return fmt.Errorf("decode stream: %w", err)
		}

		switch event.Type {
		case eventError:
			if event.Error == nil {
				return errors.New("anthropic error: unknown stream error")
			}
			return fmt.Errorf("anthropic error: %s", event.Error.Message)
		case eventMessageStop:
			stopped = true
			return sse.ErrStop
		case eventContentDelta:
			if event.Delta.Type != deltaText || event.Delta.Text == "" {
				return nil
			}
			full.WriteString(event.Delta.Text)
			if onFragment != nil {
				return onFragment(event.Delta.Text)
			}
		}
		return nil
	})
	switch {
	case err != nil:
		return full.String(), err
	case !stopped:
		return full.String(), errors.New("anthropic: stream ended before completion")
	}
	return full.String(), nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/v1/models")
}

func (s *LLMService) Close() error {
	return nil
}
