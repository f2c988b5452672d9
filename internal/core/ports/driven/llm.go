package driven

import "context"

// LLMService generates text. The query pipeline uses it twice per turn:
// once to make a follow-up question standalone and once to answer from
// the retrieved chunks.
type LLMService interface {
	// Chat returns the whole reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// StreamChat hands the reply to onFragment piece by piece, in order,
	// and returns the concatenation. An error from onFragment stops the
	// stream and is returned as is.
	StreamChat(ctx context.Context, messages []ChatMessage, opts ChatOptions, onFragment FragmentHandler) (string, error)

	ModelName() string

	// Ping checks the provider is reachable without running inference.
	Ping(ctx context.Context) error

	Close() error
}

// FragmentHandler receives one piece of a streamed reply.
type FragmentHandler func(fragment string) error

// ChatMessage is one turn. Role is "system", "user" or "assistant".
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions are per-call generation limits. A zero MaxTokens leaves the
// provider default.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
