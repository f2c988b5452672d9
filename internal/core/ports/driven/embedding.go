package driven

import "context"

// EmbeddingService turns text into vectors. The semantic chunker embeds
// combined sentences with it and the dense index embeds chunks and queries.
// Vectors need not be normalised.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or 0 when the model is unknown.
	Dimensions() int

	ModelName() string

	// Ping checks the provider is reachable without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}
