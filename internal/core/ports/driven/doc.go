// Package driven declares what the core needs from the outside world: file
// loading, embeddings, text generation, indexes, history and configuration.
// Adapters under internal/adapters/driven implement these interfaces.
//
// A session cannot start without a DocumentLoader, EmbeddingService,
// Chunker, DenseIndexFactory, LexicalIndexBuilder and HistoryStore.
// LLMService may be nil, in which case questions are used verbatim and
// only the retrieved chunks are returned. A nil PromptStore means the
// built-in prompts.
//
// This package imports only domain.
package driven
