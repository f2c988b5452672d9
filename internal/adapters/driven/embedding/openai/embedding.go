// Package openai embeds text with the OpenAI embeddings API or a compatible one.
package openai

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// MaxBatchSize is the most inputs the embeddings endpoint accepts per request.
	MaxBatchSize = 2048
)

// Config configures the OpenAI embedding service. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the requested vector length. text-embedding-3 models
	// honour it; for other models it only seeds Dimensions().
	Dimensions int

	// Limiter throttles requests. Nil uses the OpenAI provider limits.
	Limiter *ratelimit.Limiter
}

// EmbeddingService calls the /embeddings endpoint.
type EmbeddingService struct {
	api        *httpjson.Client
	model      string
	requestDim int
	dimensions atomic.Int64
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates an OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
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
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.ForProvider(domain.AIProviderOpenAI)
	}

	api := httpjson.New("openai", cfg.BaseURL, ratelimit.Client(limiter, cfg.Timeout))
	api.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	api.ErrorMessage = httpjson.ErrorField

	s := &EmbeddingService{api: api, model: cfg.Model}
	if supportsDimensions(cfg.Model) {
		s.requestDim = cfg.Dimensions
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s, nil
}

// supportsDimensions reports whether model accepts a dimensions parameter.
func supportsDimensions(model string) bool {
	return strings.HasPrefix(model, "text-embedding-3-")
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.post(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in sequential requests of at most MaxBatchSize inputs.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(texts))
		vecs, err := s.post(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// post sends one request and returns the vectors ordered by input index.
func (s *EmbeddingService) post(ctx context.Context, texts []string) ([][]float32, error) {
	var er embeddingResponse
	req := embeddingRequest{Model: s.model, Input: texts, Dimensions: s.requestDim}
	if err := s.api.PostJSON(ctx, "/embeddings", req, &er); err != nil {
		return nil, err
	}
	if er.Error != nil {
		return nil, fmt.Errorf("openai error: %s", er.Error.Message)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}

	s.dimensions.CompareAndSwap(0, int64(len(vecs[0])))
	return vecs, nil
}

// Dimensions returns the vector length, or 0 before the first response
// when the model was not recognised.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the API key without embedding anything.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/models")
}

func (s *EmbeddingService) Close() error {
	return nil
}
