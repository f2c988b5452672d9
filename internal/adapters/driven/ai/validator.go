package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ProviderValidator = (*Pinger)(nil)

// DefaultPingTimeout bounds a single provider ping.
const DefaultPingTimeout = 10 * time.Second

// Pinger validates provider settings by building the service and pinging it.
type Pinger struct {
	// Timeout bounds each ping. Zero means DefaultPingTimeout.
	Timeout time.Duration
}

// NewPinger creates a Pinger with the default timeout.
func NewPinger() *Pinger {
	return &Pinger{Timeout: DefaultPingTimeout}
}

// ValidateEmbedding pings the configured embedding provider. Incomplete
// settings pass; Validate on the settings service reports those.
func (p *Pinger) ValidateEmbedding(ctx context.Context, cfg *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil || svc == nil {
		return err
	}
	return p.ping(ctx, svc)
}

// ValidateLLM pings the configured LLM provider.
func (p *Pinger) ValidateLLM(ctx context.Context, cfg *domain.LLMSettings) error {
	svc, err := CreateLLMService(cfg)
	if err != nil || svc == nil {
		return err
	}
	return p.ping(ctx, svc)
}

func (p *Pinger) ping(ctx context.Context, svc provider) error {
	defer svc.Close()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return svc.Ping(ctx)
}
