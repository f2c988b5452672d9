package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Query pipeline defaults.
const (
	DefaultHistoryMessages = 3
	DefaultRewriteTimeout  = 30 * time.Second
	DefaultPerRetrieverK   = 5
	DefaultCombinedLimit   = 6
)

// QueryConfig configures the query pipeline.
type QueryConfig struct {
	// Order lists retriever names in merge priority order.
	Order []string

	// PerRetrieverK is the number of candidates requested from each index.
	PerRetrieverK int

	// CombinedLimit caps the merged candidate set.
	CombinedLimit int

	// HistoryMessages is how many recent history entries the rewrite sees.
	HistoryMessages int

	// RewriteTimeout bounds the rewrite call.
	RewriteTimeout time.Duration
}

// QueryConfigFromSettings extracts the query configuration from settings.
func QueryConfigFromSettings(s *domain.AppSettings) QueryConfig {
	return QueryConfig{
		Order:           s.Retrieval.Order,
		PerRetrieverK:   s.Retrieval.PerRetrieverK,
		CombinedLimit:   s.Retrieval.CombinedLimit,
		HistoryMessages: s.Conversation.HistoryMessages,
		RewriteTimeout:  s.Conversation.RewriteTimeout,
	}
}

// QueryPipeline rewrites follow-up questions and runs hybrid retrieval.
type QueryPipeline struct {
	llm     driven.LLMService
	prompts promptLoader
	cfg     QueryConfig
}

// NewQueryPipeline creates a query pipeline.
// llm and prompts are optional; without an LLM queries are never rewritten.
func NewQueryPipeline(llm driven.LLMService, prompts driven.PromptStore, cfg QueryConfig) *QueryPipeline {
	if len(cfg.Order) == 0 {
		cfg.Order = []string{domain.RetrieverLexical, domain.RetrieverDense}
	}
	if cfg.PerRetrieverK <= 0 {
		cfg.PerRetrieverK = DefaultPerRetrieverK
	}
	if cfg.CombinedLimit <= 0 {
		cfg.CombinedLimit = DefaultCombinedLimit
	}
	if cfg.HistoryMessages <= 0 {
		cfg.HistoryMessages = DefaultHistoryMessages
	}
	if cfg.RewriteTimeout <= 0 {
		cfg.RewriteTimeout = DefaultRewriteTimeout
	}

	return &QueryPipeline{
		llm:     llm,
		prompts: promptLoader{store: prompts},
		cfg:     cfg,
	}
}

// Retrieve returns the merged passages for rawQuery and the query used to
// find them. A failed rewrite falls back to rawQuery and is never returned.
func (p *QueryPipeline) Retrieve(
	ctx context.Context, rawQuery string, history []domain.Turn, state IndexState,
) ([]domain.Chunk, string, error) {
	logger.Section("Query")

	if !state.Ready() {
		return nil, "", domain.ErrNoIndex
	}

	query := p.Rewrite(ctx, rawQuery, history)

	hybrid := &HybridRetriever{
		K:     p.cfg.PerRetrieverK,
		Limit: p.cfg.CombinedLimit,
	}
	for _, name := range p.cfg.Order {
		r, ok := state.retriever(name)
		if !ok {
			return nil, query, domain.NewPipelineError(domain.StageRetrieval, name,
				fmt.Errorf("unknown retriever: %w", domain.ErrInvalidInput))
		}
		hybrid.Retrievers = append(hybrid.Retrievers, r)
	}

	chunks, err := hybrid.Search(ctx, query)
	if err != nil {
		return nil, query, err
	}
	return chunks, query, nil
}

// Rewrite turns a follow-up question into a standalone query using the most
// recent history. It returns rawQuery when there is no history, no LLM, or
// the LLM call fails or times out.
func (p *QueryPipeline) Rewrite(ctx context.Context, rawQuery string, history []domain.Turn) string {
	if len(history) == 0 || p.llm == nil {
		return rawQuery
	}

	recent := history
	if len(recent) > p.cfg.HistoryMessages {
		recent = recent[len(recent)-p.cfg.HistoryMessages:]
	}

	lines := make([]string, len(recent))
	for i, t := range recent {
		lines[i] = t.Role + ": " + t.Content
	}

	messages := []driven.ChatMessage{
		{Role: domain.RoleSystem, Content: p.prompts.load(driven.PromptQueryRewrite, defaultQueryRewritePrompt)},
		{Role: domain.RoleUser, Content: "History:\n" + strings.Join(lines, "\n") + "\n\nQuestion: " + rawQuery},
	}

	rctx, cancel := context.WithTimeout(ctx, p.cfg.RewriteTimeout)
	defer cancel()

	start := time.Now()
	reply, err := p.llm.Chat(rctx, messages, driven.ChatOptions{Temperature: 0})
	if err != nil {
		logger.Warn("%v", domain.NewPipelineError(domain.StageRewrite, "", err))
		return rawQuery
	}

	rewritten := strings.TrimSpace(reply)
	if rewritten == "" {
		logger.Warn("Query rewrite returned nothing, using the original question")
		return rawQuery
	}

	logger.Debug("Rewritten query: %q (%s)", rewritten, time.Since(start))
	return rewritten
}

// HistoryWindow returns how many recent history entries a rewrite uses.
func (p *QueryPipeline) HistoryWindow() int {
	return p.cfg.HistoryMessages
}
