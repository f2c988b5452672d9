package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Fallback prompts, used when no PromptStore is set or loading fails.
const (
	defaultQueryRewritePrompt = "Given the chat history and the latest user question, " +
		"formulate a standalone question which can be understood without the chat history. " +
		"Do NOT answer the question, just reformulate it if needed. " +
		"Keep the language of the original question."

	defaultAnswerPrompt = `You are a knowledge assistant. Answer the user's question using only the context below.

CONTEXT:
=====================
%s
=====================

RULES:
1. Detect the language of the user's latest question: '%s'.
2. Answer in that language, even when the context is written in another one.
3. If the context does not contain the answer, say so.`
)

// promptLoader resolves prompt templates with a built-in fallback.
type promptLoader struct {
	store driven.PromptStore
}

// load returns the named prompt from the store, or fallback.
func (p promptLoader) load(name, fallback string) string {
	if p.store == nil {
		return fallback
	}
	prompt, err := p.store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Debug("Prompt %q unavailable, using default: %v", name, err)
		return fallback
	}
	return prompt
}

// answerPrompt renders the answer system prompt for context and question.
// A customised template with the wrong number of placeholders falls back to
// the default template.
func (p promptLoader) answerPrompt(context, question string) string {
	tmpl := p.load(driven.PromptAnswer, defaultAnswerPrompt)
	if strings.Count(tmpl, "%s") != 2 {
		logger.Warn("Answer prompt must contain two %%s placeholders, using default")
		tmpl = defaultAnswerPrompt
	}
	return fmt.Sprintf(tmpl, context, question)
}
