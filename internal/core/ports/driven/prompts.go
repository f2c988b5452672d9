package driven

// PromptStore hands out the system prompts sent to the LLM.
type PromptStore interface {
	// Load returns the named prompt. Unknown names are an error.
	Load(name string) (string, error)

	// Reload drops cached prompts so edits on disk take effect.
	Reload()
}

// Prompt names.
const (
	// PromptQueryRewrite turns a follow-up question into a standalone one.
	PromptQueryRewrite = "query_rewrite"

	// PromptAnswer has two %s verbs: the retrieved context, then the question.
	PromptAnswer = "answer"
)
