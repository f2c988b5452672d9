// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.sercha-rag.
//
// Adapters:
//   - ConfigStore: TOML-based configuration with an environment overlay
//   - PromptStore: user-editable LLM prompt templates
package file
