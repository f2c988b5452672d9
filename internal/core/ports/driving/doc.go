// Package driving declares what the front ends (CLI, TUI and MCP server)
// call on the core: a ChatSession per conversation and the SettingsService.
// The services package implements both.
package driving
