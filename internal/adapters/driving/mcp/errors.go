// Package mcp exposes a chat session over the Model Context Protocol, so AI
// assistants can upload files, retrieve passages and ask questions.
package mcp

import "errors"

// ErrMissingSession is returned when no chat session is provided.
var ErrMissingSession = errors.New("mcp: chat session is required")
