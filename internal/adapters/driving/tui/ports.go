// Package tui is a full-screen chat over one retrieval session, built on
// Bubble Tea. Files are uploaded with /upload and answers stream in with
// their sources.
package tui

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports are the core services the TUI drives.
type Ports struct {
	Session driving.ChatSession
}

// Validate fails with ErrMissingSession when Session is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Session == nil {
		return ErrMissingSession
	}
	return nil
}
