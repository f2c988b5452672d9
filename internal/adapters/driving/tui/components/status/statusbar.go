// Package status renders the one-line bar under the chat input.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

// State is what the session is doing.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateIngesting State = "ingesting"
	StateError     State = "error"
)

// busyLabels are shown while a long operation runs.
var busyLabels = map[State]string{
	StateThinking:  "Thinking...",
	StateIngesting: "Indexing files...",
}

// Bar shows the session state or index size on the left and the key hints
// that apply right now on the right.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	chunks  int
	width   int
}

// NewBar creates a bar 80 columns wide. Nil arguments use the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

func (b *Bar) View() string {
	left, right := b.status(), b.hints()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) status() string {
	if label, ok := busyLabels[b.state]; ok {
		return b.styles.Muted.Render(label)
	}
	if b.state == StateError {
		text := "Error"
		if b.message != "" {
			text += ": " + b.message
		}
		return b.styles.Error.Render(text)
	}

	switch {
	case b.message != "":
		return b.styles.Normal.Render(b.message)
	case b.chunks == 0:
		return b.styles.Muted.Render("No files yet, /upload to start")
	default:
		return b.styles.Normal.Render(fmt.Sprintf("%d chunks indexed", b.chunks))
	}
}

// hints swaps to the cancel binding while an answer or upload runs.
func (b *Bar) hints() string {
	bindings := b.keymap.ShortHelp()
	if b.Busy() {
		bindings = b.keymap.BusyHelp()
	}

	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		parts[i] = describe(kb)
	}
	return b.styles.Muted.Render(strings.Join(parts, " | "))
}

func describe(kb key.Binding) string {
	h := kb.Help()
	return h.Key + ": " + h.Desc
}

// Busy reports whether an answer or an upload is in progress.
func (b *Bar) Busy() bool {
	_, busy := busyLabels[b.state]
	return busy
}

func (b *Bar) SetState(state State)  { b.state = state }
func (b *Bar) State() State          { return b.state }
func (b *Bar) SetMessage(msg string) { b.message = msg }
func (b *Bar) Message() string       { return b.message }
func (b *Bar) SetChunkCount(n int)   { b.chunks = n }
func (b *Bar) ChunkCount() int       { return b.chunks }
func (b *Bar) SetWidth(width int)    { b.width = width }
func (b *Bar) Width() int            { return b.width }

// Clear returns to the ready state. The chunk count is kept.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
}
