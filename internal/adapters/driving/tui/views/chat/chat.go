// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrNoSession is reported when the view has no session to talk to.
var ErrNoSession = errors.New("chat: no session")

// Slash commands typed into the input.
const (
	cmdUpload = "/upload"
	cmdHelp   = "/help"
	cmdQuit   = "/quit"
	cmdExit   = "/exit"
)

// fragmentBuffer is how many answer fragments may queue before the
// generating goroutine waits for the UI.
const fragmentBuffer = 64

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryInfo
	entryError
)

// entry is one block of the transcript.
type entry struct {
	kind    entryKind
	text    string
	sources []string
}

// View is the conversation view: transcript, input and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.ChatInput
	viewport  viewport.Model
	statusbar *status.Bar

	session driving.ChatSession
	ctx     context.Context

	entries []entry

	// Set while an answer is streaming.
	cancel    context.CancelFunc
	fragments <-chan string
	result    <-chan messages.AnswerCompleted

	width  int
	height int
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, session driving.ChatSession) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:    s,
		keymap:    km,
		input:     input.NewChatInput(s),
		viewport:  viewport.New(80, 18),
		statusbar: status.NewBar(s, km),
		session:   session,
		ctx:       context.Background(),
	}
	v.SetDimensions(80, 24)
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetDimensions sizes the transcript to fill what the input and status bar leave.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	// Title, blank line, bordered input (3 lines) and status bar.
	v.viewport.Width = width
	v.viewport.Height = max(height-6, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.UploadRequested:
		return v, v.Upload(msg.Paths)

	case messages.IngestCompleted:
		v.handleIngestCompleted(msg)
		return v, nil

	case messages.AnswerFragment:
		v.appendFragment(msg.Text)
		return v, v.waitForAnswer()

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	cmds = append(cmds, cmd)
	v.viewport, cmd = v.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return v, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Cancel):
		if v.cancel != nil {
			v.cancel()
		}
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp), keymap.Matches(key, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(key, v.keymap.Submit):
		text := strings.TrimSpace(v.input.Value())
		if text == "" {
			return v, nil
		}
		if v.statusbar.Busy() {
			v.statusbar.SetMessage("Wait for the current answer to finish")
			return v, nil
		}
		v.input.Reset()
		return v, v.submit(text)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit runs a slash command or asks a question.
func (v *View) submit(text string) tea.Cmd {
	if !strings.HasPrefix(text, "/") {
		return v.ask(text)
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case cmdUpload:
		if len(fields) == 1 {
			v.addEntry(entry{kind: entryError, text: "usage: /upload <file> [file...]"})
			return nil
		}
		return v.Upload(fields[1:])
	case cmdHelp:
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewHelp} }
	case cmdQuit, cmdExit:
		return func() tea.Msg { return messages.Quit{} }
	default:
		v.addEntry(entry{kind: entryError, text: fmt.Sprintf("unknown command %s", fields[0])})
		return nil
	}
}

// Upload ingests files into the session in the background.
func (v *View) Upload(paths []string) tea.Cmd {
	if len(paths) == 0 {
		return nil
	}
	if v.session == nil {
		return func() tea.Msg { return messages.ErrorOccurred{Err: ErrNoSession} }
	}

	v.statusbar.SetState(status.StateIngesting)
	v.addEntry(entry{kind: entryInfo, text: fmt.Sprintf("Uploading %s", strings.Join(paths, ", "))})

	session, ctx := v.session, v.ctx
	return func() tea.Msg {
		blobs := make([]domain.FileBlob, len(paths))
		for i, p := range paths {
			blobs[i] = domain.FileBlob{Path: p}
		}
		report, err := session.Ingest(ctx, blobs)
		return messages.IngestCompleted{Report: report, Err: err}
	}
}

func (v *View) handleIngestCompleted(msg messages.IngestCompleted) {
	v.statusbar.Clear()
	if v.session != nil {
		v.statusbar.SetChunkCount(v.session.ChunkCount())
	}
	if msg.Report != nil {
		v.addEntry(entry{kind: entryInfo, text: msg.Report.Summary()})
	}
	if msg.Err != nil {
		v.addEntry(entry{kind: entryError, text: msg.Err.Error()})
	}
}

// ask starts streaming an answer. Fragments are delivered one message at a
// time by waitForAnswer until AnswerCompleted.
func (v *View) ask(question string) tea.Cmd {
	if v.session == nil {
		return func() tea.Msg { return messages.ErrorOccurred{Err: ErrNoSession} }
	}

	v.addEntry(entry{kind: entryUser, text: question})
	v.addEntry(entry{kind: entryAssistant})
	v.statusbar.SetState(status.StateThinking)

	ctx, cancel := context.WithCancel(v.ctx)
	fragments := make(chan string, fragmentBuffer)
	result := make(chan messages.AnswerCompleted, 1)
	v.cancel, v.fragments, v.result = cancel, fragments, result

	session := v.session
	go func() {
		answer, err := session.Ask(ctx, question, func(fragment string) error {
			select {
			case fragments <- fragment:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		close(fragments)
		result <- messages.AnswerCompleted{Answer: answer, Err: err}
	}()

	return v.waitForAnswer()
}

// waitForAnswer returns a command that yields the next fragment, or the
// completion once the fragments are drained.
func (v *View) waitForAnswer() tea.Cmd {
	fragments, result := v.fragments, v.result
	if result == nil {
		return nil
	}
	return func() tea.Msg {
		if fragment, ok := <-fragments; ok {
			return messages.AnswerFragment{Text: fragment}
		}
		return <-result
	}
}

func (v *View) appendFragment(text string) {
	if last := v.lastAssistant(); last != nil {
		last.text += text
		v.refresh()
	}
}

func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	if v.cancel != nil {
		v.cancel()
	}
	v.cancel, v.fragments, v.result = nil, nil, nil
	v.statusbar.Clear()

	last := v.lastAssistant()
	switch {
	case msg.Err != nil && errors.Is(msg.Err, context.Canceled):
		if last != nil {
			last.text += " (stopped)"
		}
	case msg.Err != nil:
		if last != nil && last.text == "" {
			v.entries = v.entries[:len(v.entries)-1]
		}
		v.addEntry(entry{kind: entryError, text: msg.Err.Error()})
	case msg.Answer != nil && last != nil:
		last.text = msg.Answer.Text
		for _, c := range msg.Answer.Citations {
			last.sources = append(last.sources, c.Label())
		}
	}
	v.refresh()
}

// lastAssistant returns the answer being streamed, if it is the last entry.
func (v *View) lastAssistant() *entry {
	if len(v.entries) == 0 {
		return nil
	}
	last := &v.entries[len(v.entries)-1]
	if last.kind != entryAssistant {
		return nil
	}
	return last
}

func (v *View) addEntry(e entry) {
	v.entries = append(v.entries, e)
	v.refresh()
}

func (v *View) refresh() {
	v.viewport.SetContent(v.render())
	v.viewport.GotoBottom()
}

// render lays out the transcript wrapped to the view width.
func (v *View) render() string {
	wrap := lipgloss.NewStyle().Width(max(v.width-2, 10))

	blocks := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		var b strings.Builder
		switch e.kind {
		case entryUser:
			b.WriteString(v.styles.UserLabel.Render("You: "))
			b.WriteString(v.styles.Normal.Render(e.text))
		case entryAssistant:
			b.WriteString(v.styles.AssistantLabel.Render("Assistant: "))
			if e.text == "" {
				b.WriteString(v.styles.Muted.Render("..."))
			} else {
				b.WriteString(v.styles.Normal.Render(e.text))
			}
			if len(e.sources) > 0 {
				b.WriteString("\n" + v.styles.Muted.Render("Sources:"))
				for _, s := range e.sources {
					b.WriteString("\n" + v.styles.Source.Render("- "+s))
				}
			}
		case entryInfo:
			b.WriteString(v.styles.Muted.Render(e.text))
		case entryError:
			b.WriteString(v.styles.Error.Render("Error: " + e.text))
		}
		blocks = append(blocks, wrap.Render(b.String()))
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the chat view.
func (v *View) View() string {
	title := v.styles.Title.Render("sercha-rag")
	if v.session != nil {
		title += v.styles.Muted.Render("  session " + v.session.ID())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		v.viewport.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// Transcript returns the rendered conversation.
func (v *View) Transcript() string {
	return v.render()
}

// Busy reports whether an answer or an upload is in progress.
func (v *View) Busy() bool {
	return v.statusbar.Busy()
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}

// SetInput replaces the input text.
func (v *View) SetInput(text string) {
	v.input.SetValue(text)
}
