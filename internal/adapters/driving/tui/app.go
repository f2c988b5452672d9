package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/chat"
)

var _ tea.Model = (*App)(nil)

// slashCommands are listed on the help screen.
var slashCommands = [][2]string{
	{"/upload <file> [file...]", "Index files into this session"},
	{"/help", "Show this screen"},
	{"/quit", "Exit"},
}

// App is the root model. It owns the chat view and switches to a help
// screen; everything else is forwarded to the chat.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	chat *chat.View
	view messages.ViewType

	// files are uploaded once the program starts.
	files []string
	err   error

	width, height int
	ready         bool
}

func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s, km := styles.DefaultStyles(), keymap.DefaultKeyMap()
	return &App{
		ports:  ports,
		ctx:    context.Background(),
		styles: s,
		keymap: km,
		chat:   chat.NewView(s, km, ports.Session),
		view:   messages.ViewChat,
	}, nil
}

// WithContext bounds uploads and answers by ctx.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chat.WithContext(ctx)
	return a
}

// WithFiles queues paths for upload at start.
func (a *App) WithFiles(paths []string) *App {
	a.files = paths
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("sercha-rag"), a.chat.Init(), a.chat.Upload(a.files))
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil
	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg.String()); handled {
			return a, cmd
		}
	case messages.ViewChanged:
		a.view = msg.View
		return a, nil
	case messages.Quit:
		return a, tea.Quit
	case messages.ErrorOccurred:
		a.err = msg.Err
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

// handleKey deals with the global keys. On the help screen it swallows
// every other key too.
func (a *App) handleKey(k string) (tea.Cmd, bool) {
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return tea.Quit, true
	case keymap.Matches(k, a.keymap.Help):
		if a.view == messages.ViewHelp {
			a.view = messages.ViewChat
		} else {
			a.view = messages.ViewHelp
		}
		return nil, true
	case a.view != messages.ViewHelp:
		return nil, false
	}

	if keymap.Matches(k, a.keymap.Back) {
		a.view = messages.ViewChat
	}
	return nil, true
}

func (a *App) View() string {
	if a.view == messages.ViewHelp {
		return a.helpView()
	}
	return a.chat.View()
}

func (a *App) helpView() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))

	b.WriteString("\n\nKeys:\n")
	for _, group := range a.keymap.FullHelp() {
		for _, kb := range group {
			h := kb.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
	}

	b.WriteString("\nCommands:\n")
	for _, c := range slashCommands {
		fmt.Fprintf(&b, "  %-25s %s\n", c[0], c[1])
	}

	b.WriteString("\n" + a.styles.Help.Render("[esc] back to chat"))
	return b.String()
}

// Run blocks until the user quits or the context ends.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

func (a *App) CurrentView() messages.ViewType { return a.view }

// Err is the last error reported through messages.ErrorOccurred.
func (a *App) Err() error { return a.err }

// Ready reports whether the first window size has arrived.
func (a *App) Ready() bool { return a.ready }

func (a *App) SetDimensions(width, height int) {
	a.width, a.height = width, height
	a.ready = true
	a.chat.SetDimensions(width, height)
}
