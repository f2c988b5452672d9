// Package styles holds the lipgloss styles of the chat screen.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette names the colours the chat screen uses. Each colour adapts to
// light and dark terminals.
type Palette struct {
	User      lipgloss.AdaptiveColor
	Assistant lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Dim       lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Frame     lipgloss.AdaptiveColor
	Bar       lipgloss.AdaptiveColor
}

// DefaultPalette returns the built-in palette.
func DefaultPalette() Palette {
	return Palette{
		User:      lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"},
		Assistant: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"},
		Text:      lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CDD6F4"},
		Dim:       lipgloss.AdaptiveColor{Light: "#6C7086", Dark: "#7F849C"},
		Danger:    lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"},
		Frame:     lipgloss.AdaptiveColor{Light: "#BCC0CC", Dark: "#45475A"},
		Bar:       lipgloss.AdaptiveColor{Light: "#E6E9EF", Dark: "#181825"},
	}
}

// Styles are the rendered styles derived from a Palette.
type Styles struct {
	Palette Palette

	Title          lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Normal         lipgloss.Style
	Muted          lipgloss.Style

	// Source renders a citation line under an answer.
	Source lipgloss.Style

	Error      lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
}

// New derives styles from p.
func New(p Palette) *Styles {
	bold := lipgloss.NewStyle().Bold(true)
	return &Styles{
		Palette:        p,
		Title:          bold.Foreground(p.User),
		UserLabel:      bold.Foreground(p.User),
		AssistantLabel: bold.Foreground(p.Assistant),
		Normal:         lipgloss.NewStyle().Foreground(p.Text),
		Muted:          lipgloss.NewStyle().Foreground(p.Dim),
		Source:         lipgloss.NewStyle().Italic(true).Foreground(p.Dim).PaddingLeft(2),
		Error:          lipgloss.NewStyle().Foreground(p.Danger),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().Foreground(p.Dim).Background(p.Bar).Padding(0, 1),
		Help:      lipgloss.NewStyle().Foreground(p.Dim),
	}
}

// DefaultStyles returns styles for the default palette.
func DefaultStyles() *Styles {
	return New(DefaultPalette())
}
