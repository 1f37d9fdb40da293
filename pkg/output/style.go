package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/modoterra/agentlog/pkg/core"
)

// ColorMode selects when console output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color mode string.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("unknown color mode %q (want auto, always, or never)", s)
	}
}

// Styles colors the prefix of each event line.
type Styles struct {
	Text lipgloss.Style
	Tool lipgloss.Style
	Todo lipgloss.Style
	Done lipgloss.Style
	Cost lipgloss.Style
}

// NewStyles builds the prefix styles on the given renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Text: r.NewStyle(),
		Tool: r.NewStyle().Foreground(lipgloss.Color("6")),
		Todo: r.NewStyle().Foreground(lipgloss.Color("3")),
		Done: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Cost: r.NewStyle().Foreground(lipgloss.Color("5")),
	}
}

// For returns the style used for the given kind.
func (s *Styles) For(k core.Kind) lipgloss.Style {
	switch k {
	case core.KindTool:
		return s.Tool
	case core.KindTodo:
		return s.Todo
	case core.KindDone:
		return s.Done
	case core.KindCost:
		return s.Cost
	default:
		return s.Text
	}
}

// Render returns the colored line for e. The body is left untouched.
func (s *Styles) Render(e core.Event) string {
	return s.For(e.Kind).Render(e.Kind.Prefix()) + " " + e.Body()
}

// StylesFor returns the styles to use when writing to w in the given mode,
// or nil when output should stay plain.
func StylesFor(w io.Writer, mode ColorMode) *Styles {
	switch mode {
	case ColorAlways:
		return NewStyles(lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI)))
	case ColorAuto:
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return NewStyles(lipgloss.NewRenderer(w))
		}
	}
	return nil
}
