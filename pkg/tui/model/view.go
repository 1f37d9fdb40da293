package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoterra/agentlog/pkg/core"
	"github.com/modoterra/agentlog/pkg/output"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 1)

	todoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	endedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	eventStyles = output.NewStyles(lipgloss.DefaultRenderer())
)

// View renders the TUI.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}

	statusBarH := 2
	paneH := a.height - statusBarH - 2
	paneW := a.width - 4

	body := titleStyle.Render(a.paneTitle()) + "\n" + a.renderEvents(paneW-2, paneH-1)
	pane := paneStyle.Width(paneW).Height(paneH).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, pane, a.renderSummary(), a.renderStatusBar())
}

func (a App) paneTitle() string {
	title := " " + a.title + " "
	if a.paused {
		title += dimStyle.Render("[PAUSED]") + " "
	}
	if a.scroll > 0 {
		title += dimStyle.Render(fmt.Sprintf("[-%d]", a.scroll)) + " "
	}
	return title
}

func (a App) renderEvents(w, h int) string {
	events := a.filteredEvents()
	if len(events) == 0 {
		if a.search.Value() != "" {
			return dimStyle.Render("no matching events")
		}
		return dimStyle.Render("waiting for events...")
	}

	visible := max(h-1, 1)
	if a.mode == ModeSearch {
		visible = max(visible-2, 1)
	}
	end := len(events) - a.scroll
	start := max(end-visible, 0)

	var b strings.Builder
	for _, e := range events[start:end] {
		b.WriteString(renderEvent(e, w) + "\n")
	}
	if a.mode == ModeSearch {
		b.WriteString("\n" + a.search.View())
	}
	return b.String()
}

func renderEvent(e core.Event, w int) string {
	prefix := e.Kind.Prefix()
	body := truncate(e.Body(), max(w-len(prefix)-1, 0))
	return eventStyles.For(e.Kind).Render(prefix) + " " + body
}

func (a App) renderSummary() string {
	kinds := []core.Kind{core.KindText, core.KindTool, core.KindTodo, core.KindDone}
	parts := make([]string, 0, len(kinds)+2)
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s %d", strings.ToLower(string(k)), a.counts[k]))
	}
	parts = append(parts, fmt.Sprintf("cost $%.4f (%d runs)", a.costUSD, a.runs))

	line := strings.Join(parts, "  ")
	if a.todo != "" {
		line += "  " + todoStyle.Render("▶ "+a.todo)
	}
	return " " + line
}

func (a App) renderStatusBar() string {
	left := a.statusMsg
	if a.ended {
		left = endedStyle.Render(a.statusMsg)
	}
	right := "j/k:scroll g/G:top/tail space:pause /:search q:quit"
	if a.mode == ModeSearch {
		right = "enter:apply esc:cancel"
	}

	gap := a.width - lipgloss.Width(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return helpStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
