package model

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/agentlog/pkg/core"
)

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	next, ok := m.(App)
	require.True(t, ok)
	return next
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func feed(t *testing.T, a App, events ...core.Event) App {
	t.Helper()
	for _, e := range events {
		a = update(t, a, eventMsg(e))
	}
	return a
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan core.Event, 1)
	ch <- core.TextEvent("hi")
	assert.Equal(t, eventMsg(core.TextEvent("hi")), waitForEvent(ch)())

	close(ch)
	assert.Equal(t, endedMsg{}, waitForEvent(ch)())
}

func TestRecordTotals(t *testing.T) {
	a := New("test", nil)
	a = feed(t, a,
		core.TextEvent("Looking"),
		core.ToolEvent("Read", "Read: /a"),
		core.TodoEvent("Writing tests"),
		core.CostEvent(0.25, 1000),
		core.CostEvent(0.5, 1000),
	)

	assert.Len(t, a.events, 5)
	assert.Equal(t, 1, a.counts[core.KindTool])
	assert.Equal(t, "Writing tests", a.todo)
	assert.InDelta(t, 0.75, a.costUSD, 1e-9)
	assert.Equal(t, 2, a.runs)

	a = feed(t, a, core.DoneEvent("ok"))
	assert.Empty(t, a.todo, "a finished run clears the active todo")
}

func TestEventsBounded(t *testing.T) {
	a := New("test", nil)
	for i := 0; i < MaxEvents+10; i++ {
		a = feed(t, a, core.TextEvent("line"))
	}
	assert.Len(t, a.events, MaxEvents)
	assert.Equal(t, MaxEvents+10, a.counts[core.KindText])
}

func TestPauseHoldsEvents(t *testing.T) {
	a := New("test", nil)
	a = feed(t, a, core.TextEvent("one"))
	a = update(t, a, key(" "))
	require.True(t, a.paused)

	a = feed(t, a, core.TextEvent("two"), core.TextEvent("three"))
	assert.Len(t, a.events, 1)
	assert.Equal(t, 3, a.counts[core.KindText])

	a = update(t, a, key(" "))
	assert.False(t, a.paused)
	assert.Len(t, a.events, 3)
	assert.Empty(t, a.held)
}

func TestSearchFilters(t *testing.T) {
	a := New("test", nil)
	a = feed(t, a,
		core.ToolEvent("Bash", "Bash: go test ./..."),
		core.TextEvent("All green"),
		core.ToolEvent("Read", "Read: /main.go"),
	)

	a = update(t, a, key("/"))
	require.Equal(t, ModeSearch, a.mode)
	for _, r := range "bash" {
		a = update(t, a, key(string(r)))
	}
	a = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ModeNormal, a.mode)

	got := a.filteredEvents()
	require.Len(t, got, 1)
	assert.Equal(t, "Bash", got[0].Tool)

	a = update(t, a, key("/"))
	a = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, a.filteredEvents(), 3)
}

func TestScroll(t *testing.T) {
	a := New("test", nil)
	a = feed(t, a, core.TextEvent("a"), core.TextEvent("b"), core.TextEvent("c"))

	a = update(t, a, key("k"))
	a = update(t, a, key("k"))
	a = update(t, a, key("k"))
	assert.Equal(t, 2, a.scroll, "scroll stops at the first event")

	a = update(t, a, key("j"))
	assert.Equal(t, 1, a.scroll)
	a = update(t, a, key("G"))
	assert.Equal(t, 0, a.scroll)
}

func TestStreamEnded(t *testing.T) {
	a := New("run.jsonl", nil)
	a = update(t, a, tea.WindowSizeMsg{Width: 100, Height: 20})
	a = feed(t, a, core.ToolEvent("Read", "Read: /a"), core.TodoEvent("Fixing bug"))
	a = update(t, a, endedMsg{})

	view := a.View()
	assert.Contains(t, view, "stream ended")
	assert.Contains(t, view, "Read: /a")
	assert.Contains(t, view, "tool 1")
	assert.Contains(t, view, "Fixing bug")
	assert.Contains(t, view, "run.jsonl")
}

func TestViewBeforeSize(t *testing.T) {
	assert.Equal(t, "loading...", New("x", nil).View())
}

func TestQuit(t *testing.T) {
	_, cmd := New("x", nil).Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "he...", truncate("hello world", 5))
	assert.Equal(t, "日本", truncate("日本語", 2))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("x", 50), 20), "..."))
}
