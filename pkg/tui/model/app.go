// Package model is the Bubble Tea model behind `agentlog watch`.
package model

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/agentlog/pkg/core"
)

// MaxEvents is how many events the list keeps.
const MaxEvents = 1000

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// App is the root Bubble Tea model.
type App struct {
	// Source
	source <-chan core.Event
	title  string
	ended  bool

	// State
	events []core.Event
	held   []core.Event
	paused bool
	scroll int // lines above the tail; 0 follows new events

	// Totals
	counts  map[core.Kind]int
	todo    string
	costUSD float64
	runs    int

	// UI
	mode   Mode
	search textinput.Model
	width  int
	height int

	statusMsg string
}

// New creates a model that reads events from source until it is closed.
func New(title string, source <-chan core.Event) App {
	si := textinput.New()
	si.Placeholder = "search..."
	si.CharLimit = 64

	return App{
		source: source,
		title:  title,
		counts: make(map[core.Kind]int),
		search: si,
		mode:   ModeNormal,
	}
}

// Init starts listening for events.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(a.source),
		tea.SetWindowTitle("agentlog "+a.title),
	)
}

// eventMsg carries one event from the source.
type eventMsg core.Event

// endedMsg reports that the source channel was closed.
type endedMsg struct{}

func waitForEvent(ch <-chan core.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return endedMsg{}
		}
		return eventMsg(e)
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case eventMsg:
		a.record(core.Event(msg))
		return a, waitForEvent(a.source)

	case endedMsg:
		a.ended = true
		a.statusMsg = "stream ended"
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) record(e core.Event) {
	a.counts[e.Kind]++
	switch e.Kind {
	case core.KindTodo:
		a.todo = e.Text
	case core.KindCost:
		a.costUSD += e.CostUSD
		a.runs++
	case core.KindDone:
		a.todo = ""
	}

	if a.paused {
		a.held = appendBounded(a.held, e)
		return
	}
	a.events = appendBounded(a.events, e)
}

func appendBounded(list []core.Event, e core.Event) []core.Event {
	list = append(list, e)
	if len(list) > MaxEvents {
		list = list[len(list)-MaxEvents:]
	}
	return list
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search mode
	if a.mode == ModeSearch {
		switch msg.String() {
		case "esc":
			a.mode = ModeNormal
			a.search.SetValue("")
			a.search.Blur()
			return a, nil
		case "enter":
			a.mode = ModeNormal
			a.search.Blur()
			return a, nil
		default:
			var cmd tea.Cmd
			a.search, cmd = a.search.Update(msg)
			a.scroll = 0
			return a, cmd
		}
	}

	// Normal mode
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "k", "up":
		a.scroll = min(a.scroll+1, max(0, len(a.filteredEvents())-1))
	case "j", "down":
		a.scroll = max(a.scroll-1, 0)
	case "g", "home":
		a.scroll = max(0, len(a.filteredEvents())-1)
	case "G", "end":
		a.scroll = 0

	case "/":
		a.mode = ModeSearch
		a.search.Focus()
		return a, textinput.Blink

	case " ":
		a.paused = !a.paused
		if !a.paused {
			for _, e := range a.held {
				a.events = appendBounded(a.events, e)
			}
			a.held = nil
		}
	}

	return a, nil
}

func (a App) filteredEvents() []core.Event {
	q := strings.ToLower(a.search.Value())
	if q == "" {
		return a.events
	}
	var filtered []core.Event
	for _, e := range a.events {
		if strings.Contains(strings.ToLower(e.Line()), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
