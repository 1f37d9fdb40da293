package core

import (
	"fmt"
	"math"
)

// Kind identifies the category of a condensed event.
type Kind string

const (
	KindText Kind = "text"
	KindTool Kind = "tool"
	KindTodo Kind = "todo"
	KindDone Kind = "done"
	KindCost Kind = "cost"
)

// Prefix returns the bracketed tag printed in front of the event body.
func (k Kind) Prefix() string {
	switch k {
	case KindText:
		return "[TEXT]"
	case KindTool:
		return "[TOOL]"
	case KindTodo:
		return "[TODO]"
	case KindDone:
		return "[DONE]"
	case KindCost:
		return "[COST]"
	default:
		return "[" + string(k) + "]"
	}
}

// Status represents the current state of a worker or service.
type Status string

const (
	StatusRunning    Status = "running"
	StatusStopped    Status = "stopped"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
	StatusRestarting Status = "restarting"
	StatusWaiting    Status = "waiting"
)

// RestartPolicy defines whether the worker runs the agent again after it exits.
type RestartPolicy string

const (
	RestartAlways    RestartPolicy = "always"
	RestartOnFailure RestartPolicy = "on-failure"
	RestartNever     RestartPolicy = "never"
)

// Valid reports whether p is one of the known policies.
func (p RestartPolicy) Valid() bool {
	switch p {
	case RestartAlways, RestartOnFailure, RestartNever:
		return true
	}
	return false
}

// Event is one condensed line of agent activity.
type Event struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
	// Tool is the tool name for tool and todo events.
	Tool       string  `json:"tool,omitempty"`
	CostUSD    float64 `json:"cost_usd,omitempty"`
	DurationMs float64 `json:"duration_ms,omitempty"`
	TsUnixMs   int64   `json:"ts_unix_ms,omitempty"`
}

// TextEvent creates a text event.
func TextEvent(text string) Event {
	return Event{Kind: KindText, Text: text}
}

// ToolEvent creates a tool event with an already summarized body.
func ToolEvent(tool, summary string) Event {
	return Event{Kind: KindTool, Tool: tool, Text: summary}
}

// TodoEvent creates an event for the todo item currently in progress.
func TodoEvent(activeForm string) Event {
	return Event{Kind: KindTodo, Tool: "TodoWrite", Text: activeForm}
}

// DoneEvent creates a final-result event.
func DoneEvent(message string) Event {
	return Event{Kind: KindDone, Text: message}
}

// CostEvent creates a cost event.
func CostEvent(costUSD, durationMs float64) Event {
	return Event{Kind: KindCost, CostUSD: costUSD, DurationMs: durationMs}
}

// Body returns the event text without its prefix.
func (e Event) Body() string {
	if e.Kind == KindCost {
		return fmt.Sprintf("$%.4f | %.0fs", e.CostUSD, DurationSeconds(e.DurationMs))
	}
	return e.Text
}

// Line renders the event as a single output line, without the newline.
func (e Event) Line() string {
	return e.Kind.Prefix() + " " + e.Body()
}

// DurationSeconds converts milliseconds to whole seconds, rounding halves
// away from zero. The result stays a float so that huge durations print in
// full instead of overflowing an integer.
func DurationSeconds(ms float64) float64 {
	s := math.Round(ms / 1000)
	if s == 0 {
		s = 0 // no "-0s"
	}
	return s
}
