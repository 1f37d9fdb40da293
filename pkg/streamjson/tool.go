package streamjson

import (
	"github.com/modoterra/agentlog/pkg/core"
)

// ToolKind enumerates the tools that get a tailored summary.
type ToolKind int

const (
	ToolOther ToolKind = iota
	ToolRead
	ToolWrite
	ToolEdit
	ToolBash
	ToolGlob
	ToolGrep
	ToolTodoWrite
)

// ParseToolKind maps a tool name to its kind. Names are case sensitive.
func ParseToolKind(name string) ToolKind {
	switch name {
	case "Read":
		return ToolRead
	case "Write":
		return ToolWrite
	case "Edit":
		return ToolEdit
	case "Bash":
		return ToolBash
	case "Glob":
		return ToolGlob
	case "Grep":
		return ToolGrep
	case "TodoWrite":
		return ToolTodoWrite
	default:
		return ToolOther
	}
}

// Limits bounds the length of the variable parts of summaries.
type Limits struct {
	// BashCommand is the longest Bash command printed before truncation.
	BashCommand int
	// DoneMessage is the longest result message printed before truncation.
	DoneMessage int
}

// DefaultLimits returns the stock limits: 120 for Bash commands, 200 for
// result messages.
func DefaultLimits() Limits {
	return Limits{BashCommand: 120, DoneMessage: 200}
}

// SummarizeTool turns one tool call into an event. The second result is
// false when the call produces no output at all, which only happens for a
// TodoWrite call without an in-progress item.
func SummarizeTool(name string, input Input, limits Limits) (core.Event, bool) {
	switch ParseToolKind(name) {
	case ToolRead, ToolWrite, ToolEdit:
		return core.ToolEvent(name, name+": "+input.String("file_path", "")), true

	case ToolBash:
		command := truncate(input.String("command", ""), limits.BashCommand)
		return core.ToolEvent(name, "Bash: "+command), true

	case ToolGlob:
		return core.ToolEvent(name, "Glob: "+input.String("pattern", "")), true

	case ToolGrep:
		return core.ToolEvent(name, "Grep: "+input.String("pattern", "")), true

	case ToolTodoWrite:
		for _, todo := range input.Array("todos") {
			if !todo.IsObject() {
				continue
			}
			if stringOr(field(todo, "status"), "") != "in_progress" {
				continue
			}
			return core.TodoEvent(stringOr(field(todo, "activeForm"), "")), true
		}
		return core.Event{}, false

	default:
		return core.ToolEvent(name, name), true
	}
}
