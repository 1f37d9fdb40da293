// Package journald sends condensed events to the systemd journal.
package journald

import (
	"errors"
	"strconv"

	"github.com/coreos/go-systemd/v22/journal"

	"github.com/modoterra/agentlog/pkg/core"
)

// Identifier is the SYSLOG_IDENTIFIER attached to every entry.
const Identifier = "agentlog"

// ErrUnavailable is returned when no journal socket is reachable.
var ErrUnavailable = errors.New("systemd journal is not available")

// Sink writes events to the journal.
type Sink struct {
	fields map[string]string
	send   func(message string, priority journal.Priority, vars map[string]string) error
}

// New creates a journal sink. Extra fields are attached to every entry;
// keys must be upper case journal field names.
func New(fields map[string]string) (*Sink, error) {
	if !journal.Enabled() {
		return nil, ErrUnavailable
	}
	return &Sink{fields: fields, send: journal.Send}, nil
}

// Emit sends e as one journal entry.
func (s *Sink) Emit(e core.Event) error {
	return s.send(e.Line(), Priority(e.Kind), s.vars(e))
}

func (s *Sink) vars(e core.Event) map[string]string {
	vars := make(map[string]string, len(s.fields)+4)
	for k, v := range s.fields {
		vars[k] = v
	}
	vars["SYSLOG_IDENTIFIER"] = Identifier
	vars["AGENTLOG_KIND"] = string(e.Kind)
	if e.Tool != "" {
		vars["AGENTLOG_TOOL"] = e.Tool
	}
	if e.Kind == core.KindCost {
		vars["AGENTLOG_COST_USD"] = strconv.FormatFloat(e.CostUSD, 'f', 4, 64)
		vars["AGENTLOG_DURATION_MS"] = strconv.FormatFloat(e.DurationMs, 'f', 0, 64)
	}
	return vars
}

// Priority maps an event kind to a journal priority: results and costs are
// notices, everything else is informational.
func Priority(k core.Kind) journal.Priority {
	switch k {
	case core.KindDone, core.KindCost:
		return journal.PriNotice
	default:
		return journal.PriInfo
	}
}
