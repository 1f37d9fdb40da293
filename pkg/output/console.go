// Package output holds the event sinks: console text, NDJSON, fan-out, and
// an in-process channel.
package output

import (
	"bufio"
	"io"
	"sync"

	"github.com/modoterra/agentlog/pkg/core"
)

// Console writes one line per event and flushes after every write so that
// a reader at the other end of a pipe sees each event as soon as it exists.
type Console struct {
	w      *bufio.Writer
	styles *Styles
	mu     sync.Mutex
}

// NewConsole creates a console sink. A nil styles value prints plain text.
func NewConsole(w io.Writer, styles *Styles) *Console {
	return &Console{w: bufio.NewWriter(w), styles: styles}
}

// Emit writes the event's line.
func (c *Console) Emit(e core.Event) error {
	line := e.Line()
	if c.styles != nil {
		line = c.styles.Render(e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.WriteString(line); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}
