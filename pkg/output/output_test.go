package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/agentlog/pkg/core"
)

// countingWriter records each Write call so flushing can be observed.
type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func TestConsolePlain(t *testing.T) {
	w := &countingWriter{}
	c := NewConsole(w, nil)

	require.NoError(t, c.Emit(core.TextEvent("Hello")))
	assert.Equal(t, "[TEXT] Hello\n", w.String())
	assert.Equal(t, 1, w.writes, "first event must reach the writer before the second is emitted")

	require.NoError(t, c.Emit(core.CostEvent(0.0123, 4500)))
	assert.Equal(t, "[TEXT] Hello\n[COST] $0.0123 | 5s\n", w.String())
	assert.Equal(t, 2, w.writes)
}

func TestConsoleStyled(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(lipgloss.NewRenderer(&buf, termenv.WithProfile(termenv.ANSI)))
	c := NewConsole(&buf, styles)

	require.NoError(t, c.Emit(core.ToolEvent("Bash", "Bash: ls")))
	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "[TOOL]")
	assert.True(t, strings.HasSuffix(out, " Bash: ls\n"), "body stays plain: %q", out)
}

func TestStylesForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Nil(t, StylesFor(&buf, ColorAuto))
	assert.Nil(t, StylesFor(&buf, ColorNever))
	assert.NotNil(t, StylesFor(&buf, ColorAlways))
}

func TestParseColorMode(t *testing.T) {
	for _, s := range []string{"auto", "always", "never"} {
		m, err := ParseColorMode(s)
		require.NoError(t, err)
		assert.Equal(t, ColorMode(s), m)
	}
	_, err := ParseColorMode("sometimes")
	assert.Error(t, err)
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	n := NewNDJSON(&buf)
	n.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, n.Emit(core.ToolEvent("Read", "Read: /a")))
	require.NoError(t, n.Emit(core.CostEvent(0.5, 2000)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first core.Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, core.KindTool, first.Kind)
	assert.Equal(t, "Read", first.Tool)
	assert.Equal(t, "Read: /a", first.Text)
	assert.Equal(t, int64(1700000000000), first.TsUnixMs)

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "cost", second["kind"])
	assert.Equal(t, 0.5, second["cost_usd"])
	assert.Equal(t, 2000.0, second["duration_ms"])
}

func TestFanout(t *testing.T) {
	var a, b bytes.Buffer
	failing := errors.New("disk full")
	f := Fanout{
		NewConsole(&a, nil),
		core.SinkFunc(func(core.Event) error { return failing }),
		NewConsole(&b, nil),
	}

	err := f.Emit(core.DoneEvent("ok"))
	require.ErrorIs(t, err, failing)
	assert.Equal(t, "[DONE] ok\n", a.String())
	assert.Equal(t, "[DONE] ok\n", b.String(), "later sinks still receive the event")
}

func TestChannel(t *testing.T) {
	ch := make(chan core.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	c := NewChannel(ctx, ch)

	require.NoError(t, c.Emit(core.TextEvent("one")))
	assert.Equal(t, "one", (<-ch).Text)

	ch <- core.TextEvent("fill")
	cancel()
	assert.ErrorIs(t, c.Emit(core.TextEvent("two")), context.Canceled)
}
