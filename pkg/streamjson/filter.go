package streamjson

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/modoterra/agentlog/pkg/core"
)

// Decode condenses one input line into zero or more events, in the order
// the content items appear.
func Decode(line []byte, limits Limits) []core.Event {
	events, _ := decode(line, limits)
	return events
}

// outcome records why a line produced what it did; the filter counts these.
type outcome int

const (
	outcomeEvents outcome = iota
	outcomeBlank
	outcomeMalformed
	outcomeIgnored
)

func decode(line []byte, limits Limits) ([]core.Event, outcome) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, outcomeBlank
	}
	record, ok := ParseRecord(line)
	if !ok {
		return nil, outcomeMalformed
	}

	var events []core.Event
	switch record.Type() {
	case RecordAssistant:
		for _, item := range record.Content() {
			switch item.Type() {
			case ItemText:
				if text := strings.TrimSpace(item.Text()); text != "" {
					events = append(events, core.TextEvent(text))
				}
			case ItemToolUse:
				if e, ok := SummarizeTool(item.ToolName(), item.ToolInput(), limits); ok {
					events = append(events, e)
				}
			case ItemOther:
			}
		}

	case RecordResult:
		if message, ok := record.ResultMessage(); ok {
			events = append(events, core.DoneEvent(truncate(message, limits.DoneMessage)))
		}
		if cost, ok := record.Cost(); ok {
			events = append(events, core.CostEvent(cost, record.DurationMs()))
		}

	case RecordOther:
		return nil, outcomeIgnored
	}

	if len(events) == 0 {
		return nil, outcomeIgnored
	}
	return events, outcomeEvents
}

// Stats counts what the filter has seen. They feed logging only and never
// influence output.
type Stats struct {
	Lines     int
	Blank     int
	Malformed int
	Ignored   int
	Events    int
}

// Filter reads stream-json lines and emits condensed events to a sink.
type Filter struct {
	sink   core.Sink
	limits Limits
	logger *slog.Logger
	stats  Stats
}

// New creates a filter writing to sink. A nil logger discards log output.
func New(sink core.Sink, limits Limits, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Filter{sink: sink, limits: limits, logger: logger}
}

// Process handles a single line and emits its events.
func (f *Filter) Process(line []byte) error {
	f.stats.Lines++
	events, result := decode(line, f.limits)
	switch result {
	case outcomeBlank:
		f.stats.Blank++
		return nil
	case outcomeMalformed:
		f.stats.Malformed++
		f.logger.Debug("skipping malformed line", "line", f.stats.Lines)
		return nil
	case outcomeIgnored:
		f.stats.Ignored++
		return nil
	}

	for _, e := range events {
		if err := f.sink.Emit(e); err != nil {
			return fmt.Errorf("emit %s event: %w", e.Kind, err)
		}
		f.stats.Events++
	}
	return nil
}

// Run processes r line by line until end of stream. Lines have no length
// limit and the last one may lack a newline. Cancelling ctx stops the loop
// between lines; it does not interrupt a blocked read.
func (f *Filter) Run(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if perr := f.Process(line); perr != nil {
				return perr
			}
		}
		if errors.Is(err, io.EOF) {
			f.logger.Debug("end of stream",
				"lines", f.stats.Lines,
				"events", f.stats.Events,
				"malformed", f.stats.Malformed,
				"ignored", f.stats.Ignored)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// Stats returns the counters accumulated so far.
func (f *Filter) Stats() Stats {
	return f.stats
}
