// Package filetail follows a growing file line by line.
package filetail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/modoterra/agentlog/pkg/core"
)

// DefaultPollInterval is how often a quiet file is checked for new data.
const DefaultPollInterval = 250 * time.Millisecond

// Tailer follows files the way tail -f does.
type Tailer struct {
	Interval time.Duration
	logger   *slog.Logger
}

// New creates a tailer with the default poll interval.
func New(logger *slog.Logger) *Tailer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tailer{Interval: DefaultPollInterval, logger: logger}
}

// Follow opens path and streams complete lines, without their trailing
// newline, until ctx is done. Reading starts at the end of the file unless
// fromStart is set. A file that shrinks is treated as rotated and read
// again from offset zero. The channel is closed when following stops.
func (t *Tailer) Follow(ctx context.Context, path string, fromStart bool) (<-chan core.LogLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !fromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, fmt.Errorf("seek %s: %w", path, err)
		}
	}

	ch := make(chan core.LogLine, 100)
	go func() {
		defer f.Close()
		defer close(ch)
		t.follow(ctx, f, path, ch)
	}()

	t.logger.Info("tailing file", "path", path, "from_start", fromStart)
	return ch, nil
}

func (t *Tailer) follow(ctx context.Context, f *os.File, path string, ch chan<- core.LogLine) {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	reader := bufio.NewReader(f)
	var partial []byte
	for {
		if ctx.Err() != nil {
			return
		}

		chunk, err := reader.ReadBytes('\n')
		if err == nil {
			line := chunk[:len(chunk)-1]
			if len(partial) > 0 {
				line = append(partial, line...)
				partial = nil
			}
			entry := core.LogLine{
				Source:   path,
				TsUnixMs: time.Now().UnixMilli(),
				Stream:   "file",
				Line:     string(line),
			}
			select {
			case ch <- entry:
			case <-ctx.Done():
				return
			}
			continue
		}

		// Keep the unterminated tail until the writer finishes the line.
		partial = append(partial, chunk...)
		if !errors.Is(err, io.EOF) {
			t.logger.Warn("tail read failed", "path", path, "error", err)
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		info, serr := f.Stat()
		if serr != nil {
			continue
		}
		pos, _ := f.Seek(0, io.SeekCurrent)
		if info.Size() < pos {
			t.logger.Info("file truncated, restarting", "path", path, "size", info.Size(), "offset", pos)
			f.Seek(0, io.SeekStart)
			reader.Reset(f)
			partial = nil
		}
	}
}
