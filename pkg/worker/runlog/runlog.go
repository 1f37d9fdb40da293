// Package runlog archives the raw stream-json output of each worker run.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/modoterra/agentlog/pkg/input"
)

const (
	prefix     = "run-"
	ext        = ".jsonl"
	timeLayout = "20060102-150405.000"
)

// Name returns the file name for a run started at t. Compressed logs get
// the zstd extension.
func Name(t time.Time, id uuid.UUID, compress bool) string {
	name := prefix + t.Format(timeLayout) + "-" + id.String()[:8] + ext
	if compress {
		name += input.CompressionZstd.Ext()
	}
	return name
}

// Writer is an open run log.
type Writer struct {
	path string
	file *os.File
	enc  *zstd.Encoder
	w    io.Writer
}

// Create opens a new run log in dir, creating the directory if needed.
func Create(dir string, startedAt time.Time, id uuid.UUID, compress bool) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, Name(startedAt, id, compress))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	w := &Writer{path: path, file: f, w: f}
	if compress {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w.enc = enc
		w.w = enc
	}
	return w, nil
}

// Path returns the file's location.
func (w *Writer) Path() string { return w.path }

func (w *Writer) Write(p []byte) (int, error) { return w.w.Write(p) }

// Close finishes the compressed frame, if any, and closes the file.
func (w *Writer) Close() error {
	var err error
	if w.enc != nil {
		err = w.enc.Close()
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// List returns the run logs in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.Contains(name, ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	// The timestamp sorts lexically.
	slices.Sort(paths)
	return paths, nil
}

// Latest returns the newest run log in dir.
func Latest(dir string) (string, error) {
	paths, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no run logs in %s: %w", dir, os.ErrNotExist)
	}
	return paths[len(paths)-1], nil
}
