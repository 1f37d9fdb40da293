package output

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/modoterra/agentlog/pkg/core"
)

// NDJSON writes each event as one JSON object per line.
type NDJSON struct {
	w   *bufio.Writer
	enc *json.Encoder
	now func() time.Time
	mu  sync.Mutex
}

// NewNDJSON creates an NDJSON sink. Events without a timestamp are stamped
// with the time they are written.
func NewNDJSON(w io.Writer) *NDJSON {
	bw := bufio.NewWriter(w)
	return &NDJSON{w: bw, enc: json.NewEncoder(bw), now: time.Now}
}

// Emit encodes e and flushes.
func (n *NDJSON) Emit(e core.Event) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = n.now().UnixMilli()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.enc.Encode(e); err != nil {
		return err
	}
	return n.w.Flush()
}
