package worker

import (
	"bufio"
	"io"
)

// scanLines reads lines from an io.Reader and calls fn for each. Whatever
// is left after a scan error is drained so the writer never blocks.
func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if scanner.Err() != nil {
		io.Copy(io.Discard, r)
	}
}
