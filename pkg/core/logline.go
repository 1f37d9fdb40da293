package core

// LogLine represents a single raw line read from an input source.
type LogLine struct {
	Source   string `json:"source"`
	TsUnixMs int64  `json:"ts_unix_ms"`
	Stream   string `json:"stream"` // "file", "stdout", "stderr"
	Line     string `json:"line"`
}
