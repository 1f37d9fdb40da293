// Package config loads agentlog.yaml, the project file that configures the
// filter output and the background worker.
package config

import "time"

// Config represents an agentlog.yaml configuration file.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Root    string       `yaml:"root"    json:"root"`
	Log     LogConfig    `yaml:"log"     json:"log"`
	Output  OutputConfig `yaml:"output"  json:"output"`
	Limits  Limits       `yaml:"limits"  json:"limits"`
	Worker  WorkerConfig `yaml:"worker"  json:"worker"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `yaml:"level" json:"level"` // debug|info|warn|error
}

// OutputConfig controls how events are written.
type OutputConfig struct {
	Format  string `yaml:"format"  json:"format"`  // text|json
	Color   string `yaml:"color"   json:"color"`   // auto|always|never
	Journal bool   `yaml:"journal" json:"journal"` // also send events to journald
}

// Limits bounds the length of summarized fields, in characters.
type Limits struct {
	BashCommand int `yaml:"bash_command" json:"bash_command"`
	DoneMessage int `yaml:"done_message" json:"done_message"`
}

// WorkerConfig describes the agent process run by `agentlog run`.
type WorkerConfig struct {
	Command     string            `yaml:"command"      json:"command"`
	Args        []string          `yaml:"args"         json:"args,omitempty"`
	Prompt      string            `yaml:"prompt"       json:"prompt,omitempty"`
	PromptFiles []string          `yaml:"prompt_files" json:"prompt_files,omitempty"`
	Dir         string            `yaml:"dir"          json:"dir,omitempty"`
	Env         map[string]string `yaml:"env"          json:"env,omitempty"`
	Restart     string            `yaml:"restart"      json:"restart"` // always|on-failure|never
	Interval    time.Duration     `yaml:"interval"     json:"interval"`
	LogDir      string            `yaml:"log_dir"      json:"log_dir,omitempty"`
	Compress    bool              `yaml:"compress"     json:"compress"`
	SessionID   bool              `yaml:"session_id"   json:"session_id"`
	Socket      string            `yaml:"socket"       json:"socket,omitempty"` // control socket; empty disables
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Default returns the configuration used when no file is present. Paths
// still carry their ${root} placeholders; call Expand to resolve them.
func Default() *Config {
	return &Config{
		Version: 1,
		Root:    ".",
		Log:     LogConfig{Level: "info"},
		Output:  OutputConfig{Format: FormatText, Color: "never"},
		Limits:  Limits{BashCommand: 120, DoneMessage: 200},
		Worker: WorkerConfig{
			Command:     "claude",
			Args:        []string{"-p", "--output-format", "stream-json", "--verbose"},
			PromptFiles: []string{"${root}/.ai/rules.md", "${root}/.ai/tasks.md"},
			Dir:         "${root}",
			Env:         map[string]string{},
			Restart:     "always",
			Interval:    30 * time.Second,
			LogDir:      "${root}/.ai/logs",
			Compress:    true,
			Socket:      "${root}/.ai/agentlog.sock",
		},
	}
}
