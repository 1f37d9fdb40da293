package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/modoterra/agentlog/pkg/core"
)

// Validate checks the configuration for structural correctness.
func Validate(c *Config) []error {
	var errs []error

	if c.Version != 1 {
		errs = append(errs, fmt.Errorf("version must be 1, got %d", c.Version))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output.format must be text or json; got %q", c.Output.Format))
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("output.color must be auto, always, or never; got %q", c.Output.Color))
	}

	if c.Limits.BashCommand <= 0 {
		errs = append(errs, fmt.Errorf("limits.bash_command must be positive, got %d", c.Limits.BashCommand))
	}
	if c.Limits.DoneMessage <= 0 {
		errs = append(errs, fmt.Errorf("limits.done_message must be positive, got %d", c.Limits.DoneMessage))
	}

	w := c.Worker
	if strings.TrimSpace(w.Command) == "" {
		errs = append(errs, fmt.Errorf("worker.command is required"))
	}
	if !core.RestartPolicy(w.Restart).Valid() {
		errs = append(errs, fmt.Errorf("worker.restart must be always, on-failure, or never; got %q", w.Restart))
	}
	if w.Interval < 0 {
		errs = append(errs, fmt.Errorf("worker.interval must not be negative, got %s", w.Interval))
	}
	for i, f := range w.PromptFiles {
		if f == "" {
			errs = append(errs, fmt.Errorf("worker.prompt_files[%d] is empty", i))
		}
	}

	return errs
}

// SlogLevel converts the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn, or error; got %q", l.Level)
	}
}
