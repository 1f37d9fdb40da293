// Package worker runs the agent CLI in a loop, archiving and filtering its
// stream-json output.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/modoterra/agentlog/pkg/config"
	"github.com/modoterra/agentlog/pkg/core"
	"github.com/modoterra/agentlog/pkg/output"
	"github.com/modoterra/agentlog/pkg/streamjson"
	"github.com/modoterra/agentlog/pkg/worker/runlog"
)

// DefaultKillDelay is how long a cancelled run gets between SIGTERM and
// SIGKILL.
const DefaultKillDelay = 10 * time.Second

// Status is a snapshot of the worker.
type Status struct {
	State     core.Status
	Iteration int
	PID       int
	StartedAt time.Time
	LastExit  int
	LastLog   string
	Failures  int
}

// Worker runs the configured agent command.
type Worker struct {
	cfg     config.WorkerConfig
	limits  streamjson.Limits
	sink    core.Sink
	logger  *slog.Logger
	policy  core.RestartPolicy
	backoff func(failures int) time.Duration
	now     func() time.Time

	// KillDelay overrides DefaultKillDelay.
	KillDelay time.Duration

	mu     sync.Mutex
	status Status
}

// New creates a worker that emits filtered events to sink.
func New(cfg config.WorkerConfig, limits streamjson.Limits, sink core.Sink, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	policy := core.RestartPolicy(cfg.Restart)
	if !policy.Valid() {
		policy = core.RestartAlways
	}
	return &Worker{
		cfg:       cfg,
		limits:    limits,
		sink:      sink,
		logger:    logger,
		policy:    policy,
		backoff:   backoff,
		now:       time.Now,
		KillDelay: DefaultKillDelay,
		status:    Status{State: core.StatusStopped, LastExit: -1},
	}
}

// Tee adds a sink that receives every event after the existing ones. Call
// it before Run.
func (w *Worker) Tee(s core.Sink) { w.sink = output.Fanout{w.sink, s} }

// SetPolicy overrides the restart policy from the configuration.
func (w *Worker) SetPolicy(p core.RestartPolicy) { w.policy = p }

// Status returns the current state.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Worker) setState(s core.Status) {
	w.mu.Lock()
	w.status.State = s
	w.mu.Unlock()
}

// ExitError reports a run that ended with a non-zero exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("agent exited with code %d", e.Code)
}

// Run executes iterations until ctx is done or the restart policy says to
// stop. It returns the last run's error when the policy gives up after a
// failure, and nil when stopped by ctx.
func (w *Worker) Run(ctx context.Context) error {
	failures := 0
	for {
		err := w.runOnce(ctx)
		if ctx.Err() != nil {
			w.setState(core.StatusStopped)
			return nil
		}

		var delay time.Duration
		if err != nil {
			failures++
			w.mu.Lock()
			w.status.State = core.StatusFailed
			w.status.Failures = failures
			w.mu.Unlock()
			w.logger.Warn("run failed", "error", err, "failures", failures)
			if w.policy == core.RestartNever {
				return err
			}
			delay = w.backoff(failures)
			w.setState(core.StatusRestarting)
		} else {
			failures = 0
			w.mu.Lock()
			w.status.State = core.StatusStopped
			w.status.Failures = 0
			w.mu.Unlock()
			if w.policy != core.RestartAlways {
				return nil
			}
			delay = w.cfg.Interval
			w.setState(core.StatusWaiting)
		}

		w.logger.Info("next run scheduled", "delay", delay, "policy", w.policy)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.setState(core.StatusStopped)
			return nil
		case <-timer.C:
		}
	}
}

// runOnce performs a single agent invocation.
func (w *Worker) runOnce(ctx context.Context) error {
	id := uuid.New()
	started := w.now()

	w.mu.Lock()
	w.status.Iteration++
	iteration := w.status.Iteration
	w.mu.Unlock()

	logger := w.logger.With("iteration", iteration, "run", id.String()[:8])

	args := slices.Clone(w.cfg.Args)
	if w.cfg.SessionID {
		args = append(args, "--session-id", id.String())
	}
	if prompt := w.prompt(logger); prompt != "" {
		args = append(args, prompt)
	}

	cmd := exec.Command(w.cfg.Command, args...)
	cmd.Dir = w.cfg.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = os.Environ()
	for k, v := range w.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	var raw io.Writer = io.Discard
	var archive *runlog.Writer
	if w.cfg.LogDir != "" {
		archive, err = runlog.Create(w.cfg.LogDir, started, id, w.cfg.Compress)
		if err != nil {
			return err
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logger.Warn("close run log", "path", archive.Path(), "error", err)
			}
		}()
		raw = archive
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %q: %w", w.cfg.Command, err)
	}

	w.mu.Lock()
	w.status.State = core.StatusRunning
	w.status.PID = cmd.Process.Pid
	w.status.StartedAt = started
	if archive != nil {
		w.status.LastLog = archive.Path()
	}
	w.mu.Unlock()
	logger.Info("agent started", "pid", cmd.Process.Pid, "command", w.cfg.Command)

	stop := w.watchCancel(ctx, cmd.Process.Pid, logger)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanLines(stderr, func(line string) { logger.Warn("agent stderr", "line", line) })
	}()

	tee := io.TeeReader(stdout, raw)
	filter := streamjson.New(w.sink, w.limits, logger)
	if err := filter.Run(context.WithoutCancel(ctx), tee); err != nil {
		logger.Error("filter stopped", "error", err)
		// Keep archiving so the agent never blocks on a full pipe.
		io.Copy(io.Discard, tee)
	}
	wg.Wait()

	waitErr := cmd.Wait()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	w.mu.Lock()
	w.status.PID = 0
	w.status.LastExit = exitCode
	w.mu.Unlock()

	stats := filter.Stats()
	logger.Info("agent exited",
		"exit_code", exitCode,
		"elapsed", w.now().Sub(started).Round(time.Millisecond),
		"lines", stats.Lines,
		"events", stats.Events,
		"malformed", stats.Malformed,
	)

	if exitCode != 0 {
		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			return fmt.Errorf("wait: %w", waitErr)
		}
		return &ExitError{Code: exitCode}
	}
	return nil
}

// watchCancel terminates the process group when ctx ends: SIGTERM first,
// SIGKILL after KillDelay. The returned func stops watching.
func (w *Worker) watchCancel(ctx context.Context, pid int, logger *slog.Logger) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		logger.Info("stopping agent", "pid", pid)
		syscall.Kill(-pid, syscall.SIGTERM)

		timer := time.NewTimer(w.KillDelay)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			logger.Warn("agent ignored SIGTERM, killing", "pid", pid)
			syscall.Kill(-pid, syscall.SIGKILL)
		}
	}()
	return func() { close(done) }
}

// prompt joins the inline prompt and the prompt files. Files are read on
// every call so edits take effect on the next run.
func (w *Worker) prompt(logger *slog.Logger) string {
	var parts []string
	if p := strings.TrimSpace(w.cfg.Prompt); p != "" {
		parts = append(parts, p)
	}
	for _, path := range w.cfg.PromptFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping prompt file", "path", path, "error", err)
			continue
		}
		if s := strings.TrimSpace(string(data)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// backoff returns exponential backoff delay: 1s, 2s, 4s, 8s, 16s, 30s max.
func backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > 6 {
		return 30 * time.Second
	}
	d := time.Duration(1<<uint(failures-1)) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
