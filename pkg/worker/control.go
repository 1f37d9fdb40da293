package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/modoterra/agentlog/pkg/core"
	"github.com/modoterra/agentlog/pkg/transport/uds"
)

// Control serves a worker's status and live events on a Unix socket, and
// lets another process stop it.
type Control struct {
	srv    *uds.Server
	w      *Worker
	stop   context.CancelFunc
	logger *slog.Logger
	since  time.Time

	mu      sync.Mutex
	events  int64
	costUSD float64
}

// NewControl creates the control socket for w. stop cancels the context
// the worker runs under.
func NewControl(socketPath string, w *Worker, stop context.CancelFunc, logger *slog.Logger) *Control {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Control{
		srv:    uds.NewServer(socketPath, logger),
		w:      w,
		stop:   stop,
		logger: logger,
		since:  time.Now(),
	}
	c.srv.Handle(uds.MethodPing, func(context.Context, uds.Message) (any, error) {
		return uds.PingResponse{Pong: true, PID: os.Getpid()}, nil
	})
	c.srv.Handle(uds.MethodStatus, func(context.Context, uds.Message) (any, error) {
		return c.status(), nil
	})
	c.srv.Handle(uds.MethodStop, func(context.Context, uds.Message) (any, error) {
		c.logger.Info("stop requested over control socket")
		c.stop()
		return c.status(), nil
	})
	return c
}

// Serve listens until ctx is done.
func (c *Control) Serve(ctx context.Context) error {
	return c.srv.Start(ctx)
}

// Ready is closed once the socket accepts connections.
func (c *Control) Ready() <-chan struct{} { return c.srv.Ready() }

// Close disconnects clients and removes the socket.
func (c *Control) Close() { c.srv.Shutdown() }

// Emit broadcasts e to connected clients. It always returns nil.
func (c *Control) Emit(e core.Event) error {
	c.mu.Lock()
	c.events++
	if e.Kind == core.KindCost {
		c.costUSD += e.CostUSD
	}
	c.mu.Unlock()

	msg, err := uds.NewEvent(uds.EventAgent, e)
	if err != nil {
		c.logger.Debug("encode event", "error", err)
		return nil
	}
	c.srv.Broadcast(msg)
	return nil
}

func (c *Control) status() uds.StatusResponse {
	st := c.w.Status()
	var procs []uds.ProcessInfo
	if st.PID != 0 {
		var err error
		if procs, err = groupProcesses(st.PID); err != nil {
			c.logger.Debug("list agent processes", "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return uds.StatusResponse{
		State:       st.State,
		Iteration:   st.Iteration,
		AgentPID:    st.PID,
		StartedAt:   st.StartedAt,
		LastExit:    st.LastExit,
		LastLog:     st.LastLog,
		Failures:    st.Failures,
		Events:      c.events,
		CostUSD:     c.costUSD,
		Dir:         c.w.cfg.Dir,
		Command:     c.w.cfg.Command,
		ServingFrom: c.since,
		Processes:   procs,
	}
}

// ErrNoWorker is returned when nothing listens on the control socket.
var ErrNoWorker = errors.New("no worker is running")

// DialControl connects to a running worker's control socket.
func DialControl(socketPath string) (*uds.Client, error) {
	if socketPath == "" {
		return nil, ErrNoWorker
	}
	if _, err := os.Stat(socketPath); err != nil {
		return nil, ErrNoWorker
	}
	client, err := uds.Dial(socketPath)
	if err != nil {
		return nil, errors.Join(ErrNoWorker, err)
	}
	return client, nil
}
