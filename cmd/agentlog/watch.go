package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/modoterra/agentlog/pkg/core"
	"github.com/modoterra/agentlog/pkg/input"
	"github.com/modoterra/agentlog/pkg/output"
	"github.com/modoterra/agentlog/pkg/streamjson"
	"github.com/modoterra/agentlog/pkg/transport/uds"
	tuimodel "github.com/modoterra/agentlog/pkg/tui/model"
	"github.com/modoterra/agentlog/pkg/worker"
)

// --- Watch ---

func newWatchCmd(a *app) *cobra.Command {
	var (
		noFollow bool
		attach   bool
	)

	cmd := &cobra.Command{
		Use:   "watch [FILE]",
		Short: "Browse the event stream in a terminal UI",
		Long: `Open a terminal viewer over the condensed events of FILE, following it as
it grows, or of stdin when no file is given. With --attach the viewer
shows the live events of the worker started by "agentlog run".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, title := "", "stdin"
			if len(args) == 1 {
				path, title = args[0], filepath.Base(args[0])
			}

			// The alternate screen owns the terminal.
			a.logger = slog.New(slog.DiscardHandler)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			ch := make(chan core.Event, 256)
			if attach {
				if path != "" {
					return errors.New("--attach takes no FILE")
				}
				client, err := worker.DialControl(a.cfg.Worker.Socket)
				if err != nil {
					return err
				}
				defer client.Close()
				title = "worker " + filepath.Base(a.cfg.Worker.Dir)
				go subscribe(ctx, client, ch)
			} else {
				go pump(ctx, a, path, !noFollow, ch, output.NewChannel(ctx, ch))
			}

			opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
			if path == "" && !attach {
				// stdin carries events, so keys come from the terminal.
				opts = append(opts, tea.WithInputTTY())
			}
			_, err := tea.NewProgram(tuimodel.New(title, ch), opts...).Run()
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noFollow, "no-follow", false, "read FILE once instead of following it")
	cmd.Flags().BoolVar(&attach, "attach", false, "show the events of the running worker")
	return cmd
}

// pump filters path, or stdin when path is empty, into ch and closes ch
// when the source is exhausted.
func pump(ctx context.Context, a *app, path string, follow bool, ch chan<- core.Event, sink core.Sink) {
	defer close(ch)
	f := streamjson.New(sink, a.limits(), a.logger)

	var err error
	switch {
	case path == "":
		err = filterFile(ctx, f, input.Stdin)
	case follow && input.DetectCompression(path) == input.CompressionNone:
		err = followFile(ctx, a, f, path, true)
	default:
		err = filterFile(ctx, f, path)
	}
	if err != nil && ctx.Err() == nil {
		a.logger.Error("reading events", "source", path, "error", err)
	}
}

// subscribe forwards the worker's events into ch and closes ch once the
// connection drops.
func subscribe(ctx context.Context, client *uds.Client, ch chan<- core.Event) {
	client.OnEvent(func(msg uds.Message) {
		if msg.Method != uds.EventAgent {
			return
		}
		var e core.Event
		if err := msg.Decode(&e); err != nil {
			return
		}
		select {
		case ch <- e:
		case <-ctx.Done():
		}
	})
	select {
	case <-client.Done():
	case <-ctx.Done():
		client.Close()
		<-client.Done()
	}
	close(ch)
}
