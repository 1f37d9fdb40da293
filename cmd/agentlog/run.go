package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/modoterra/agentlog/pkg/core"
	"github.com/modoterra/agentlog/pkg/worker"
)

// --- Run ---

func newRunCmd(a *app) *cobra.Command {
	var (
		loop     bool
		interval time.Duration
		prompt   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent and filter its output",
		Long: `Run worker.command with the prompt built from worker.prompt and
worker.prompt_files, archive its raw stream-json output under
worker.log_dir, and print the condensed events.

With --loop the agent is run again according to worker.restart: "always"
waits worker.interval after a successful run, failures back off from 1s
up to 30s. While running, worker.socket answers "agentlog status",
"agentlog stop" and "agentlog watch --attach".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wc := a.cfg.Worker
			if cmd.Flags().Changed("interval") {
				wc.Interval = interval
			}
			if cmd.Flags().Changed("prompt") {
				wc.Prompt = prompt
			}

			sink, err := a.sink(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			w := worker.New(wc, a.limits(), sink, a.logger)
			if !loop {
				w.SetPolicy(core.RestartNever)
			}

			if wc.Socket != "" {
				ctl := worker.NewControl(wc.Socket, w, cancel, a.logger)
				serveErr := make(chan error, 1)
				go func() { serveErr <- ctl.Serve(ctx) }()
				select {
				case <-ctl.Ready():
					defer ctl.Close()
					w.Tee(ctl)
				case err := <-serveErr:
					return err
				}
			}

			a.logger.Info("worker starting",
				"command", wc.Command,
				"dir", wc.Dir,
				"loop", loop,
				"restart", wc.Restart,
				"interval", wc.Interval,
			)
			err = w.Run(ctx)
			st := w.Status()
			a.logger.Info("worker stopped", "iterations", st.Iteration, "last_exit", st.LastExit, "last_log", st.LastLog)
			return err
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "keep running the agent according to worker.restart")
	cmd.Flags().DurationVar(&interval, "interval", 0, "pause after a successful run (overrides worker.interval)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "inline prompt (overrides worker.prompt)")
	return cmd
}
