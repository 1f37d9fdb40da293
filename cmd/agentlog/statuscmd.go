package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/modoterra/agentlog/pkg/transport/uds"
	"github.com/modoterra/agentlog/pkg/worker"
	"github.com/modoterra/agentlog/pkg/worker/service"
)

// --- Status ---

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			st, err := requestStatus(cmd.Context(), a.cfg.Worker.Socket, uds.MethodStatus)
			if errors.Is(err, worker.ErrNoWorker) {
				fmt.Fprintln(out, "worker: not running")
			} else if err != nil {
				return err
			} else {
				printStatus(cmd, st)
			}

			if r, err := service.Status(cmd.Context()); err == nil {
				fmt.Fprintln(out, r.String())
			}
			return nil
		},
	}
}

// --- Stop ---

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running worker after terminating its agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := requestStatus(cmd.Context(), a.cfg.Worker.Socket, uds.MethodStop)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopping worker in %s after %d run(s)\n", st.Dir, st.Iteration)
			return nil
		},
	}
}

func requestStatus(ctx context.Context, socket, method string) (uds.StatusResponse, error) {
	client, err := worker.DialControl(socket)
	if err != nil {
		return uds.StatusResponse{}, err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	resp, err := client.Request(ctx, method, nil)
	if err != nil {
		return uds.StatusResponse{}, err
	}
	var st uds.StatusResponse
	if err := resp.Decode(&st); err != nil {
		return uds.StatusResponse{}, err
	}
	return st, nil
}

func printStatus(cmd *cobra.Command, st uds.StatusResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "worker:     %s\n", st.State)
	fmt.Fprintf(out, "command:    %s\n", st.Command)
	fmt.Fprintf(out, "dir:        %s\n", st.Dir)
	fmt.Fprintf(out, "runs:       %d (failures in a row: %d)\n", st.Iteration, st.Failures)
	if st.AgentPID != 0 {
		fmt.Fprintf(out, "agent pid:  %d (running %s)\n", st.AgentPID, time.Since(st.StartedAt).Round(time.Second))
	}
	if st.LastExit >= 0 {
		fmt.Fprintf(out, "last exit:  %d\n", st.LastExit)
	}
	if st.LastLog != "" {
		fmt.Fprintf(out, "last log:   %s\n", st.LastLog)
	}
	for _, p := range st.Processes {
		fmt.Fprintf(out, "  %7d  %s\n", p.PID, p.Command)
	}
	fmt.Fprintf(out, "events:     %d\n", st.Events)
	fmt.Fprintf(out, "cost:       $%.4f\n", st.CostUSD)
}
