package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modoterra/agentlog/pkg/input"
	"github.com/modoterra/agentlog/pkg/input/filetail"
	"github.com/modoterra/agentlog/pkg/streamjson"
	"github.com/modoterra/agentlog/pkg/worker/runlog"
)

// --- Cat ---

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat [FILE...]",
		Short: "Filter stream-json files (plain, .zst, .lz4, or .gz)",
		Long: `Filter one or more stream-json files in order. Compressed files are
decoded by extension and "-" reads stdin. Without arguments the newest run
log in worker.log_dir is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				latest, err := runlog.Latest(a.cfg.Worker.LogDir)
				if err != nil {
					return err
				}
				args = []string{latest}
			}

			sink, err := a.sink(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			f := streamjson.New(sink, a.limits(), a.logger)
			for _, path := range args {
				if err := filterFile(cmd.Context(), f, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func filterFile(ctx context.Context, f *streamjson.Filter, path string) error {
	rc, err := input.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := f.Run(ctx, rc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// --- Tail ---

func newTailCmd(a *app) *cobra.Command {
	var follow, fromStart bool

	cmd := &cobra.Command{
		Use:   "tail FILE",
		Short: "Filter a file, optionally following it as it grows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			sink, err := a.sink(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			f := streamjson.New(sink, a.limits(), a.logger)

			if !follow {
				return filterFile(cmd.Context(), f, path)
			}
			return followFile(cmd.Context(), a, f, path, fromStart)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep reading as the file grows")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "with --follow, begin at the start of the file instead of the end")
	return cmd
}

// followFile feeds lines from a growing file to f until ctx is done.
func followFile(ctx context.Context, a *app, f *streamjson.Filter, path string, fromStart bool) error {
	if c := input.DetectCompression(path); c != input.CompressionNone {
		return fmt.Errorf("cannot follow %s: %s files are read with cat", path, c)
	}
	lines, err := filetail.New(a.logger).Follow(ctx, path, fromStart)
	if err != nil {
		return err
	}
	for l := range lines {
		if err := f.Process([]byte(l.Line)); err != nil {
			return err
		}
	}
	return nil
}
