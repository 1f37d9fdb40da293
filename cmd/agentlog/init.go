package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/modoterra/agentlog/pkg/config/presets"
)

// --- Init ---

func newInitCmd(a *app) *cobra.Command {
	var (
		force    bool
		name     string
		role     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:       "init [TYPE]",
		Short:     "Scaffold agentlog.yaml and the .ai/ workspace",
		Long:      "Create agentlog.yaml, .ai/rules.md, .ai/tasks.md and .ai/logs/ in the working directory. TYPE is detected from the project files when omitted.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: presets.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}

			typeKey := presets.Detect(root)
			if len(args) == 1 {
				typeKey = args[0]
			}

			s, err := presets.Generate(root, typeKey, presets.Options{
				Name:     name,
				Role:     role,
				Interval: interval,
			})
			if err != nil {
				return err
			}
			written, err := presets.WriteScaffold(root, s, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s project scaffolded:\n", s.Type.Label)
			for _, p := range written {
				fmt.Fprintf(out, "  ✓ %s\n", p)
			}
			fmt.Fprintln(out, "\nNext: edit .ai/rules.md and .ai/tasks.md, then run `agentlog run --loop`.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing .ai/ directory")
	cmd.Flags().StringVar(&name, "name", "", "project name (default: directory name)")
	cmd.Flags().StringVar(&role, "role", "", "role description for the agent")
	cmd.Flags().DurationVar(&interval, "interval", 0, "pause between runs (default 30s)")
	return cmd
}
