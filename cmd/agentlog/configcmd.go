package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modoterra/agentlog/pkg/config"
)

// --- Config ---

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect agentlog.yaml",
		// validate reports broken files itself instead of failing in load.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(newConfigValidateCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				dir, err := os.Getwd()
				if err != nil {
					return err
				}
				if path, err = config.Find(dir); err != nil {
					return err
				}
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			errs := config.Validate(cfg)
			out := cmd.OutOrStdout()
			if len(errs) == 0 {
				fmt.Fprintf(out, "%s: ok\n", path)
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(out, "%s: %v\n", path, e)
			}
			return fmt.Errorf("%s: %d problem(s): %w", path, len(errs), errors.Join(errs...))
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd, args); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.cfgFile != "" {
				fmt.Fprintf(out, "# %s\n", a.cfgFile)
			} else {
				fmt.Fprintln(out, "# defaults (no agentlog.yaml found)")
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
