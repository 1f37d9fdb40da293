package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modoterra/agentlog/pkg/config"
	"github.com/modoterra/agentlog/pkg/worker/service"
)

// --- Service ---

func newServiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the systemd user service running `agentlog run --loop`",
	}

	install := &cobra.Command{
		Use:   "install",
		Short: "Install, enable and start the user service for this project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfgFile
			if path == "" {
				dir, err := os.Getwd()
				if err != nil {
					return err
				}
				if path, err = config.Find(dir); err != nil {
					return fmt.Errorf("the service needs a config file (run `agentlog init` first): %w", err)
				}
			}
			if err := service.Install(path); err != nil {
				return err
			}
			unitPath, _ := service.UnitPath()
			fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", unitPath)
			return nil
		},
	}

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop, disable and remove the user service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := service.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "service removed")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the user service state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := service.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.String())
			return nil
		},
	}

	cmd.AddCommand(install, uninstall, status)
	return cmd
}
