package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/modoterra/agentlog/internal/buildinfo"
	"github.com/modoterra/agentlog/pkg/config"
	"github.com/modoterra/agentlog/pkg/core"
	"github.com/modoterra/agentlog/pkg/output"
	"github.com/modoterra/agentlog/pkg/output/journald"
	"github.com/modoterra/agentlog/pkg/streamjson"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app holds what every command shares: flags, the loaded configuration,
// and the logger.
type app struct {
	configPath string
	format     string
	color      string
	journal    bool
	logLevel   string

	cfg     *config.Config
	cfgFile string
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "agentlog",
		Short: "Condense an agent's stream-json log into readable lines",
		Long: `agentlog reads the stream-json output of an AI coding agent on stdin and
prints one short line per event:

  [TEXT] assistant text
  [TOOL] tool call summary
  [TODO] task in progress
  [DONE] final result
  [COST] $cost | duration

Subcommands read archived or growing logs, run the agent in a loop, and
show the stream in a terminal viewer.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE:              a.runFilter,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to agentlog.yaml (default: search the working directory)")
	pf.StringVar(&a.format, "format", "", "output format: text or json")
	pf.StringVar(&a.color, "color", "", "color output: auto, always, or never")
	pf.BoolVar(&a.journal, "journal", false, "also send events to the systemd journal")
	pf.StringVar(&a.logLevel, "log-level", "", "diagnostic log level: debug, info, warn, or error")

	root.AddCommand(
		newCatCmd(a),
		newTailCmd(a),
		newRunCmd(a),
		newStatusCmd(a),
		newStopCmd(a),
		newWatchCmd(a),
		newInitCmd(a),
		newConfigCmd(a),
		newServiceCmd(a),
		newVersionCmd(),
	)
	return root
}

// load resolves the configuration and applies flag overrides.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, path, err := config.Resolve(a.configPath, dir)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = a.format
	}
	if flags.Changed("color") {
		cfg.Output.Color = a.color
	}
	if flags.Changed("journal") {
		cfg.Output.Journal = a.journal
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	level, _ := cfg.Log.SlogLevel()

	a.cfg = cfg
	a.cfgFile = path
	a.logger = newLogger(cmd.ErrOrStderr(), level)
	if path != "" {
		a.logger.Debug("loaded config", "path", path)
	}
	return nil
}

// --- Root: filter stdin ---

func (a *app) runFilter(cmd *cobra.Command, _ []string) error {
	sink, err := a.sink(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	f := streamjson.New(sink, a.limits(), a.logger)
	return f.Run(cmd.Context(), cmd.InOrStdin())
}

func (a *app) limits() streamjson.Limits {
	return streamjson.Limits{
		BashCommand: a.cfg.Limits.BashCommand,
		DoneMessage: a.cfg.Limits.DoneMessage,
	}
}

// sink builds the configured output: text or NDJSON on w, plus the journal
// when enabled.
func (a *app) sink(w io.Writer) (core.Sink, error) {
	var primary core.Sink
	switch a.cfg.Output.Format {
	case config.FormatJSON:
		primary = output.NewNDJSON(w)
	default:
		mode, err := output.ParseColorMode(a.cfg.Output.Color)
		if err != nil {
			return nil, err
		}
		primary = output.NewConsole(w, output.StylesFor(w, mode))
	}

	if !a.cfg.Output.Journal {
		return primary, nil
	}
	j, err := journald.New(map[string]string{"AGENTLOG_ROOT": a.cfg.Root})
	if err != nil {
		a.logger.Warn("journal output disabled", "error", err)
		return primary, nil
	}
	return output.Fanout{primary, j}, nil
}

// --- Version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentlog %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		},
	}
}
