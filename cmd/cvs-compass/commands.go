package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ch00k/cvs-compass/internal/config"
	"github.com/Ch00k/cvs-compass/internal/formatter"
	"github.com/Ch00k/cvs-compass/internal/logging"
	"github.com/Ch00k/cvs-compass/internal/probe"
	"github.com/Ch00k/cvs-compass/internal/router"
	"github.com/Ch00k/cvs-compass/internal/session"
	"github.com/Ch00k/cvs-compass/internal/tui"
)

func newRootCommand(deps Dependencies) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:           "cvs-compass",
		Short:         "Find convenience stores around your location",
		Long:          "Shows a map around your location with the nearest convenience stores.\nWithout a terminal it prints the store list instead.",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !useTUI(cfg, deps) {
				return runList(cmd.Context(), cfg, deps, wait)
			}
			return runInteractive(cmd.Context(), cfg, deps)
		},
	}
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.Flags().DurationVar(&wait, "wait", defaultListWait, "how long to wait for a store list without a terminal")

	cmd.AddCommand(
		newListCommand(deps),
		newDoctorCommand(deps),
		newVersionCommand(),
	)
	return cmd
}

func newListCommand(deps Dependencies) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the stores around your location and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runList(cmd.Context(), cfg, deps, wait)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", defaultListWait, "how long to wait for a store list")
	return cmd
}

func newDoctorCommand(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured location and search endpoints are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runDoctor(cmd.Context(), cfg, deps)
		},
	}
	config.RegisterProbeFlags(cmd.Flags())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cvs-compass",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cvs-compass %s\n", Version)
		},
	}
}

// loadConfig layers the flags set on cmd over file, environment and defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.NewViper()
	if err != nil {
		return nil, err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func useTUI(cfg *config.Config, deps Dependencies) bool {
	switch cfg.UI.Mode {
	case config.UITUI:
		return true
	case config.UIPlain:
		return false
	}
	return deps.IsTerminal != nil && deps.IsTerminal()
}

func runInteractive(ctx context.Context, cfg *config.Config, deps Dependencies) error {
	logger, closer, err := newLogger(cfg, deps, true)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	provider, err := deps.NewProvider(cfg, logger)
	if err != nil {
		return err
	}
	searcher, err := deps.NewSearcher(cfg, logger)
	if err != nil {
		return err
	}
	searcher = timedSearcher{Searcher: searcher, logger: logger}

	opts := sessionOptions(cfg, logger)
	build := func(signals router.Signals) *session.Session {
		return session.New(provider, searcher, signals, opts)
	}
	return deps.RunTUI(ctx, build, tui.Options{InitialCenter: cfg.FixedLocation()})
}

func runDoctor(ctx context.Context, cfg *config.Config, deps Dependencies) error {
	logger, closer, err := newLogger(cfg, deps, false)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	targets := probe.TargetsFromURLs(cfg.Endpoints())
	if len(targets) == 0 {
		_, _ = fmt.Fprintln(deps.Stdout, "No network endpoints configured")
		return nil
	}

	var results []probe.Result
	err = timed(logger, "Probe", func() error {
		var err error
		results, err = deps.Probe(ctx, targets, probe.Options{
			Timeout: cfg.Probe.Timeout,
			Workers: cfg.Probe.Workers,
			IPv6:    cfg.Probe.IPv6,
			Logger:  logging.Component(logger, "probe"),
		})
		return err
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprint(deps.Stdout, formatter.FormatProbeResults(results))
	return nil
}
