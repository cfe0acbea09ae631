// Package main provides the command-line interface for cvs-compass.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/Ch00k/cvs-compass/internal/config"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/logging"
	"github.com/Ch00k/cvs-compass/internal/poi"
	"github.com/Ch00k/cvs-compass/internal/probe"
	"github.com/Ch00k/cvs-compass/internal/router"
	"github.com/Ch00k/cvs-compass/internal/session"
	"github.com/Ch00k/cvs-compass/internal/tui"
)

var Version = "dev"

// Dependencies encapsulates external dependencies for testing
type Dependencies struct {
	NewProvider func(*config.Config, *logrus.Entry) (location.Provider, error)
	NewSearcher func(*config.Config, *logrus.Entry) (poi.Searcher, error)
	RunTUI      func(context.Context, func(router.Signals) *session.Session, tui.Options) error
	Probe       func(context.Context, []probe.Target, probe.Options) ([]probe.Result, error)
	IsTerminal  func() bool
	// TerminalWidth returns the width of stdout, or 0 when it is not a terminal
	TerminalWidth func() int
	// LogOutput overrides the configured log sink
	LogOutput io.Writer
	Stdout    io.Writer
	Stderr    io.Writer
}

// DefaultDependencies returns production dependencies
func DefaultDependencies() Dependencies {
	return Dependencies{
		NewProvider: newProvider,
		NewSearcher: newSearcher,
		RunTUI: func(ctx context.Context, build func(router.Signals) *session.Session, opts tui.Options) error {
			return tui.Run(ctx, build, opts)
		},
		Probe: probe.Run,
		IsTerminal: func() bool {
			return logging.IsTerminal(os.Stdin) && logging.IsTerminal(os.Stdout)
		},
		TerminalWidth: terminalWidth,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func main() {
	// Create a context that can be cancelled with SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := run(ctx, os.Args[1:], DefaultDependencies()); err != nil {
		// Don't print error if user cancelled with Ctrl-C
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Operation cancelled")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		cancel()
		os.Exit(1)
	}
	cancel()
}

func run(ctx context.Context, args []string, deps Dependencies) error {
	cmd := newRootCommand(deps)
	cmd.SetArgs(args)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)
	return cmd.ExecuteContext(ctx)
}
