package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ch00k/cvs-compass/internal/config"
	"github.com/Ch00k/cvs-compass/internal/formatter"
	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/router"
	"github.com/Ch00k/cvs-compass/internal/session"
)

const defaultListWait = 30 * time.Second

var (
	errAlerted        = errors.New("could not list nearby stores")
	errSessionStopped = errors.New("session stopped before listing stores")
)

// plainAdapter is the headless presentation: it follows every map center
// request at once and keeps the first store list and the first alert
type plainAdapter struct {
	session  *session.Session
	entries  chan []router.StoreListEntry
	alerts   chan string
	failures chan error
}

func newPlainAdapter() *plainAdapter {
	return &plainAdapter{
		entries:  make(chan []router.StoreListEntry, 1),
		alerts:   make(chan string, 1),
		failures: make(chan error, 1),
	}
}

func (a *plainAdapter) signals() router.Signals {
	return router.Signals{
		MapCenter: func(loc geo.Location) {
			a.session.Post(router.MapMoveFinished{Center: loc})
		},
		ErrorMessage: func(msg string) { offer(a.alerts, msg) },
		Entries:      func(entries []router.StoreListEntry) { offer(a.entries, entries) },
	}
}

func (a *plainAdapter) searchFailed(err error) { offer(a.failures, err) }

// offer keeps the first value and drops the rest
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// runList runs a headless session until the first store list arrives, then
// prints it
func runList(ctx context.Context, cfg *config.Config, deps Dependencies, wait time.Duration) error {
	logger, closer, err := newLogger(cfg, deps, false)
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

	a := newPlainAdapter()
	opts := sessionOptions(cfg, logger)
	opts.CenterOnFirstFix = true
	opts.WatchPath = ""
	a.session = session.New(provider, timedSearcher{Searcher: searcher, logger: logger, onFail: a.searchFailed}, a.signals(), opts)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	stopped := make(chan struct{})
	var sessionErr error
	go func() {
		sessionErr = a.session.Run(runCtx)
		close(stopped)
	}()

	err = timed(logger, "Store listing", func() error {
		return a.await(ctx, stopped, wait, deps, cfg.Search.Radius)
	})
	stop()
	<-stopped

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, errSessionStopped) && sessionErr != nil {
		return sessionErr
	}
	return err
}

func (a *plainAdapter) await(ctx context.Context, stopped <-chan struct{}, wait time.Duration, deps Dependencies, radius int) error {
	if wait <= 0 {
		wait = defaultListWait
	}
	out := deps.Stdout
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case entries := <-a.entries:
		_, _ = fmt.Fprintln(out, formatter.FormatUserLocation(a.session.State()))
		_, _ = fmt.Fprintln(out)
		if len(entries) == 0 {
			_, _ = fmt.Fprintf(out, "No stores found within %s of the map center\n", geo.FormatDistance(float64(radius)))
			return nil
		}
		width := 0
		if deps.TerminalWidth != nil {
			width = deps.TerminalWidth()
		}
		_, _ = fmt.Fprint(out, formatter.FormatTableWidth(entries, width))
		return nil
	case msg := <-a.alerts:
		_, _ = fmt.Fprintln(out, formatter.FormatAlert(msg))
		return errAlerted
	case err := <-a.failures:
		return err
	case <-stopped:
		return errSessionStopped
	case <-timer.C:
		return fmt.Errorf("no store list within %v", wait)
	case <-ctx.Done():
		return ctx.Err()
	}
}
