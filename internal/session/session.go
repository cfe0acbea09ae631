// Package session runs the event loop that connects a location provider, a
// store searcher and a presentation adapter through the router.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/logging"
	"github.com/Ch00k/cvs-compass/internal/poi"
	"github.com/Ch00k/cvs-compass/internal/router"
)

const defaultQueueSize = 256

// Options configures a Session
type Options struct {
	// Query carries radius, limit and brand; its center is set per search
	Query            poi.Query
	CenterOnFirstFix bool
	// WatchPath, when set, triggers a refresh whenever the file changes
	WatchPath     string
	WatchDebounce time.Duration
	QueueSize     int
	Logger        *logrus.Entry
}

// Session owns every goroutine of a running application: the provider, the
// searches, the optional file watcher and the router loop
type Session struct {
	id       string
	provider location.Provider
	searcher poi.Searcher
	opts     Options
	logger   *logrus.Entry
	router   *router.Router
	events   chan router.Event

	// pending holds posted events until the pump hands them to the router.
	// Post never waits on the router, so signal handlers may post.
	queueMu sync.Mutex
	pending []router.Event
	wake    chan struct{}
	stopped bool

	mu           sync.Mutex
	runCtx       context.Context
	cancelSearch context.CancelFunc
	searches     sync.WaitGroup
}

// New creates a session. signals receives the router's MapCenter,
// ErrorMessage and Entries outputs; searches are handled by the session.
func New(provider location.Provider, searcher poi.Searcher, signals router.Signals, opts Options) *Session {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		provider: provider,
		searcher: searcher,
		opts:     opts,
		logger:   logger.WithField("session", id[:8]),
		events:   make(chan router.Event, opts.QueueSize),
		wake:     make(chan struct{}, 1),
	}

	signals.Search = s.search
	s.router = router.New(signals,
		router.WithCenterOnFirstFix(opts.CenterOnFirstFix),
		router.WithLogger(logging.Component(s.logger, "router")),
	)
	return s
}

// ID identifies the session in logs
func (s *Session) ID() string { return s.id }

// State returns a copy of the router's view state
func (s *Session) State() router.ViewState { return s.router.State() }

// Post queues an event for the router without blocking. It reports false
// once the session has stopped.
func (s *Session) Post(ev router.Event) bool {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.stopped {
		return false
	}
	s.pending = append(s.pending, ev)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// pump moves posted events to the router in order until ctx is done
func (s *Session) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.queueMu.Lock()
			batch := s.pending
			s.pending = nil
			s.queueMu.Unlock()
			if len(batch) == 0 {
				break
			}

			for _, ev := range batch {
				select {
				case s.events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (s *Session) stop() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	s.stopped = true
	s.pending = nil
}

// Sink returns a location.Sink that forwards provider callbacks as events
func (s *Session) Sink() location.Sink {
	return location.SinkFuncs{
		OnAuthorization: func(status location.AuthorizationStatus) {
			s.Post(router.AuthorizationChanged{Status: status})
		},
		OnLocation: func(loc geo.Location) {
			s.Post(router.LocationUpdated{Location: loc})
		},
		OnFailure: func(err error) {
			s.Post(router.LocationUpdateFailed{Err: err})
		},
	}
}

// Run processes events until ctx is cancelled, then stops the provider,
// pending searches and the watcher and waits for them
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.logger.Infof("Session started with provider %s and searcher %s", s.provider.Name(), s.searcher.Name())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.pump(ctx)
	}()
	go func() {
		defer wg.Done()
		s.runProvider(ctx)
	}()

	if s.opts.WatchPath != "" {
		watcher, err := NewFileWatcher(s.opts.WatchPath, s.opts.WatchDebounce, func() {
			s.Post(router.RefreshRequested{})
		}, logging.Component(s.logger, "watcher"))
		if err != nil {
			s.logger.WithError(err).Warnf("Not watching %s", s.opts.WatchPath)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				watcher.Start(ctx)
			}()
		}
	}

	err := s.router.Run(ctx, s.events)

	cancel()
	s.stop()
	wg.Wait()
	s.searches.Wait()

	s.logger.Info("Session stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) runProvider(ctx context.Context) {
	err := s.provider.Run(ctx, s.Sink())
	if err == nil || ctx.Err() != nil {
		return
	}
	s.logger.WithError(err).Errorf("Location provider %s stopped", s.provider.Name())
	if !apperrors.Is(err, apperrors.ErrCodeLocationUpdateFailed) {
		err = apperrors.LocationUpdateFailed(err)
	}
	s.Post(router.LocationUpdateFailed{Err: err})
}

// search runs on the router loop, so it only starts the work. A newer search
// cancels the one in flight.
func (s *Session) search(center geo.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runCtx == nil || s.runCtx.Err() != nil {
		return
	}
	if s.cancelSearch != nil {
		s.cancelSearch()
	}
	ctx, cancel := context.WithCancel(s.runCtx)
	s.cancelSearch = cancel

	q := s.opts.Query
	q.Center = center

	s.searches.Add(1)
	go func() {
		defer s.searches.Done()
		defer cancel()

		start := time.Now()
		items, err := s.searcher.SearchNearby(ctx, q)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				s.logger.Debugf("Search around %s superseded", center)
				return
			}
			s.Post(router.NearbyStoresSearchFailed{Center: center, Err: err})
			return
		}
		s.logger.Debugf("Search around %s found %d stores in %v", center, len(items), time.Since(start))
		s.Post(router.NearbyStoresFound{Center: center, Items: items})
	}()
}
