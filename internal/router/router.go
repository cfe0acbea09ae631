// Package router applies location and map policy to provider events and
// turns them into view state and presentation signals.
package router

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/logging"
	"github.com/Ch00k/cvs-compass/internal/poi"
)

// Result tells the map whether the router consumed an event
type Result int

const (
	NotHandled Result = iota
	Handled
)

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "not handled"
}

// Signals are the router's outputs. Nil callbacks are skipped.
type Signals struct {
	// MapCenter commands the map to center on a point
	MapCenter func(geo.Location)
	// ErrorMessage carries one user-facing message per failure event
	ErrorMessage func(string)
	// Entries carries the rebuilt store list
	Entries func([]StoreListEntry)
	// Search asks for nearby stores around a point
	Search func(geo.Location)
}

// Option configures a Router
type Option func(*Router)

// WithCenterOnFirstFix makes the first accepted fix also center the map
func WithCenterOnFirstFix(enabled bool) Option {
	return func(r *Router) {
		r.centerOnFirstFix = enabled
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Entry) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// Router owns the ViewState. Events must be delivered serially, either by
// calling Handle (or the named methods) from one goroutine or through Run.
type Router struct {
	signals          Signals
	centerOnFirstFix bool
	logger           *logrus.Entry

	mu         sync.RWMutex
	state      ViewState
	candidates []poi.Item
}

// New creates a router emitting to signals
func New(signals Signals, opts ...Option) *Router {
	r := &Router{
		signals: signals,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns a copy of the current view state
func (r *Router) State() ViewState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

// Run handles events in arrival order until ctx is done or events is closed
func (r *Router) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(ev)
		}
	}
}

// Handle applies one event. The new state is published before any signal
// fires, so signal handlers observe it through State.
func (r *Router) Handle(ev Event) Result {
	r.logger.Debugf("Handling event: %s", ev)

	r.mu.Lock()
	next := r.state.clone()
	candidates := r.candidates
	var emit []func()

	switch e := ev.(type) {
	case AuthorizationChanged:
		emit = r.authorizationChanged(&next, e)
	case LocationUpdated:
		emit = r.locationUpdated(&next, candidates, e)
	case LocationUpdateFailed:
		next.ErrorMessage = apperrors.LocationFailureMessage(e.Err)
		msg := next.ErrorMessage
		emit = append(emit, func() { r.emitError(msg) })
	case MapMoveFinished:
		center := e.Center
		next.MapCenter = &center
		emit = append(emit, func() { r.emitSearch(center) })
	case POISelected:
		item := cloneItem(e.Item)
		next.SelectedPOI = &item
	case RecenterRequested:
		if next.CurrentLocation != nil {
			loc := *next.CurrentLocation
			emit = append(emit, func() { r.emitMapCenter(loc) })
		}
	case NearbyStoresFound:
		if next.MapCenter != nil && *next.MapCenter != e.Center {
			r.logger.Debugf("Dropping stale results for %s, map is at %s", e.Center, *next.MapCenter)
			break
		}
		candidates = slices.Clone(e.Items)
		next.Entries = buildEntries(candidates, next.CurrentLocation)
		entries := slices.Clone(next.Entries)
		emit = append(emit, func() { r.emitEntries(entries) })
	case NearbyStoresSearchFailed:
		r.logger.WithError(e.Err).Warnf("Store search around %s failed", e.Center)
	case EntrySelected:
		if e.Index < 0 || e.Index >= len(next.Entries) {
			r.logger.Debugf("Ignoring selection of entry %d out of %d", e.Index, len(next.Entries))
			break
		}
		if e.Index < len(candidates) {
			item := cloneItem(candidates[e.Index])
			next.SelectedPOI = &item
		}
		loc := next.Entries[e.Index].Location
		emit = append(emit, func() { r.emitMapCenter(loc) })
	case RefreshRequested:
		if next.MapCenter != nil {
			center := *next.MapCenter
			emit = append(emit, func() { r.emitSearch(center) })
		}
	}

	r.state = next
	r.candidates = candidates
	r.mu.Unlock()

	for _, fn := range emit {
		fn()
	}
	return NotHandled
}

func (r *Router) authorizationChanged(next *ViewState, e AuthorizationChanged) []func() {
	switch e.Status {
	case location.AuthorizedAlways, location.AuthorizedWhenInUse:
		next.Auth = Authorized
		return nil
	case location.NotDetermined:
		next.Auth = Undetermined
		return nil
	}

	err := apperrors.LocationAuthDenied(e.Status.String())
	next.Auth = Denied
	next.ErrorMessage = err.Message
	msg := next.ErrorMessage
	r.logger.WithError(err).WithField("status", e.Status.String()).Warn("Location authorization withdrawn")
	return []func(){func() { r.emitError(msg) }}
}

func (r *Router) locationUpdated(next *ViewState, candidates []poi.Item, e LocationUpdated) []func() {
	var emit []func()
	first := next.CurrentLocation == nil

	loc := e.Location
	next.CurrentLocation = &loc

	if first && r.centerOnFirstFix {
		emit = append(emit, func() { r.emitMapCenter(loc) })
	}

	if candidates != nil {
		entries := buildEntries(candidates, next.CurrentLocation)
		if !slices.Equal(entries, next.Entries) {
			next.Entries = entries
			out := slices.Clone(entries)
			emit = append(emit, func() { r.emitEntries(out) })
		}
	}
	return emit
}

func (r *Router) emitMapCenter(loc geo.Location) {
	if r.signals.MapCenter != nil {
		r.signals.MapCenter(loc)
	}
}

func (r *Router) emitError(msg string) {
	if r.signals.ErrorMessage != nil {
		r.signals.ErrorMessage(msg)
	}
}

func (r *Router) emitEntries(entries []StoreListEntry) {
	if r.signals.Entries != nil {
		r.signals.Entries(entries)
	}
}

func (r *Router) emitSearch(center geo.Location) {
	if r.signals.Search != nil {
		r.signals.Search(center)
	}
}

// AuthorizationChanged handles a new authorization status
func (r *Router) AuthorizationChanged(status location.AuthorizationStatus) {
	r.Handle(AuthorizationChanged{Status: status})
}

// CurrentLocationUpdated handles a fresh fix
func (r *Router) CurrentLocationUpdated(loc geo.Location) {
	r.Handle(LocationUpdated{Location: loc})
}

// CurrentLocationUpdateFailed handles a failed fix
func (r *Router) CurrentLocationUpdateFailed(err error) {
	r.Handle(LocationUpdateFailed{Err: err})
}

// MapMoveFinished handles a settled map move
func (r *Router) MapMoveFinished(center geo.Location) {
	r.Handle(MapMoveFinished{Center: center})
}

// POISelected records the selection and always reports NotHandled so the
// map keeps its own selection behaviour
func (r *Router) POISelected(item poi.Item) Result {
	return r.Handle(POISelected{Item: item})
}

// RecenterRequested centers the map on the current location, if known
func (r *Router) RecenterRequested() {
	r.Handle(RecenterRequested{})
}

// NearbyStoresFound replaces the candidate stores
func (r *Router) NearbyStoresFound(center geo.Location, items []poi.Item) {
	r.Handle(NearbyStoresFound{Center: center, Items: items})
}

// NearbyStoresSearchFailed records a failed search
func (r *Router) NearbyStoresSearchFailed(center geo.Location, err error) {
	r.Handle(NearbyStoresSearchFailed{Center: center, Err: err})
}

// EntrySelected centers the map on a list row
func (r *Router) EntrySelected(index int) {
	r.Handle(EntrySelected{Index: index})
}

// RefreshRequested searches again around the map center
func (r *Router) RefreshRequested() {
	r.Handle(RefreshRequested{})
}
