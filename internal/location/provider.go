// Package location provides the sources of authorization changes and position
// fixes that feed the router.
package location

import (
	"context"
	"fmt"

	"github.com/Ch00k/cvs-compass/internal/geo"
)

// AuthorizationStatus is the user's decision about sharing their location
type AuthorizationStatus int

// Authorization status constants
const (
	NotDetermined       AuthorizationStatus = iota // user has not decided yet
	Restricted                                     // sharing blocked by policy
	Denied                                         // user refused
	AuthorizedAlways                               // always allowed
	AuthorizedWhenInUse                            // allowed while the app runs
)

func (s AuthorizationStatus) String() string {
	switch s {
	case NotDetermined:
		return "not-determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case AuthorizedAlways:
		return "always"
	case AuthorizedWhenInUse:
		return "when-in-use"
	default:
		return fmt.Sprintf("AuthorizationStatus(%d)", int(s))
	}
}

// Allowed reports whether the status lets a provider produce fixes
func (s AuthorizationStatus) Allowed() bool {
	return s == AuthorizedAlways || s == AuthorizedWhenInUse || s == NotDetermined
}

// ParseAuthorizationStatus parses an authorization status string
func ParseAuthorizationStatus(s string) (AuthorizationStatus, error) {
	switch s {
	case "not-determined":
		return NotDetermined, nil
	case "restricted":
		return Restricted, nil
	case "denied":
		return Denied, nil
	case "always":
		return AuthorizedAlways, nil
	case "when-in-use":
		return AuthorizedWhenInUse, nil
	default:
		return NotDetermined, fmt.Errorf(
			"invalid authorization status: %s (must be not-determined, restricted, denied, always, or when-in-use)", s)
	}
}

// Sink receives provider callbacks. Implementations must be safe for use from
// the provider's goroutine.
type Sink interface {
	AuthorizationChanged(status AuthorizationStatus)
	LocationUpdated(loc geo.Location)
	LocationUpdateFailed(err error)
}

// Provider produces location events until its context is cancelled
type Provider interface {
	Name() string
	// Run blocks, delivering events to sink, and returns nil once ctx is
	// done. A non-nil error means the provider could not start at all.
	Run(ctx context.Context, sink Sink) error
}

// SinkFuncs adapts plain functions to Sink. Nil fields are ignored.
type SinkFuncs struct {
	OnAuthorization func(AuthorizationStatus)
	OnLocation      func(geo.Location)
	OnFailure       func(error)
}

// AuthorizationChanged implements Sink
func (f SinkFuncs) AuthorizationChanged(status AuthorizationStatus) {
	if f.OnAuthorization != nil {
		f.OnAuthorization(status)
	}
}

// LocationUpdated implements Sink
func (f SinkFuncs) LocationUpdated(loc geo.Location) {
	if f.OnLocation != nil {
		f.OnLocation(loc)
	}
}

// LocationUpdateFailed implements Sink
func (f SinkFuncs) LocationUpdateFailed(err error) {
	if f.OnFailure != nil {
		f.OnFailure(err)
	}
}
