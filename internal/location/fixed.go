package location

import (
	"context"

	"github.com/Ch00k/cvs-compass/internal/geo"
)

// DefaultFixedLocation is used when no coordinate is configured for the
// fixed provider (Pangyo, Seongnam).
var DefaultFixedLocation = geo.Location{Latitude: 37.394225, Longitude: 127.110341}

// FixedProvider reports a single, fixed position. It stands in for a real
// positioning source in development and demos.
type FixedProvider struct {
	Location      geo.Location
	Authorization AuthorizationStatus
}

// NewFixedProvider creates a provider that always reports loc
func NewFixedProvider(loc geo.Location, status AuthorizationStatus) *FixedProvider {
	return &FixedProvider{Location: loc, Authorization: status}
}

// Name implements Provider
func (p *FixedProvider) Name() string { return "fixed" }

// Run implements Provider
func (p *FixedProvider) Run(ctx context.Context, sink Sink) error {
	sink.AuthorizationChanged(p.Authorization)
	if p.Authorization.Allowed() {
		sink.LocationUpdated(p.Location)
	}
	<-ctx.Done()
	return nil
}
