package location

import (
	"sync"

	"github.com/Ch00k/cvs-compass/internal/geo"
)

// recordingSink collects provider callbacks for assertions
type recordingSink struct {
	mu        sync.Mutex
	statuses  []AuthorizationStatus
	locations []geo.Location
	failures  []error
}

func (s *recordingSink) AuthorizationChanged(status AuthorizationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *recordingSink) LocationUpdated(loc geo.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, loc)
}

func (s *recordingSink) LocationUpdateFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

func (s *recordingSink) Statuses() []AuthorizationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuthorizationStatus(nil), s.statuses...)
}

func (s *recordingSink) Locations() []geo.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geo.Location(nil), s.locations...)
}

func (s *recordingSink) Failures() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.failures...)
}
