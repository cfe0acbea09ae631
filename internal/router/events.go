package router

import (
	"fmt"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/poi"
)

// Event is an input to the router. The set of events is closed.
type Event interface {
	fmt.Stringer
	isEvent()
}

// AuthorizationChanged reports a new location authorization status
type AuthorizationChanged struct {
	Status location.AuthorizationStatus
}

// LocationUpdated reports a fresh position fix
type LocationUpdated struct {
	Location geo.Location
}

// LocationUpdateFailed reports that the position could not be resolved
type LocationUpdateFailed struct {
	Err error
}

// MapMoveFinished reports that a pan or zoom of the map settled
type MapMoveFinished struct {
	Center geo.Location
}

// POISelected reports a tap on a store marker
type POISelected struct {
	Item poi.Item
}

// RecenterRequested asks for the map to return to the current location
type RecenterRequested struct{}

// NearbyStoresFound delivers the result of a search around Center
type NearbyStoresFound struct {
	Center geo.Location
	Items  []poi.Item
}

// NearbyStoresSearchFailed reports a failed search around Center
type NearbyStoresSearchFailed struct {
	Center geo.Location
	Err    error
}

// EntrySelected reports a tap on a row of the store list
type EntrySelected struct {
	Index int
}

// RefreshRequested asks for the nearby stores to be searched again
type RefreshRequested struct{}

func (AuthorizationChanged) isEvent()     {}
func (LocationUpdated) isEvent()          {}
func (LocationUpdateFailed) isEvent()     {}
func (MapMoveFinished) isEvent()          {}
func (POISelected) isEvent()              {}
func (RecenterRequested) isEvent()        {}
func (NearbyStoresFound) isEvent()        {}
func (NearbyStoresSearchFailed) isEvent() {}
func (EntrySelected) isEvent()            {}
func (RefreshRequested) isEvent()         {}

func (e AuthorizationChanged) String() string {
	return fmt.Sprintf("authorization changed to %s", e.Status)
}

func (e LocationUpdated) String() string {
	return fmt.Sprintf("location updated to %s", e.Location)
}

func (e LocationUpdateFailed) String() string {
	return fmt.Sprintf("location update failed: %v", e.Err)
}

func (e MapMoveFinished) String() string {
	return fmt.Sprintf("map moved to %s", e.Center)
}

func (e POISelected) String() string {
	return fmt.Sprintf("poi selected: %s", e.Item.Name)
}

func (RecenterRequested) String() string { return "recenter requested" }

func (e NearbyStoresFound) String() string {
	return fmt.Sprintf("%d stores found around %s", len(e.Items), e.Center)
}

func (e NearbyStoresSearchFailed) String() string {
	return fmt.Sprintf("store search around %s failed: %v", e.Center, e.Err)
}

func (e EntrySelected) String() string {
	return fmt.Sprintf("entry %d selected", e.Index)
}

func (RefreshRequested) String() string { return "refresh requested" }
