package router

import (
	"slices"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/poi"
)

// AuthState is the router's view of location authorization
type AuthState int

const (
	Undetermined AuthState = iota
	Authorized
	Denied
)

func (s AuthState) String() string {
	switch s {
	case Undetermined:
		return "undetermined"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// StoreListEntry is one row of the nearby store list
type StoreListEntry struct {
	PlaceName string
	Address   string
	// Distance is already formatted for display, empty when unknown
	Distance string
	Location geo.Location
}

// ViewState is everything the presentation layer renders
type ViewState struct {
	Auth            AuthState
	CurrentLocation *geo.Location
	MapCenter       *geo.Location
	SelectedPOI     *poi.Item
	// ErrorMessage holds the last failure message; it is never cleared
	ErrorMessage string
	Entries      []StoreListEntry
}

// clone returns a copy that shares no memory with s
func (s ViewState) clone() ViewState {
	out := s
	out.CurrentLocation = cloneLocation(s.CurrentLocation)
	out.MapCenter = cloneLocation(s.MapCenter)
	if s.SelectedPOI != nil {
		item := cloneItem(*s.SelectedPOI)
		out.SelectedPOI = &item
	}
	out.Entries = slices.Clone(s.Entries)
	return out
}

func cloneLocation(l *geo.Location) *geo.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func cloneItem(item poi.Item) poi.Item {
	if item.Distance != nil {
		d := *item.Distance
		item.Distance = &d
	}
	return item
}

// buildEntries derives list rows from the candidate stores. Distances are
// measured from current when it is known, else taken from the search backend.
func buildEntries(items []poi.Item, current *geo.Location) []StoreListEntry {
	entries := make([]StoreListEntry, 0, len(items))
	for _, item := range items {
		distance := ""
		switch {
		case current != nil:
			distance = geo.FormatDistance(geo.Distance(*current, item.Location))
		case item.Distance != nil:
			distance = geo.FormatDistance(*item.Distance)
		}
		entries = append(entries, StoreListEntry{
			PlaceName: item.Name,
			Address:   item.DisplayAddress(),
			Distance:  distance,
			Location:  item.Location,
		})
	}
	return entries
}
