// Package poi provides nearby convenience store search over several backends.
package poi

import (
	"cmp"
	"context"
	"slices"

	"github.com/Ch00k/cvs-compass/internal/geo"
)

// Item is a selectable point of interest
type Item struct {
	ID          string
	Name        string
	Address     string
	RoadAddress string
	Phone       string
	Brand       string
	Location    geo.Location
	// Distance in metres from the search center, when the backend knows it
	Distance *float64
	Source   string
}

// DisplayAddress prefers the road-name address when there is one
func (i Item) DisplayAddress() string {
	if i.RoadAddress != "" {
		return i.RoadAddress
	}
	return i.Address
}

// Query describes a nearby search
type Query struct {
	Center geo.Location
	// Radius in metres
	Radius int
	Limit  int
	// Brand, when set, keeps only stores whose name matches it
	Brand string
}

// Searcher finds stores around a point
type Searcher interface {
	Name() string
	SearchNearby(ctx context.Context, q Query) ([]Item, error)
}

// withDistance fills in Distance from center for items that lack one
func withDistance(items []Item, center geo.Location) []Item {
	for i := range items {
		if items[i].Distance == nil {
			d := geo.Distance(center, items[i].Location)
			items[i].Distance = &d
		}
	}
	return items
}

// SortByDistance sorts items by distance (unknown last), then by name
func SortByDistance(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if a.Distance == nil && b.Distance != nil {
			return 1
		}
		if a.Distance != nil && b.Distance == nil {
			return -1
		}
		if a.Distance != nil && b.Distance != nil {
			if c := cmp.Compare(*a.Distance, *b.Distance); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// filter applies the radius, brand and limit parts of q to items sorted by distance
func filter(items []Item, q Query) []Item {
	var out []Item
	for _, item := range items {
		if q.Radius > 0 && item.Distance != nil && *item.Distance > float64(q.Radius) {
			continue
		}
		if q.Brand != "" && !MatchBrand(item.Name, q.Brand) && !MatchBrand(item.Brand, q.Brand) {
			continue
		}
		out = append(out, item)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}
