// Package geo provides the coordinate type shared by providers, search and
// the router, plus distance calculation and formatting.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

// Location is a geographic coordinate. It is a value: a newer fix replaces it,
// nothing mutates it.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports whether the coordinate is within WGS84 bounds
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %v", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %v", l.Longitude)
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Latitude, l.Longitude)
}

// Offset returns the location moved north and east by the given number of metres
func (l Location) Offset(northMeters, eastMeters float64) Location {
	dLat := northMeters / earthRadiusMeters
	dLon := eastMeters / (earthRadiusMeters * math.Cos(degreesToRadians(l.Latitude)))
	return Location{
		Latitude:  l.Latitude + radiansToDegrees(dLat),
		Longitude: l.Longitude + radiansToDegrees(dLon),
	}
}

// Distance computes the great-circle distance in metres using the Haversine formula
func Distance(a, b Location) float64 {
	lat1Rad := degreesToRadians(a.Latitude)
	lat2Rad := degreesToRadians(b.Latitude)
	deltaLat := degreesToRadians(b.Latitude - a.Latitude)
	deltaLon := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// Project returns the north and east displacement in metres of p relative to
// origin, using an equirectangular approximation. Good enough for the few
// kilometres a map panel covers.
func Project(origin, p Location) (north, east float64) {
	north = degreesToRadians(p.Latitude-origin.Latitude) * earthRadiusMeters
	east = degreesToRadians(p.Longitude-origin.Longitude) * earthRadiusMeters *
		math.Cos(degreesToRadians((p.Latitude+origin.Latitude)/2))
	return north, east
}

// FormatDistance renders a distance in metres the way the store list shows it:
// whole metres below one kilometre, one decimal kilometre above.
func FormatDistance(meters float64) string {
	if meters < 0 || math.IsNaN(meters) {
		return ""
	}
	if math.Round(meters) < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

func radiansToDegrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}
