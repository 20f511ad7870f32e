// Package entity contains the core business objects of the project.
package entity

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// GeoPoint is an immutable geographic coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point converts the coordinate to an orb.Point (lon/lat order).
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// DistanceTo returns the great-circle distance to another point in meters.
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	return geo.Distance(p.Point(), other.Point())
}
