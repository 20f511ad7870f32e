package entity

import (
	"storefinder/internal/errors"
)

// GeofenceShape discriminates the two supported geofence variants.
type GeofenceShape string

const (
	// GeofenceCircle is a circular boundary around a center point.
	GeofenceCircle GeofenceShape = "circle"
	// GeofencePolygon is a closed ring of at least three vertices.
	GeofencePolygon GeofenceShape = "polygon"
)

// Geofence validation errors.
var (
	// ErrNonPositiveRadius is returned for circle geofences with radius <= 0.
	ErrNonPositiveRadius = errors.New("circle geofence radius must be positive")
	// ErrDegenerateRing is returned for polygon geofences with fewer than 3 vertices.
	ErrDegenerateRing = errors.New("polygon geofence requires at least 3 vertices")
	// ErrUnknownShape is returned when the shape tag is not circle or polygon.
	ErrUnknownShape = errors.New("unknown geofence shape")
)

// Geofence is a store's authored physical boundary, a tagged variant of
// either a circle or a polygon. The polygon ring is implicitly closed:
// the last vertex connects back to the first.
type Geofence struct {
	Shape        GeofenceShape `json:"shape"`
	Center       GeoPoint      `json:"center,omitempty"`        // circle only
	RadiusMeters float64       `json:"radius_meters,omitempty"` // circle only
	Ring         []GeoPoint    `json:"ring,omitempty"`          // polygon only
}

// Validate reports whether the geofence is structurally usable for
// containment testing.
func (g *Geofence) Validate() error {
	switch g.Shape {
	case GeofenceCircle:
		if g.RadiusMeters <= 0 {
			return ErrNonPositiveRadius
		}
	case GeofencePolygon:
		if len(g.Ring) < 3 {
			return ErrDegenerateRing
		}
	default:
		return ErrUnknownShape
	}

	return nil
}
