// Package geofence implements the geometry and confidence scoring engine
// for store detection. All functions are pure and perform no I/O.
package geofence

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"storefinder/internal/domain/entity"
)

// ConfidenceBand maps a maximum distance-to-center to a confidence score.
// Bands are evaluated in order; the first band whose MaxMeters is not
// exceeded wins.
type ConfidenceBand struct {
	MaxMeters  float64 `json:"maxMeters" yaml:"maxMeters"`
	Confidence int     `json:"confidence" yaml:"confidence"`
}

// Config centralizes the scoring thresholds. Zero values are replaced with
// the defaults below at construction; thresholds are never re-declared per
// call site.
type Config struct {
	// TightRadiusMeters is the distance under which an inside-geofence match
	// scores full confidence.
	TightRadiusMeters float64

	// InsideConfidence is the score for inside-geofence matches beyond the
	// tight radius.
	InsideConfidence int

	// TightConfidence is the score for inside-geofence matches within the
	// tight radius.
	TightConfidence int

	// Bands is the distance-band fallback table applied when the point is
	// outside the geofence or the store has none.
	Bands []ConfidenceBand

	// FallbackConfidence applies beyond the last band.
	FallbackConfidence int

	// Default-geofence radii by store classification.
	BigBoxRadiusMeters   float64
	PharmacyRadiusMeters float64
	MaxDistanceMeters    float64 // unclassified stores
}

// DefaultConfig returns the standard scoring thresholds.
func DefaultConfig() Config {
	return Config{
		TightRadiusMeters: 25,
		InsideConfidence:  95,
		TightConfidence:   100,
		Bands: []ConfidenceBand{
			{MaxMeters: 10, Confidence: 100},
			{MaxMeters: 25, Confidence: 95},
			{MaxMeters: 50, Confidence: 85},
			{MaxMeters: 100, Confidence: 70},
			{MaxMeters: 200, Confidence: 50},
		},
		FallbackConfidence:   30,
		BigBoxRadiusMeters:   100,
		PharmacyRadiusMeters: 30,
		MaxDistanceMeters:    50,
	}
}

// Issue reports a structurally invalid geofence found by ValidateGeofences.
type Issue struct {
	StoreID uuid.UUID `json:"store_id"`
	Reason  string    `json:"reason"`
}

// Engine scores store geometry against query points.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling any zero-valued thresholds from
// DefaultConfig.
func NewEngine(cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.TightRadiusMeters <= 0 {
		cfg.TightRadiusMeters = defaults.TightRadiusMeters
	}
	if cfg.InsideConfidence <= 0 {
		cfg.InsideConfidence = defaults.InsideConfidence
	}
	if cfg.TightConfidence <= 0 {
		cfg.TightConfidence = defaults.TightConfidence
	}
	if len(cfg.Bands) == 0 {
		cfg.Bands = defaults.Bands
	}
	if cfg.FallbackConfidence <= 0 {
		cfg.FallbackConfidence = defaults.FallbackConfidence
	}
	if cfg.BigBoxRadiusMeters <= 0 {
		cfg.BigBoxRadiusMeters = defaults.BigBoxRadiusMeters
	}
	if cfg.PharmacyRadiusMeters <= 0 {
		cfg.PharmacyRadiusMeters = defaults.PharmacyRadiusMeters
	}
	if cfg.MaxDistanceMeters <= 0 {
		cfg.MaxDistanceMeters = defaults.MaxDistanceMeters
	}

	return &Engine{cfg: cfg}
}

// IsInside reports whether the point lies inside the store's geofence.
// Circle containment uses great-circle distance against the radius; polygon
// containment uses even-odd ray casting over planar-approximated
// coordinates, which is accurate at store scale (spans under 1 km).
// Stores with no geofence, or with a structurally invalid one, are never
// inside; they fall back to distance-band scoring.
func (e *Engine) IsInside(point entity.GeoPoint, store *entity.Store) bool {
	fence := store.Geofence
	if fence == nil || fence.Validate() != nil {
		return false
	}

	switch fence.Shape {
	case entity.GeofenceCircle:
		return point.DistanceTo(fence.Center) <= fence.RadiusMeters
	case entity.GeofencePolygon:
		return planar.RingContains(closedRing(fence.Ring), point.Point())
	default:
		return false
	}
}

// MatchDetails scores a single store against the query point. The distance
// to the store's center is always computed; confidence follows geofence
// containment first and the distance-band table otherwise.
func (e *Engine) MatchDetails(point entity.GeoPoint, store *entity.Store) entity.GeofenceMatch {
	distance := point.DistanceTo(store.Location)
	inside := e.IsInside(point, store)

	var confidence int
	switch {
	case inside && distance < e.cfg.TightRadiusMeters:
		confidence = e.cfg.TightConfidence
	case inside:
		confidence = e.cfg.InsideConfidence
	default:
		confidence = e.bandConfidence(distance)
	}

	return entity.GeofenceMatch{
		Inside:         inside,
		DistanceMeters: distance,
		Confidence:     confidence,
	}
}

// FindBestMatch selects, among the stores whose geofence contains the
// point, the one closest to its own center. Ties resolve to the first store
// in input order. Returns false when no geofence contains the point; the
// nearest-by-distance fallback belongs to the caller, not this engine.
func (e *Engine) FindBestMatch(point entity.GeoPoint, stores []*entity.Store) (*entity.Store, entity.GeofenceMatch, bool) {
	var best *entity.Store
	var bestMatch entity.GeofenceMatch

	for _, store := range stores {
		match := e.MatchDetails(point, store)
		if !match.Inside {
			continue
		}
		if best == nil || match.DistanceMeters < bestMatch.DistanceMeters {
			best = store
			bestMatch = match
		}
	}

	if best == nil {
		return nil, entity.GeofenceMatch{}, false
	}

	return best, bestMatch, true
}

// FindContainingStores returns every store whose geofence contains the
// point, in input order. Used for disambiguation UIs, not detection.
func (e *Engine) FindContainingStores(point entity.GeoPoint, stores []*entity.Store) []*entity.Store {
	var containing []*entity.Store
	for _, store := range stores {
		if e.IsInside(point, store) {
			containing = append(containing, store)
		}
	}

	return containing
}

// ValidateGeofences flags structurally invalid geofences for upstream
// correction. Stores without a geofence are not flagged. Data-quality
// check only; not on the detection hot path.
func (e *Engine) ValidateGeofences(stores []*entity.Store) []Issue {
	var issues []Issue
	for _, store := range stores {
		if store.Geofence == nil {
			continue
		}
		if err := store.Geofence.Validate(); err != nil {
			issues = append(issues, Issue{StoreID: store.ID, Reason: err.Error()})
		}
	}

	return issues
}

// GenerateDefaultGeofence produces a heuristic circle geofence for a store
// that has no authored one, sized by retail-format classification.
func (e *Engine) GenerateDefaultGeofence(store *entity.Store) entity.Geofence {
	radius := e.cfg.MaxDistanceMeters
	switch store.Class {
	case entity.StoreClassBigBox:
		radius = e.cfg.BigBoxRadiusMeters
	case entity.StoreClassPharmacy:
		radius = e.cfg.PharmacyRadiusMeters
	}

	return entity.Geofence{
		Shape:        entity.GeofenceCircle,
		Center:       store.Location,
		RadiusMeters: radius,
	}
}

// bandConfidence walks the distance-band table in order; first match wins.
func (e *Engine) bandConfidence(distanceMeters float64) int {
	for _, band := range e.cfg.Bands {
		if distanceMeters <= band.MaxMeters {
			return band.Confidence
		}
	}

	return e.cfg.FallbackConfidence
}

// closedRing converts the implicitly-closed vertex list into an explicitly
// closed orb.Ring as the containment test expects.
func closedRing(points []entity.GeoPoint) orb.Ring {
	ring := make(orb.Ring, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, p.Point())
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	return ring
}
