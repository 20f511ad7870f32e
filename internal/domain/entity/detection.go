package entity

import (
	"time"

	"github.com/google/uuid"
)

// DetectionMethod records which signal produced the detection.
type DetectionMethod string

const (
	// MethodPosition means the match came from distance-to-center scoring.
	MethodPosition DetectionMethod = "position"
	// MethodWireless means the match came from a wireless fingerprint.
	MethodWireless DetectionMethod = "wireless"
	// MethodGeofence means the position fix fell inside the store's geofence.
	MethodGeofence DetectionMethod = "geofence"
	// MethodManual means the user selected the store explicitly.
	MethodManual DetectionMethod = "manual"
)

// PermissionStatus is the positioning-permission state reported by the
// platform. Blocked means the platform will not re-prompt and the user must
// be routed to system settings.
type PermissionStatus string

const (
	PermissionUnknown PermissionStatus = "unknown"
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"
	PermissionBlocked PermissionStatus = "blocked"
)

// GeofenceMatch is the outcome of scoring a single store's geometry against
// a query point.
type GeofenceMatch struct {
	Inside         bool    `json:"inside"`
	DistanceMeters float64 `json:"distance_meters"`
	Confidence     int     `json:"confidence"`
}

// StoreCandidate is a nearby store ranked for disambiguation UIs.
type StoreCandidate struct {
	Store          *Store  `json:"store"`
	DistanceMeters float64 `json:"distance_meters"`
	Confidence     int     `json:"confidence"`
}

// WirelessMatch pairs a store with the confidence derived from an observed
// network that matched one of the store's known fingerprints.
type WirelessMatch struct {
	Store          *Store          `json:"store"`
	Confidence     int             `json:"confidence"`
	MatchedByBSSID bool            `json:"matched_by_bssid"`
	Network        ObservedNetwork `json:"network"`
}

// DetectionResult is produced once per detection pass. Store is nil when no
// signal named a store; the UI then falls back to NearbyStores and manual
// selection.
type DetectionResult struct {
	Store                *Store            `json:"store,omitempty"`
	Confidence           int               `json:"confidence"`
	Method               DetectionMethod   `json:"method"`
	DistanceMeters       *float64          `json:"distance_meters,omitempty"`
	InsideGeofence       *bool             `json:"inside_geofence,omitempty"`
	NearbyStores         []*StoreCandidate `json:"nearby_stores,omitempty"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	Permission           PermissionStatus  `json:"permission"`
	DetectedAt           time.Time         `json:"detected_at"`
}

// StoreID returns the matched store's id, or uuid.Nil when no store matched.
func (r *DetectionResult) StoreID() uuid.UUID {
	if r == nil || r.Store == nil {
		return uuid.Nil
	}

	return r.Store.ID
}
