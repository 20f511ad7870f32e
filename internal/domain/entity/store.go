package entity

import (
	"time"

	"github.com/google/uuid"
)

// StoreClass is a coarse retail-format classification used when a store has
// no authored geofence and a default boundary must be generated.
type StoreClass string

const (
	// StoreClassBigBox covers large-format and big-box chains.
	StoreClassBigBox StoreClass = "big_box"
	// StoreClassPharmacy covers pharmacy-type chains.
	StoreClassPharmacy StoreClass = "pharmacy"
	// StoreClassUnclassified is the fallback for stores with no classification.
	StoreClassUnclassified StoreClass = "unclassified"
)

// OperatingHours is a store's daily opening window.
type OperatingHours struct {
	Opens  string `json:"opens,omitempty"`  // "08:00"
	Closes string `json:"closes,omitempty"` // "21:00"
}

// Store is a physical retail location. The detection subsystem treats it as
// read-only reference data returned by the nearby-stores query, with the
// geofence and fingerprint fields already populated.
type Store struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Chain         string                `json:"chain,omitempty"`
	Class         StoreClass            `json:"class,omitempty"`
	Location      GeoPoint              `json:"location"`
	Geofence      *Geofence             `json:"geofence,omitempty"`
	Fingerprints  []WirelessFingerprint `json:"fingerprints,omitempty"`
	WICAuthorized bool                  `json:"wic_authorized"`
	Hours         OperatingHours        `json:"hours,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}
