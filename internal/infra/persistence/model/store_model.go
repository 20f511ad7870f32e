package model

import (
	"time"

	"github.com/google/uuid"
)

// StoreModel is the GORM-specific struct for the 'stores' table. The
// geofence is flattened into the row for circles; polygon vertices live in
// the geofence_points child table.
type StoreModel struct {
	ID                    uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name                  string    `gorm:"type:varchar(255);not null"`
	Chain                 string    `gorm:"type:varchar(100);index"`
	Class                 string    `gorm:"type:varchar(50);not null;default:'unclassified'"`
	Latitude              float64   `gorm:"type:decimal(10,8);not null;index:idx_stores_on_location"`
	Longitude             float64   `gorm:"type:decimal(11,8);not null;index:idx_stores_on_location"`
	GeofenceShape         string    `gorm:"type:varchar(20)"` // empty when no authored geofence
	GeofenceCenterLat     float64   `gorm:"type:decimal(10,8)"`
	GeofenceCenterLon     float64   `gorm:"type:decimal(11,8)"`
	GeofenceRadiusMeters  float64
	WICAuthorized         bool   `gorm:"column:wic_authorized;not null;default:false"`
	OpensAt               string `gorm:"type:varchar(5)"`
	ClosesAt              string `gorm:"type:varchar(5)"`
	GeofencePoints        []GeofencePointModel    `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	WirelessFingerprints  []StoreFingerprintModel `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName explicitly sets the table name for GORM.
func (StoreModel) TableName() string {
	return "stores"
}

// GeofencePointModel is one polygon vertex in the 'geofence_points' table,
// ordered by Position within a store's ring.
type GeofencePointModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index:idx_geofence_points_on_store"`
	Position  int       `gorm:"not null"`
	Latitude  float64   `gorm:"type:decimal(10,8);not null"`
	Longitude float64   `gorm:"type:decimal(11,8);not null"`
}

// TableName explicitly sets the table name for GORM.
func (GeofencePointModel) TableName() string {
	return "geofence_points"
}

// StoreFingerprintModel is one known wireless fingerprint in the
// 'store_fingerprints' table.
type StoreFingerprintModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	StoreID uuid.UUID `gorm:"type:uuid;not null;index:idx_store_fingerprints_on_store"`
	SSID    string    `gorm:"column:ssid;type:varchar(64);not null"`
	BSSID   string    `gorm:"column:bssid;type:varchar(17);index"`
}

// TableName explicitly sets the table name for GORM.
func (StoreFingerprintModel) TableName() string {
	return "store_fingerprints"
}
