// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"storefinder/internal/domain/entity"
	"storefinder/internal/errors"

	"github.com/google/uuid"
)

// ErrStoreNotFound is returned when a store is not found.
var ErrStoreNotFound = errors.New("store not found")

// StoreRepository is the read-only contract to the external store database.
// Stores returned by queries carry their geofence and wireless-fingerprint
// fields fully populated; the detection engine does not join or enrich.
type StoreRepository interface {
	// FindNearbyStores retrieves all stores within radiusMeters of the given
	// point, ordered by distance from the point (closest first).
	FindNearbyStores(ctx context.Context, center entity.GeoPoint, radiusMeters float64) ([]*entity.Store, error)

	// FindStoreByID retrieves a store by its unique ID.
	// Returns ErrStoreNotFound if no such store exists.
	FindStoreByID(ctx context.Context, id uuid.UUID) (*entity.Store, error)

	// ListStores retrieves every store. Used by data-quality tooling, not by
	// the detection hot path.
	ListStores(ctx context.Context) ([]*entity.Store, error)
}
