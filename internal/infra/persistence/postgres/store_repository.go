package postgres

import (
	"context"
	"math"
	"sort"

	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/repository"
	"storefinder/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const metersPerDegreeLatitude = 111320.0

// storeRepository implements the domain.StoreRepository interface.
type storeRepository struct {
	db *gorm.DB
}

// NewStoreRepository is the constructor for storeRepository.
func NewStoreRepository(db *gorm.DB) repository.StoreRepository {
	return &storeRepository{db: db}
}

// FindNearbyStores retrieves all stores within radiusMeters of the center,
// closest first. A bounding box narrows the query in SQL; the exact
// great-circle distance then filters and orders the rows.
func (repo *storeRepository) FindNearbyStores(ctx context.Context, center entity.GeoPoint, radiusMeters float64) ([]*entity.Store, error) {
	latDelta := radiusMeters / metersPerDegreeLatitude
	lonScale := math.Cos(center.Latitude * math.Pi / 180)
	if math.Abs(lonScale) < 0.01 {
		lonScale = 0.01 // near the poles the box degenerates; clamp instead
	}
	lonDelta := radiusMeters / (metersPerDegreeLatitude * math.Abs(lonScale))

	var storeModels []*model.StoreModel
	err := repo.db.WithContext(ctx).
		Preload("GeofencePoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("WirelessFingerprints").
		Where("latitude BETWEEN ? AND ?", center.Latitude-latDelta, center.Latitude+latDelta).
		Where("longitude BETWEEN ? AND ?", center.Longitude-lonDelta, center.Longitude+lonDelta).
		Find(&storeModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find nearby stores")
	}

	stores := make([]*entity.Store, 0, len(storeModels))
	for _, storeM := range storeModels {
		store := toStoreDomain(storeM)
		if center.DistanceTo(store.Location) <= radiusMeters {
			stores = append(stores, store)
		}
	}
	sort.SliceStable(stores, func(i, j int) bool {
		return center.DistanceTo(stores[i].Location) < center.DistanceTo(stores[j].Location)
	})

	return stores, nil
}

// FindStoreByID retrieves a store by its unique ID.
func (repo *storeRepository) FindStoreByID(ctx context.Context, id uuid.UUID) (*entity.Store, error) {
	var storeM model.StoreModel
	err := repo.db.WithContext(ctx).
		Preload("GeofencePoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("WirelessFingerprints").
		Where("id = ?", id).
		First(&storeM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStoreNotFound
		}

		return nil, errors.Wrap(err, "failed to find store by ID")
	}

	return toStoreDomain(&storeM), nil
}

// ListStores retrieves every store, for data-quality tooling.
func (repo *storeRepository) ListStores(ctx context.Context) ([]*entity.Store, error) {
	var storeModels []*model.StoreModel
	err := repo.db.WithContext(ctx).
		Preload("GeofencePoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("WirelessFingerprints").
		Order("name ASC").
		Find(&storeModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list stores")
	}

	stores := make([]*entity.Store, 0, len(storeModels))
	for _, storeM := range storeModels {
		stores = append(stores, toStoreDomain(storeM))
	}

	return stores, nil
}

// --- Mapper Functions ---

// toStoreDomain converts a GORM StoreModel to a domain Store entity.
func toStoreDomain(data *model.StoreModel) *entity.Store {
	if data == nil {
		return nil
	}

	store := &entity.Store{
		ID:    data.ID,
		Name:  data.Name,
		Chain: data.Chain,
		Class: entity.StoreClass(data.Class),
		Location: entity.GeoPoint{
			Latitude:  data.Latitude,
			Longitude: data.Longitude,
		},
		WICAuthorized: data.WICAuthorized,
		Hours: entity.OperatingHours{
			Opens:  data.OpensAt,
			Closes: data.ClosesAt,
		},
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}

	switch entity.GeofenceShape(data.GeofenceShape) {
	case entity.GeofenceCircle:
		store.Geofence = &entity.Geofence{
			Shape: entity.GeofenceCircle,
			Center: entity.GeoPoint{
				Latitude:  data.GeofenceCenterLat,
				Longitude: data.GeofenceCenterLon,
			},
			RadiusMeters: data.GeofenceRadiusMeters,
		}
	case entity.GeofencePolygon:
		ring := make([]entity.GeoPoint, 0, len(data.GeofencePoints))
		for _, pointM := range data.GeofencePoints {
			ring = append(ring, entity.GeoPoint{
				Latitude:  pointM.Latitude,
				Longitude: pointM.Longitude,
			})
		}
		store.Geofence = &entity.Geofence{
			Shape: entity.GeofencePolygon,
			Ring:  ring,
		}
	}

	for _, fingerprintM := range data.WirelessFingerprints {
		store.Fingerprints = append(store.Fingerprints, entity.WirelessFingerprint{
			SSID:  fingerprintM.SSID,
			BSSID: fingerprintM.BSSID,
		})
	}

	return store
}
