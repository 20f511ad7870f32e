package geofence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefinder/internal/domain/entity"
)

// metersPerDegreeLat approximates one degree of latitude; good enough to
// place test points at known distances from an origin.
const metersPerDegreeLat = 111320.0

func pointNorthOf(origin entity.GeoPoint, meters float64) entity.GeoPoint {
	return entity.GeoPoint{
		Latitude:  origin.Latitude + meters/metersPerDegreeLat,
		Longitude: origin.Longitude,
	}
}

func circleStore(center entity.GeoPoint, radiusMeters float64) *entity.Store {
	return &entity.Store{
		ID:       uuid.New(),
		Name:     "Test Market",
		Location: center,
		Geofence: &entity.Geofence{
			Shape:        entity.GeofenceCircle,
			Center:       center,
			RadiusMeters: radiusMeters,
		},
	}
}

func TestEngine_IsInside_CircleCenter(t *testing.T) {
	engine := NewEngine(Config{})
	center := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	store := circleStore(center, 75)

	assert.True(t, engine.IsInside(center, store))

	match := engine.MatchDetails(center, store)
	assert.True(t, match.Inside)
	assert.Equal(t, 100, match.Confidence)
	assert.InDelta(t, 0, match.DistanceMeters, 0.01)
}

func TestEngine_IsInside_OutsideCircle(t *testing.T) {
	engine := NewEngine(Config{})
	center := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	store := circleStore(center, 75)

	outside := pointNorthOf(center, 150)
	assert.False(t, engine.IsInside(outside, store))

	match := engine.MatchDetails(outside, store)
	assert.False(t, match.Inside)
	assert.InDelta(t, 150, match.DistanceMeters, 1.0)
	// 150 m falls in the <=200 band.
	assert.Equal(t, 50, match.Confidence)
}

func TestEngine_IsInside_Polygon(t *testing.T) {
	engine := NewEngine(Config{})
	// A small square roughly 200 m on a side around the origin point.
	store := &entity.Store{
		ID:       uuid.New(),
		Location: entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060},
		Geofence: &entity.Geofence{
			Shape: entity.GeofencePolygon,
			Ring: []entity.GeoPoint{
				{Latitude: 40.7119, Longitude: -74.0072},
				{Latitude: 40.7119, Longitude: -74.0048},
				{Latitude: 40.7137, Longitude: -74.0048},
				{Latitude: 40.7137, Longitude: -74.0072},
			},
		},
	}

	assert.True(t, engine.IsInside(entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}, store))
	assert.False(t, engine.IsInside(entity.GeoPoint{Latitude: 40.7150, Longitude: -74.0060}, store))
}

func TestEngine_MatchDetails_NoGeofenceBands(t *testing.T) {
	engine := NewEngine(Config{})
	center := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	store := &entity.Store{ID: uuid.New(), Location: center}

	tests := []struct {
		name       string
		meters     float64
		confidence int
	}{
		{"within 10m", 5, 100},
		{"within 25m", 20, 95},
		{"within 50m", 40, 85},
		{"within 100m", 80, 70},
		{"within 200m", 120, 50},
		{"beyond 200m", 400, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := engine.MatchDetails(pointNorthOf(center, tt.meters), store)
			assert.False(t, match.Inside)
			assert.Equal(t, tt.confidence, match.Confidence)
		})
	}
}

func TestEngine_MatchDetails_ConfidenceMonotonic(t *testing.T) {
	engine := NewEngine(Config{})
	center := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	store := circleStore(center, 75)

	previous := 101
	for _, meters := range []float64{0, 5, 20, 40, 60, 80, 120, 180, 250, 600} {
		match := engine.MatchDetails(pointNorthOf(center, meters), store)
		assert.LessOrEqual(t, match.Confidence, previous,
			"confidence must not increase with distance (at %.0f m)", meters)
		previous = match.Confidence
	}
}

func TestEngine_MatchDetails_InsideBeyondTightRadius(t *testing.T) {
	engine := NewEngine(Config{})
	center := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	store := circleStore(center, 75)

	match := engine.MatchDetails(pointNorthOf(center, 40), store)
	assert.True(t, match.Inside)
	assert.Equal(t, 95, match.Confidence)
}

func TestEngine_FindBestMatch_ClosestCenterWins(t *testing.T) {
	engine := NewEngine(Config{})
	point := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}

	far := circleStore(pointNorthOf(point, 45), 100)
	near := circleStore(pointNorthOf(point, 40), 100)

	best, match, ok := engine.FindBestMatch(point, []*entity.Store{far, near})
	require.True(t, ok)
	assert.Equal(t, near.ID, best.ID)
	assert.True(t, match.Inside)
	assert.GreaterOrEqual(t, match.Confidence, 95)
}

func TestEngine_FindBestMatch_TieBreaksToInputOrder(t *testing.T) {
	engine := NewEngine(Config{})
	point := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	center := pointNorthOf(point, 30)

	first := circleStore(center, 100)
	second := circleStore(center, 100)

	best, _, ok := engine.FindBestMatch(point, []*entity.Store{first, second})
	require.True(t, ok)
	assert.Equal(t, first.ID, best.ID)
}

func TestEngine_FindBestMatch_NoneInside(t *testing.T) {
	engine := NewEngine(Config{})
	point := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	store := circleStore(pointNorthOf(point, 500), 75)

	_, _, ok := engine.FindBestMatch(point, []*entity.Store{store})
	assert.False(t, ok)
}

func TestEngine_FindContainingStores_PreservesInputOrder(t *testing.T) {
	engine := NewEngine(Config{})
	point := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}

	a := circleStore(pointNorthOf(point, 50), 100)
	b := circleStore(pointNorthOf(point, 400), 75) // not containing
	c := circleStore(pointNorthOf(point, 20), 100)

	containing := engine.FindContainingStores(point, []*entity.Store{a, b, c})
	require.Len(t, containing, 2)
	assert.Equal(t, a.ID, containing[0].ID)
	assert.Equal(t, c.ID, containing[1].ID)
}

func TestEngine_ValidateGeofences(t *testing.T) {
	engine := NewEngine(Config{})
	origin := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}

	badCircle := circleStore(origin, -10)
	badPolygon := &entity.Store{
		ID:       uuid.New(),
		Location: origin,
		Geofence: &entity.Geofence{
			Shape: entity.GeofencePolygon,
			Ring: []entity.GeoPoint{
				{Latitude: 40.71, Longitude: -74.00},
				{Latitude: 40.72, Longitude: -74.01},
			},
		},
	}
	goodCircle := circleStore(origin, 75)
	goodPolygon := &entity.Store{
		ID:       uuid.New(),
		Location: origin,
		Geofence: &entity.Geofence{
			Shape: entity.GeofencePolygon,
			Ring: []entity.GeoPoint{
				{Latitude: 40.71, Longitude: -74.00},
				{Latitude: 40.71, Longitude: -74.01},
				{Latitude: 40.72, Longitude: -74.01},
				{Latitude: 40.72, Longitude: -74.00},
			},
		},
	}
	noFence := &entity.Store{ID: uuid.New(), Location: origin}

	issues := engine.ValidateGeofences([]*entity.Store{badCircle, badPolygon, goodCircle, goodPolygon, noFence})
	require.Len(t, issues, 2)
	assert.Equal(t, badCircle.ID, issues[0].StoreID)
	assert.Equal(t, badPolygon.ID, issues[1].StoreID)
}

func TestEngine_InvalidGeofenceFallsBackToDistance(t *testing.T) {
	engine := NewEngine(Config{})
	center := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	store := circleStore(center, -10)

	// Invalid geofence is excluded from containment but still scores by
	// distance band.
	assert.False(t, engine.IsInside(center, store))
	match := engine.MatchDetails(center, store)
	assert.False(t, match.Inside)
	assert.Equal(t, 100, match.Confidence) // 0 m falls in the <=10 band
}

func TestEngine_GenerateDefaultGeofence(t *testing.T) {
	engine := NewEngine(Config{})
	origin := entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060}

	tests := []struct {
		name   string
		class  entity.StoreClass
		radius float64
	}{
		{"big box", entity.StoreClassBigBox, 100},
		{"pharmacy", entity.StoreClassPharmacy, 30},
		{"unclassified", entity.StoreClassUnclassified, 50},
		{"empty class", "", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &entity.Store{ID: uuid.New(), Class: tt.class, Location: origin}
			fence := engine.GenerateDefaultGeofence(store)
			assert.Equal(t, entity.GeofenceCircle, fence.Shape)
			assert.Equal(t, origin, fence.Center)
			assert.Equal(t, tt.radius, fence.RadiusMeters)
			require.NoError(t, fence.Validate())
		})
	}
}
