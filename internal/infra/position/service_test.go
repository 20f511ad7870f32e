package position

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefinder/config"
	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/service"
	"storefinder/internal/errors"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource counts fix acquisitions and can fail on demand.
type fakeSource struct {
	mu         sync.Mutex
	point      entity.GeoPoint
	permission entity.PermissionStatus
	prompted   int
	acquired   int
	failFix    error
}

func (f *fakeSource) Permission(context.Context) entity.PermissionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.permission
}

func (f *fakeSource) PromptPermission(context.Context) entity.PermissionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompted++

	return f.permission
}

func (f *fakeSource) AcquireFix(ctx context.Context, _ bool) (*service.PositionFix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	if f.failFix != nil {
		return nil, f.failFix
	}

	return &service.PositionFix{Point: f.point, AccuracyMeters: 5, ObservedAt: time.Now()}, nil
}

func (f *fakeSource) acquisitions() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.acquired
}

func newTestService(source Source) service.PositionService {
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	return NewService(source, cfg, newDiscardLogger())
}

func TestService_CurrentFix_CachesFreshFix(t *testing.T) {
	source := &fakeSource{
		point:      entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060},
		permission: entity.PermissionGranted,
	}
	svc := newTestService(source)

	first, err := svc.CurrentFix(context.Background())
	require.NoError(t, err)

	second, err := svc.CurrentFix(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Point, second.Point)
	assert.Equal(t, 1, source.acquisitions(), "fresh cached fix must not hit the platform again")
}

func TestService_CurrentFix_PermissionDenied(t *testing.T) {
	source := &fakeSource{permission: entity.PermissionDenied}
	svc := newTestService(source)

	_, err := svc.CurrentFix(context.Background())
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestService_CurrentFix_PermissionBlocked(t *testing.T) {
	source := &fakeSource{permission: entity.PermissionBlocked}
	svc := newTestService(source)

	_, err := svc.CurrentFix(context.Background())
	assert.ErrorIs(t, err, service.ErrPermissionBlocked)
}

func TestService_CurrentFix_SourceFailure(t *testing.T) {
	source := &fakeSource{
		permission: entity.PermissionGranted,
		failFix:    errors.New("no satellites"),
	}
	svc := newTestService(source)

	_, err := svc.CurrentFix(context.Background())
	assert.ErrorIs(t, err, service.ErrPositionUnavailable)
}

func TestService_RequestPermission_CapsReprompts(t *testing.T) {
	source := &fakeSource{permission: entity.PermissionDenied}
	cfg := &config.Config{
		Position: &config.PositionConfig{
			PermissionMaxPrompts:     2,
			PermissionPromptInterval: time.Hour,
		},
	}
	cfg.ApplyDefaults()
	svc := NewService(source, cfg, newDiscardLogger())

	for range 5 {
		status := svc.RequestPermission(context.Background())
		assert.Equal(t, entity.PermissionDenied, status)
	}
	assert.Equal(t, 2, source.prompted, "prompt cap must stop further platform prompts")
}

func TestService_RequestPermission_BlockedNeverReprompts(t *testing.T) {
	source := &fakeSource{permission: entity.PermissionBlocked}
	svc := newTestService(source)

	svc.CheckPermission(context.Background())
	status := svc.RequestPermission(context.Background())
	assert.Equal(t, entity.PermissionBlocked, status)
	assert.Equal(t, 0, source.prompted)
}

func TestService_Watch_EmitsAndCancels(t *testing.T) {
	source := &fakeSource{
		point:      entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060},
		permission: entity.PermissionGranted,
	}
	cfg := &config.Config{
		Position: &config.PositionConfig{
			PollInterval:   10 * time.Millisecond,
			UpdateInterval: 20 * time.Millisecond,
		},
	}
	cfg.ApplyDefaults()
	svc := NewService(source, cfg, newDiscardLogger())

	var mu sync.Mutex
	var emitted int
	sub, err := svc.Watch(context.Background(), func(service.PositionFix) {
		mu.Lock()
		emitted++
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return emitted >= 1
	}, time.Second, 5*time.Millisecond)

	sub.Cancel()
	mu.Lock()
	after := emitted
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, emitted, "no emit may fire after Cancel returns")
	mu.Unlock()
}

func TestService_Watch_DistanceFilterSuppressesStationaryEmits(t *testing.T) {
	source := &fakeSource{
		point:      entity.GeoPoint{Latitude: 40.7128, Longitude: -74.0060},
		permission: entity.PermissionGranted,
	}
	cfg := &config.Config{
		Position: &config.PositionConfig{
			PollInterval:         5 * time.Millisecond,
			UpdateInterval:       time.Hour, // only the distance filter can trigger
			DistanceFilterMeters: 50,
		},
	}
	cfg.ApplyDefaults()
	svc := NewService(source, cfg, newDiscardLogger())

	var mu sync.Mutex
	var emitted int
	sub, err := svc.Watch(context.Background(), func(service.PositionFix) {
		mu.Lock()
		emitted++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Cancel()

	// First fix always emits; a stationary device then stays quiet.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return emitted == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, emitted)
	mu.Unlock()

	// Moving past the filter emits again.
	source.mu.Lock()
	source.point = entity.GeoPoint{Latitude: 40.7138, Longitude: -74.0060} // ~111 m north
	source.mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return emitted >= 2
	}, time.Second, 5*time.Millisecond)
}
