package position

import (
	"context"
	"sync"
	"time"

	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/service"
)

// SimSource is a deterministic in-memory Source used by the server binary
// and tests; the real platform positioning API only exists on the device.
type SimSource struct {
	mu         sync.RWMutex
	point      entity.GeoPoint
	accuracy   float64
	permission entity.PermissionStatus
}

// NewSimSource creates a simulated source reporting the given point with
// permission granted.
func NewSimSource(point entity.GeoPoint) *SimSource {
	return &SimSource{
		point:      point,
		accuracy:   5,
		permission: entity.PermissionGranted,
	}
}

// MoveTo relocates the simulated device.
func (s *SimSource) MoveTo(point entity.GeoPoint) {
	s.mu.Lock()
	s.point = point
	s.mu.Unlock()
}

// SetPermission overrides the reported permission state.
func (s *SimSource) SetPermission(status entity.PermissionStatus) {
	s.mu.Lock()
	s.permission = status
	s.mu.Unlock()
}

func (s *SimSource) Permission(_ context.Context) entity.PermissionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.permission
}

func (s *SimSource) PromptPermission(ctx context.Context) entity.PermissionStatus {
	return s.Permission(ctx)
}

func (s *SimSource) AcquireFix(ctx context.Context, _ bool) (*service.PositionFix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return &service.PositionFix{
		Point:          s.point,
		AccuracyMeters: s.accuracy,
		ObservedAt:     time.Now(),
	}, nil
}
