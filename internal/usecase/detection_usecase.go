package usecase

import (
	"context"

	"storefinder/internal/domain/entity"

	"github.com/google/uuid"
)

// DetectionUsecase defines the interface for store-detection use cases: the
// one-shot detection pass, the confirmation flow, manual selection, and the
// continuous signal-driven session.
type DetectionUsecase interface {
	// DetectOnce runs a single detection pass over the current position and
	// wireless evidence. Signal problems (permission denied, no fix, scan
	// failure) degrade the result instead of failing it; the returned error
	// is reserved for context cancellation and infrastructure faults.
	DetectOnce(ctx context.Context) (*entity.DetectionResult, error)

	// ConfirmStore records that the user accepted a detected store. Once a
	// store is confirmed, later detections of it no longer ask again.
	// Confirming the same store twice is a no-op.
	ConfirmStore(ctx context.Context, storeID uuid.UUID) error

	// SelectManually records an explicit user store choice, which also counts
	// as a confirmation, and returns the resulting detection.
	SelectManually(ctx context.Context, storeID uuid.UUID) (*entity.DetectionResult, error)

	// StartContinuous begins a signal-driven detection session: every position
	// or wireless change triggers a re-detection whose result is passed to
	// emit. Starting an already-running session is a no-op. No emit fires
	// after Stop returns.
	StartContinuous(ctx context.Context, emit func(*entity.DetectionResult)) error

	// Stop ends the continuous session. Safe to call when none is running.
	Stop()

	// NearbyStores lists candidate stores around a point ranked closest
	// first, scored for disambiguation UIs. A non-positive radius uses the
	// configured default.
	NearbyStores(ctx context.Context, center entity.GeoPoint, radiusMeters float64) ([]*entity.StoreCandidate, error)
}
