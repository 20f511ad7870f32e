// Package service defines interfaces for infrastructure-backed services
// consumed by the application layer.
package service

import (
	"context"
	"time"

	"storefinder/internal/domain/entity"
	"storefinder/internal/errors"
)

// Position acquisition errors.
var (
	// ErrPermissionDenied means positioning permission was denied but the
	// platform may re-prompt.
	ErrPermissionDenied = errors.New("positioning permission denied")
	// ErrPermissionBlocked means the platform will not re-prompt; the user
	// must be routed to system settings.
	ErrPermissionBlocked = errors.New("positioning permission blocked")
	// ErrPositionUnavailable means no fix arrived within the configured
	// timeout. Transient; the caller retries or waits for the next tick.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// PositionFix is a single satellite-positioning fix.
type PositionFix struct {
	Point          entity.GeoPoint `json:"point"`
	AccuracyMeters float64         `json:"accuracy_meters"`
	ObservedAt     time.Time       `json:"observed_at"`
}

// Subscription is a handle to a continuous sensor feed. Cancel is
// idempotent; no callback fires after Cancel returns.
type Subscription interface {
	Cancel()
}

// PositionService wraps the platform's positioning API with permission
// state, one-shot fix acquisition under a freshness/accuracy policy, and
// continuous updates gated by a distance filter.
type PositionService interface {
	// CheckPermission returns the current positioning-permission state
	// without prompting.
	CheckPermission(ctx context.Context) entity.PermissionStatus

	// RequestPermission prompts the user when allowed to. Re-prompting is
	// capped; once the cap is hit the last known status is returned.
	RequestPermission(ctx context.Context) entity.PermissionStatus

	// CurrentFix returns a cached fix if fresh enough, otherwise requests a
	// new one in high-accuracy mode. Fails with ErrPositionUnavailable when
	// no fix arrives in time, or a permission error when not granted.
	CurrentFix(ctx context.Context) (*PositionFix, error)

	// Watch emits a fix whenever the device moves beyond the distance filter
	// or the update interval elapses, whichever comes first.
	Watch(ctx context.Context, emit func(PositionFix)) (Subscription, error)
}
