// Package position implements the positioning service over a platform
// location source, adding permission handling, fix freshness policy, and
// distance-filtered continuous updates.
package position

import (
	"context"

	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/service"
)

// Source is the thin adapter over the platform's positioning API. It does
// no caching or policy; the Service layered on top owns freshness,
// timeouts, and re-prompt limits.
type Source interface {
	// Permission returns the current permission state without prompting.
	Permission(ctx context.Context) entity.PermissionStatus

	// PromptPermission asks the platform to show the permission prompt and
	// returns the resulting state.
	PromptPermission(ctx context.Context) entity.PermissionStatus

	// AcquireFix requests a single fix. It must honor ctx cancellation;
	// high accuracy is requested unless the caller opted out.
	AcquireFix(ctx context.Context, highAccuracy bool) (*service.PositionFix, error)
}
