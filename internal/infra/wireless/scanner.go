// Package wireless implements the wireless-fingerprint service over a
// platform network scanner: one-shot scans, fingerprint-to-store matching
// with signal-strength confidence, and a change-gated continuous loop.
package wireless

import (
	"context"

	"storefinder/internal/domain/entity"
)

// Scanner is the thin adapter over the platform's network-scan API.
type Scanner interface {
	// Supported reports whether the platform can scan at all.
	Supported() bool

	// ScanNetworks performs one scan. An empty result is valid: platforms
	// throttle scans and quiet environments see nothing.
	ScanNetworks(ctx context.Context) ([]entity.ObservedNetwork, error)
}
