package service

import (
	"context"

	"storefinder/internal/domain/entity"
	"storefinder/internal/errors"
)

// ErrScanUnsupported means the platform lacks wireless-scan capability.
// Wireless evidence is permanently disabled for the session; position-only
// detection continues.
var ErrScanUnsupported = errors.New("wireless scanning unsupported")

// WirelessService wraps the platform's network-scan API with one-shot
// scanning, fingerprint-to-store matching, and a change-gated continuous
// scan loop.
type WirelessService interface {
	// Supported reports whether the platform can scan at all.
	Supported() bool

	// Scan performs a one-shot network scan. An empty result means the
	// platform returned no networks (throttled or quiet environment) and is
	// not an error.
	Scan(ctx context.Context) ([]entity.ObservedNetwork, error)

	// MatchToStores scores observed networks against the candidate stores'
	// known fingerprints and returns matches sorted by confidence descending.
	MatchToStores(observed []entity.ObservedNetwork, stores []*entity.Store) []*entity.WirelessMatch

	// HasChanged reports whether the set of observed networks differs from a
	// previous scan, ignoring signal-strength fluctuation.
	HasChanged(previous, current []entity.ObservedNetwork) bool

	// Watch scans on a fixed interval and invokes emit only when the
	// observed network set changed since the previous scan.
	Watch(ctx context.Context, emit func([]entity.ObservedNetwork)) (Subscription, error)
}
