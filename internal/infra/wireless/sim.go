package wireless

import (
	"context"
	"sync"

	"storefinder/internal/domain/entity"
)

// SimScanner is a deterministic in-memory Scanner used by the server binary
// and tests; the real platform scan API only exists on the device.
type SimScanner struct {
	mu       sync.RWMutex
	networks []entity.ObservedNetwork
	enabled  bool
}

// NewSimScanner creates a simulated scanner seeded with the given networks.
func NewSimScanner(networks ...entity.ObservedNetwork) *SimScanner {
	return &SimScanner{networks: networks, enabled: true}
}

// SetNetworks replaces the simulated environment.
func (s *SimScanner) SetNetworks(networks ...entity.ObservedNetwork) {
	s.mu.Lock()
	s.networks = networks
	s.mu.Unlock()
}

// SetSupported toggles platform scan support.
func (s *SimScanner) SetSupported(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *SimScanner) Supported() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.enabled
}

func (s *SimScanner) ScanNetworks(ctx context.Context) ([]entity.ObservedNetwork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.ObservedNetwork, len(s.networks))
	copy(out, s.networks)

	return out, nil
}
