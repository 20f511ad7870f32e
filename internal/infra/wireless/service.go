package wireless

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"storefinder/config"
	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/service"
	"storefinder/internal/errors"
)

// Signal-strength confidence thresholds in dBm.
const (
	strongSignalDBM   = -60
	moderateSignalDBM = -70
	weakSignalDBM     = -80

	strongConfidence   = 95
	moderateConfidence = 85
	weakConfidence     = 70
	floorConfidence    = 50

	// bssidBonus rewards hardware-address matches over name-only matches.
	bssidBonus    = 10
	maxConfidence = 100
)

// ErrWatchActive is returned when a continuous scan loop is already running
// on this service instance.
var ErrWatchActive = errors.New("continuous scan already active")

// Service implements service.WirelessService.
type Service struct {
	scanner Scanner
	cfg     *config.WirelessConfig
	logger  *slog.Logger

	mu       sync.Mutex
	lastScan []entity.ObservedNetwork
	watching bool
}

// NewService creates a new wireless-fingerprint service instance.
func NewService(scanner Scanner, cfg *config.Config, logger *slog.Logger) service.WirelessService {
	if cfg.Wireless == nil {
		cfg.Wireless = &config.WirelessConfig{Enabled: true, ScanInterval: 10 * time.Second}
	}

	return &Service{
		scanner: scanner,
		cfg:     cfg.Wireless,
		logger:  logger,
	}
}

// Supported reports whether the platform can scan at all.
func (s *Service) Supported() bool {
	return s.scanner.Supported()
}

// Scan performs a one-shot scan and caches the result for change
// comparison in continuous mode.
func (s *Service) Scan(ctx context.Context) ([]entity.ObservedNetwork, error) {
	if !s.scanner.Supported() {
		return nil, service.ErrScanUnsupported
	}

	observed, err := s.scanner.ScanNetworks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan networks")
	}

	s.mu.Lock()
	s.lastScan = observed
	s.mu.Unlock()

	return observed, nil
}

// MatchToStores scores every observed network against every candidate
// store's known fingerprints. A match occurs on hardware-address equality,
// or on network-name equality when either side lacks a hardware address.
// Each store keeps its single best-scoring match; results are sorted by
// confidence descending, ties resolving to candidate input order.
func (s *Service) MatchToStores(observed []entity.ObservedNetwork, stores []*entity.Store) []*entity.WirelessMatch {
	best := make(map[int]*entity.WirelessMatch)

	for idx, store := range stores {
		for _, known := range store.Fingerprints {
			for _, network := range observed {
				byBSSID, matched := fingerprintMatches(known, network)
				if !matched {
					continue
				}

				confidence := signalConfidence(network.SignalDBM)
				if byBSSID {
					confidence = min(confidence+bssidBonus, maxConfidence)
				}

				current := best[idx]
				if current == nil || confidence > current.Confidence {
					best[idx] = &entity.WirelessMatch{
						Store:          store,
						Confidence:     confidence,
						MatchedByBSSID: byBSSID,
						Network:        network,
					}
				}
			}
		}
	}

	matches := make([]*entity.WirelessMatch, 0, len(best))
	for idx := range stores {
		if match, ok := best[idx]; ok {
			matches = append(matches, match)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	return matches
}

// HasChanged reports whether the observed network set differs between two
// scans. Networks are keyed by hardware address, falling back to the
// network name when no address was reported; signal-strength fluctuation
// is ignored.
func (s *Service) HasChanged(previous, current []entity.ObservedNetwork) bool {
	if len(previous) != len(current) {
		return true
	}

	seen := make(map[string]struct{}, len(previous))
	for _, network := range previous {
		seen[networkKey(network)] = struct{}{}
	}
	for _, network := range current {
		if _, ok := seen[networkKey(network)]; !ok {
			return true
		}
	}

	return false
}

// Watch scans on the configured interval and emits only when the network
// set changed since the previous scan. At most one loop runs per service
// instance; no emit fires after Cancel returns.
func (s *Service) Watch(ctx context.Context, emit func([]entity.ObservedNetwork)) (service.Subscription, error) {
	if !s.scanner.Supported() {
		return nil, service.ErrScanUnsupported
	}

	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()

		return nil, ErrWatchActive
	}
	s.watching = true
	s.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	w := &watcher{
		cancel: cancel,
		onCancel: func() {
			s.mu.Lock()
			s.watching = false
			s.mu.Unlock()
		},
	}

	go s.watchLoop(watchCtx, w, emit)

	return w, nil
}

func (s *Service) watchLoop(ctx context.Context, w *watcher, emit func([]entity.ObservedNetwork)) {
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	var previous []entity.ObservedNetwork
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		observed, err := s.scanner.ScanNetworks(ctx)
		if err != nil {
			s.logger.Debug("Network scan failed, skipping tick", slog.Any("error", err))

			continue
		}

		s.mu.Lock()
		s.lastScan = observed
		s.mu.Unlock()

		if !first && !s.HasChanged(previous, observed) {
			continue
		}
		first = false
		previous = observed

		if !w.invoke(emit, observed) {
			return
		}
	}
}

// fingerprintMatches reports whether an observed network matches a known
// fingerprint, and whether the match was by hardware address.
func fingerprintMatches(known entity.WirelessFingerprint, observed entity.ObservedNetwork) (byBSSID, matched bool) {
	if known.BSSID != "" && observed.BSSID != "" {
		return true, known.BSSID == observed.BSSID
	}
	if known.SSID != "" && observed.SSID != "" {
		return false, known.SSID == observed.SSID
	}

	return false, false
}

// signalConfidence maps a measured signal strength onto a base confidence.
func signalConfidence(signalDBM *int) int {
	if signalDBM == nil {
		return floorConfidence
	}

	switch {
	case *signalDBM > strongSignalDBM:
		return strongConfidence
	case *signalDBM >= moderateSignalDBM:
		return moderateConfidence
	case *signalDBM >= weakSignalDBM:
		return weakConfidence
	default:
		return floorConfidence
	}
}

func networkKey(network entity.ObservedNetwork) string {
	if network.BSSID != "" {
		return "bssid:" + network.BSSID
	}

	return "ssid:" + network.SSID
}

// watcher mirrors the position watcher: Cancel and invoke contend on one
// mutex so no emit can fire after Cancel returns.
type watcher struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
	onCancel  func()
}

func (w *watcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelled {
		return
	}
	w.cancelled = true
	w.cancel()
	if w.onCancel != nil {
		w.onCancel()
	}
}

func (w *watcher) invoke(emit func([]entity.ObservedNetwork), observed []entity.ObservedNetwork) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelled {
		return false
	}
	emit(observed)

	return true
}
