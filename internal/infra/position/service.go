package position

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefinder/config"
	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/service"
	"storefinder/internal/errors"
)

// Service implements service.PositionService on top of a platform Source.
type Service struct {
	source Source
	cfg    *config.PositionConfig
	logger *slog.Logger

	mu         sync.Mutex
	lastFix    *service.PositionFix
	lastStatus entity.PermissionStatus
	prompts    int
	lastPrompt time.Time
}

// NewService creates a new positioning service instance.
func NewService(source Source, cfg *config.Config, logger *slog.Logger) service.PositionService {
	// If Position is not configured, provide the default policy
	if cfg.Position == nil {
		cfg.Position = config.DefaultPosition()
	}

	return &Service{
		source:     source,
		cfg:        cfg.Position,
		logger:     logger,
		lastStatus: entity.PermissionUnknown,
	}
}

// CheckPermission returns the current permission state without prompting.
func (s *Service) CheckPermission(ctx context.Context) entity.PermissionStatus {
	status := s.source.Permission(ctx)

	s.mu.Lock()
	s.lastStatus = status
	s.mu.Unlock()

	return status
}

// RequestPermission prompts the user for positioning permission. Once the
// platform reports blocked, or the re-prompt cap is hit within the
// configured interval, the last known status is returned without showing a
// prompt again.
func (s *Service) RequestPermission(ctx context.Context) entity.PermissionStatus {
	s.mu.Lock()
	if s.lastStatus == entity.PermissionBlocked {
		s.mu.Unlock()

		return entity.PermissionBlocked
	}

	if s.prompts >= s.cfg.PermissionMaxPrompts && time.Since(s.lastPrompt) < s.cfg.PermissionPromptInterval {
		status := s.lastStatus
		s.mu.Unlock()
		s.logger.Debug("Permission re-prompt cap reached, returning last status",
			slog.String("status", string(status)),
		)

		return status
	}
	if time.Since(s.lastPrompt) >= s.cfg.PermissionPromptInterval {
		s.prompts = 0
	}
	s.prompts++
	s.lastPrompt = time.Now()
	s.mu.Unlock()

	status := s.source.PromptPermission(ctx)

	s.mu.Lock()
	s.lastStatus = status
	s.mu.Unlock()

	return status
}

// CurrentFix returns the cached fix when younger than the configured max
// age, otherwise requests a fresh high-accuracy fix, failing with
// ErrPositionUnavailable when none arrives within the timeout.
func (s *Service) CurrentFix(ctx context.Context) (*service.PositionFix, error) {
	s.mu.Lock()
	if s.lastFix != nil && time.Since(s.lastFix.ObservedAt) <= s.cfg.FixMaxAge {
		fix := *s.lastFix
		s.mu.Unlock()

		return &fix, nil
	}
	s.mu.Unlock()

	if err := s.permissionError(ctx); err != nil {
		return nil, err
	}

	fixCtx, cancel := context.WithTimeout(ctx, s.cfg.FixTimeout)
	defer cancel()

	fix, err := s.source.AcquireFix(fixCtx, s.cfg.HighAccuracy)
	if err != nil {
		return nil, errors.Wrap(service.ErrPositionUnavailable, err.Error())
	}
	if fix == nil {
		return nil, service.ErrPositionUnavailable
	}

	s.mu.Lock()
	s.lastFix = fix
	s.mu.Unlock()

	result := *fix

	return &result, nil
}

// Watch polls the platform source and emits a fix whenever the device has
// moved beyond the distance filter or the update interval has elapsed,
// whichever comes first. No emit fires after the returned subscription's
// Cancel returns.
func (s *Service) Watch(ctx context.Context, emit func(service.PositionFix)) (service.Subscription, error) {
	if err := s.permissionError(ctx); err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &watcher{cancel: cancel}

	go s.watchLoop(watchCtx, w, emit)

	return w, nil
}

func (s *Service) watchLoop(ctx context.Context, w *watcher, emit func(service.PositionFix)) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var lastEmitted *service.PositionFix
	var lastEmitAt time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		fixCtx, cancel := context.WithTimeout(ctx, s.cfg.FixTimeout)
		fix, err := s.source.AcquireFix(fixCtx, s.cfg.HighAccuracy)
		cancel()
		if err != nil || fix == nil {
			// Transient; the next poll proceeds on schedule.
			continue
		}

		s.mu.Lock()
		s.lastFix = fix
		s.mu.Unlock()

		moved := lastEmitted == nil ||
			fix.Point.DistanceTo(lastEmitted.Point) >= s.cfg.DistanceFilterMeters
		due := time.Since(lastEmitAt) >= s.cfg.UpdateInterval
		if !moved && !due {
			continue
		}

		if !w.invoke(emit, *fix) {
			return
		}
		lastEmitted = fix
		lastEmitAt = time.Now()
	}
}

// permissionError maps non-granted permission states onto the error
// taxonomy; granted and unknown states proceed (unknown resolves at the
// first platform read).
func (s *Service) permissionError(ctx context.Context) error {
	switch s.CheckPermission(ctx) {
	case entity.PermissionDenied:
		return service.ErrPermissionDenied
	case entity.PermissionBlocked:
		return service.ErrPermissionBlocked
	default:
		return nil
	}
}

// watcher enforces that no callback runs after Cancel returns: invoke and
// Cancel contend on the same mutex, so a Cancel that wins the lock
// permanently suppresses late-arriving fixes.
type watcher struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
}

func (w *watcher) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelled {
		return
	}
	w.cancelled = true
	w.cancel()
}

func (w *watcher) invoke(emit func(service.PositionFix), fix service.PositionFix) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelled {
		return false
	}
	emit(fix)

	return true
}
