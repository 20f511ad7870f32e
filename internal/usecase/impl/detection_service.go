package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"storefinder/config"
	deliverycontext "storefinder/internal/delivery/context"
	"storefinder/internal/domain/entity"
	"storefinder/internal/domain/repository"
	"storefinder/internal/domain/service"
	"storefinder/internal/geofence"
	"storefinder/internal/usecase"
)

type detectionService struct {
	storeRepo        repository.StoreRepository
	confirmationRepo repository.ConfirmationRepository
	engine           *geofence.Engine
	positionSvc      service.PositionService
	wirelessSvc      service.WirelessService
	publisher        service.EventPublisher
	config           *config.DetectionConfig
	logger           *slog.Logger

	// candidateCache memoizes nearby-store queries per quantized position so
	// continuous ticks do not hammer the store database.
	candidateCache *cache.Cache

	mu              sync.Mutex
	confirmed       map[uuid.UUID]struct{}
	confirmedLoaded bool
	lastFix         *service.PositionFix
	lastObserved    []entity.ObservedNetwork
	lastCandidates  []*entity.Store
	lastPublishedID uuid.UUID
	sess            *detectionSession
}

// detectionSession holds the handles of one continuous-detection run.
type detectionSession struct {
	posSub  service.Subscription
	wifiSub service.Subscription
}

// NewDetectionService creates a new detection orchestrator instance.
func NewDetectionService(
	storeRepo repository.StoreRepository,
	confirmationRepo repository.ConfirmationRepository,
	engine *geofence.Engine,
	positionSvc service.PositionService,
	wirelessSvc service.WirelessService,
	publisher service.EventPublisher,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.DetectionUsecase {
	// If Detection is not configured, provide the default thresholds
	if cfg.Detection == nil {
		cfg.Detection = config.DefaultDetection()
	}

	return &detectionService{
		storeRepo:        storeRepo,
		confirmationRepo: confirmationRepo,
		engine:           engine,
		positionSvc:      positionSvc,
		wirelessSvc:      wirelessSvc,
		publisher:        publisher,
		config:           cfg.Detection,
		logger:           logger,
		candidateCache:   cache.New(cfg.Detection.CandidateCacheTTL, 2*cfg.Detection.CandidateCacheTTL),
		confirmed:        make(map[uuid.UUID]struct{}),
	}
}

// DetectOnce runs a single detection pass. Every signal failure short of
// context cancellation degrades the result rather than failing the call:
// the caller always gets a DetectionResult describing what the signals
// allowed.
func (s *detectionService) DetectOnce(ctx context.Context) (*entity.DetectionResult, error) {
	permission := s.positionSvc.CheckPermission(ctx)
	if permission == entity.PermissionUnknown {
		permission = s.positionSvc.RequestPermission(ctx)
	}

	var fix *service.PositionFix
	if permission == entity.PermissionGranted {
		acquired, err := s.positionSvc.CurrentFix(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("Position fix unavailable, degrading to wireless evidence",
				slog.Any("error", err),
			)
		} else {
			fix = acquired
		}
	}

	candidates, err := s.candidatesFor(ctx, fix)
	if err != nil {
		return nil, err
	}

	var observed []entity.ObservedNetwork
	if s.wirelessSvc.Supported() {
		scanned, err := s.wirelessSvc.Scan(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("Wireless scan failed, continuing with position evidence",
				slog.Any("error", err),
			)
		} else {
			observed = scanned
		}
	}
	matches := s.wirelessSvc.MatchToStores(observed, candidates)

	s.mu.Lock()
	if fix != nil {
		s.lastFix = fix
	}
	if observed != nil {
		s.lastObserved = observed
	}
	s.lastCandidates = candidates
	s.mu.Unlock()

	result := s.fuse(ctx, fix, candidates, matches, permission)
	s.publishEvent(ctx, service.EventStoreDetected, result)

	return result, nil
}

// ConfirmStore records that the user accepted the store. Confirming a store
// that was already confirmed is a no-op.
func (s *detectionService) ConfirmStore(ctx context.Context, storeID uuid.UUID) error {
	store, err := s.storeRepo.FindStoreByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return repository.ErrStoreNotFound
		}

		return fmt.Errorf("failed to find store by ID: %w", err)
	}

	s.ensureConfirmedLoaded(ctx)

	s.mu.Lock()
	if _, ok := s.confirmed[storeID]; ok {
		s.mu.Unlock()

		return nil
	}
	s.confirmed[storeID] = struct{}{}
	s.mu.Unlock()

	// The in-memory confirmation stands even when the durable write fails.
	if err := s.confirmationRepo.RecordConfirmation(ctx, storeID); err != nil {
		s.logger.Warn("Failed to record confirmation",
			slog.String("store_id", storeID.String()),
			slog.Any("error", err),
		)
	}

	s.publishEvent(ctx, service.EventStoreConfirmed, &entity.DetectionResult{
		Store:      store,
		Confidence: 100,
		Method:     entity.MethodManual,
		DetectedAt: time.Now(),
	})

	return nil
}

// SelectManually records an explicit user store choice. A manual selection
// carries full confidence and also counts as a confirmation.
func (s *detectionService) SelectManually(ctx context.Context, storeID uuid.UUID) (*entity.DetectionResult, error) {
	store, err := s.storeRepo.FindStoreByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return nil, repository.ErrStoreNotFound
		}

		return nil, fmt.Errorf("failed to find store by ID: %w", err)
	}

	s.ensureConfirmedLoaded(ctx)

	s.mu.Lock()
	_, already := s.confirmed[storeID]
	s.confirmed[storeID] = struct{}{}
	fix := s.lastFix
	s.mu.Unlock()

	if !already {
		if err := s.confirmationRepo.RecordConfirmation(ctx, storeID); err != nil {
			s.logger.Warn("Failed to record confirmation",
				slog.String("store_id", storeID.String()),
				slog.Any("error", err),
			)
		}
	}

	result := &entity.DetectionResult{
		Store:      store,
		Confidence: 100,
		Method:     entity.MethodManual,
		Permission: s.positionSvc.CheckPermission(ctx),
		DetectedAt: time.Now(),
	}
	if fix != nil {
		details := s.engine.MatchDetails(fix.Point, store)
		result.DistanceMeters = &details.DistanceMeters
		result.InsideGeofence = &details.Inside
	}

	s.publishEvent(ctx, service.EventStoreSelected, result)

	return result, nil
}

// StartContinuous subscribes to both sensor feeds; each emission from either
// feed triggers a re-detection over the freshest cached evidence from the
// other. Starting while a session runs is a no-op.
func (s *detectionService) StartContinuous(ctx context.Context, emit func(*entity.DetectionResult)) error {
	s.mu.Lock()
	if s.sess != nil {
		s.mu.Unlock()

		return nil
	}
	// Reserve the slot before subscribing so a concurrent start backs off.
	s.sess = &detectionSession{}
	s.mu.Unlock()

	posSub, err := s.positionSvc.Watch(ctx, func(fix service.PositionFix) {
		s.mu.Lock()
		s.lastFix = &fix
		s.mu.Unlock()
		s.tick(ctx, emit)
	})
	if err != nil {
		s.mu.Lock()
		s.sess = nil
		s.mu.Unlock()

		return fmt.Errorf("failed to watch position: %w", err)
	}

	var wifiSub service.Subscription
	if s.wirelessSvc.Supported() {
		wifiSub, err = s.wirelessSvc.Watch(ctx, func(observed []entity.ObservedNetwork) {
			s.mu.Lock()
			s.lastObserved = observed
			s.mu.Unlock()
			s.tick(ctx, emit)
		})
		if err != nil {
			// Position-only detection continues without wireless evidence.
			s.logger.Warn("Wireless watch unavailable, continuing position-only",
				slog.Any("error", err),
			)
			wifiSub = nil
		}
	}

	s.mu.Lock()
	s.sess.posSub = posSub
	s.sess.wifiSub = wifiSub
	s.mu.Unlock()

	return nil
}

// Stop ends the continuous session. The sensor subscriptions guarantee no
// callback after Cancel returns, so no emit fires after Stop returns.
func (s *detectionService) Stop() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		return
	}
	if sess.posSub != nil {
		sess.posSub.Cancel()
	}
	if sess.wifiSub != nil {
		sess.wifiSub.Cancel()
	}
}

// NearbyStores lists candidate stores around a point, closest first.
func (s *detectionService) NearbyStores(ctx context.Context, center entity.GeoPoint, radiusMeters float64) ([]*entity.StoreCandidate, error) {
	if radiusMeters <= 0 {
		radiusMeters = s.config.NearbySearchRadiusMeters
	}

	stores, err := s.storeRepo.FindNearbyStores(ctx, center, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby stores: %w", err)
	}

	return s.rankCandidates(center, stores), nil
}

// tick runs one continuous-detection pass over the cached evidence.
func (s *detectionService) tick(ctx context.Context, emit func(*entity.DetectionResult)) {
	tickCtx, cancel := context.WithTimeout(ctx, s.config.TickTimeout)
	defer cancel()

	s.mu.Lock()
	fix := s.lastFix
	observed := s.lastObserved
	s.mu.Unlock()

	candidates, err := s.candidatesFor(tickCtx, fix)
	if err != nil {
		s.logger.Warn("Candidate query failed, skipping detection tick",
			slog.Any("error", err),
		)

		return
	}

	s.mu.Lock()
	s.lastCandidates = candidates
	s.mu.Unlock()

	matches := s.wirelessSvc.MatchToStores(observed, candidates)
	result := s.fuse(tickCtx, fix, candidates, matches, s.positionSvc.CheckPermission(tickCtx))

	// Only a change of detected store is worth an event; ticks fire on
	// every sensor emission.
	s.mu.Lock()
	changed := result.StoreID() != s.lastPublishedID
	if result.Store == nil {
		// A lost store rearms the detected event for re-entry.
		s.lastPublishedID = uuid.Nil
	}
	s.mu.Unlock()
	if changed {
		s.publishEvent(tickCtx, service.EventStoreDetected, result)
	}

	emit(result)
}

// fuse combines geofence/position evidence with wireless evidence into a
// single detection. Agreeing signals reinforce each other; disagreeing ones
// resolve by geofence containment first, then confidence, with ties going to
// the position evidence.
func (s *detectionService) fuse(
	ctx context.Context,
	fix *service.PositionFix,
	candidates []*entity.Store,
	wireless []*entity.WirelessMatch,
	permission entity.PermissionStatus,
) *entity.DetectionResult {
	var posStore *entity.Store
	var posMatch entity.GeofenceMatch
	posMethod := entity.MethodPosition

	if fix != nil && len(candidates) > 0 {
		if inside, match, ok := s.engine.FindBestMatch(fix.Point, candidates); ok {
			posStore, posMatch = inside, match
			posMethod = entity.MethodGeofence
		} else {
			// Candidates arrive closest first.
			posStore = candidates[0]
			posMatch = s.engine.MatchDetails(fix.Point, candidates[0])
		}
	}

	var wifi *entity.WirelessMatch
	if len(wireless) > 0 {
		wifi = wireless[0]
	}

	result := &entity.DetectionResult{
		Method:     entity.MethodPosition,
		Permission: permission,
		DetectedAt: time.Now(),
	}

	switch {
	case posStore == nil && wifi == nil:
		// No evidence at all; the caller falls back to nearby candidates.
	case wifi == nil:
		result.Store = posStore
		result.Confidence = posMatch.Confidence
		result.Method = posMethod
	case posStore == nil:
		result.Store = wifi.Store
		result.Confidence = wifi.Confidence
		result.Method = entity.MethodWireless
	case posStore.ID == wifi.Store.ID:
		result.Store = posStore
		result.Confidence = max(posMatch.Confidence, wifi.Confidence)
		result.Method = entity.MethodWireless
		if posMatch.Inside {
			result.Method = entity.MethodGeofence
		}
	case posMatch.Inside:
		result.Store = posStore
		result.Confidence = posMatch.Confidence
		result.Method = entity.MethodGeofence
	case wifi.Confidence > posMatch.Confidence:
		result.Store = wifi.Store
		result.Confidence = wifi.Confidence
		result.Method = entity.MethodWireless
	default:
		result.Store = posStore
		result.Confidence = posMatch.Confidence
		result.Method = posMethod
	}

	if fix != nil && result.Store != nil {
		details := s.engine.MatchDetails(fix.Point, result.Store)
		result.DistanceMeters = &details.DistanceMeters
		result.InsideGeofence = &details.Inside
	}

	if result.Store == nil || result.Confidence < s.config.LowConfidenceThreshold {
		if fix != nil {
			result.NearbyStores = s.rankCandidates(fix.Point, candidates)
		}
	}

	result.RequiresConfirmation = result.Store != nil && !s.isConfirmed(ctx, result.Store.ID)

	return result
}

// candidatesFor returns the candidate stores around the fix, memoized per
// quantized position. Without a fix the previous candidate set is reused so
// wireless evidence can still resolve to a store.
func (s *detectionService) candidatesFor(ctx context.Context, fix *service.PositionFix) ([]*entity.Store, error) {
	if fix == nil {
		s.mu.Lock()
		defer s.mu.Unlock()

		return s.lastCandidates, nil
	}

	key := candidateCacheKey(fix.Point)
	if cached, ok := s.candidateCache.Get(key); ok {
		return cached.([]*entity.Store), nil
	}

	stores, err := s.storeRepo.FindNearbyStores(ctx, fix.Point, s.config.NearbySearchRadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby stores: %w", err)
	}
	s.candidateCache.SetDefault(key, stores)

	return stores, nil
}

// rankCandidates scores stores against the query point, preserving the
// repository's closest-first ordering.
func (s *detectionService) rankCandidates(point entity.GeoPoint, stores []*entity.Store) []*entity.StoreCandidate {
	candidates := make([]*entity.StoreCandidate, 0, len(stores))
	for _, store := range stores {
		details := s.engine.MatchDetails(point, store)
		candidates = append(candidates, &entity.StoreCandidate{
			Store:          store,
			DistanceMeters: details.DistanceMeters,
			Confidence:     details.Confidence,
		})
	}

	return candidates
}

// isConfirmed reports whether the store was ever confirmed, loading the
// persisted set on first use.
func (s *detectionService) isConfirmed(ctx context.Context, storeID uuid.UUID) bool {
	s.ensureConfirmedLoaded(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.confirmed[storeID]

	return ok
}

// ensureConfirmedLoaded seeds the in-memory ever-confirmed set from the
// repository once per service lifetime. A load failure logs and leaves the
// set empty; the worst case is asking the user to confirm again.
func (s *detectionService) ensureConfirmedLoaded(ctx context.Context) {
	s.mu.Lock()
	if s.confirmedLoaded {
		s.mu.Unlock()

		return
	}
	s.confirmedLoaded = true
	s.mu.Unlock()

	ids, err := s.confirmationRepo.LoadConfirmedStoreIDs(ctx)
	if err != nil {
		s.logger.Warn("Failed to load confirmed stores, starting with an empty set",
			slog.Any("error", err),
		)

		return
	}

	s.mu.Lock()
	for _, id := range ids {
		s.confirmed[id] = struct{}{}
	}
	s.mu.Unlock()
}

// publishEvent emits an analytics event. Best-effort: failures are logged
// and never surface to the detection caller.
func (s *detectionService) publishEvent(ctx context.Context, eventType string, result *entity.DetectionResult) {
	if result.Store == nil {
		return
	}

	event := &service.DetectionEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		EventType:  eventType,
		StoreID:    result.Store.ID.String(),
		StoreName:  result.Store.Name,
		Chain:      result.Store.Chain,
		Method:     string(result.Method),
		Confidence: result.Confidence,
		OccurredAt: result.DetectedAt,
	}
	if result.DistanceMeters != nil {
		event.Latitude = result.Store.Location.Latitude
		event.Longitude = result.Store.Location.Longitude
	}

	if err := s.publisher.PublishDetectionEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish detection event",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)

		return
	}

	s.mu.Lock()
	s.lastPublishedID = result.Store.ID
	s.mu.Unlock()
}

// candidateCacheKey quantizes a position to roughly an 11-meter cell so
// close-by fixes share one candidate query.
func candidateCacheKey(point entity.GeoPoint) string {
	return fmt.Sprintf("%.4f:%.4f", point.Latitude, point.Longitude)
}
