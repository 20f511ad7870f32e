package main

import (
	"context"
	"log/slog"
	"os"

	"storefinder/config"
	"storefinder/internal/delivery"
	"storefinder/internal/delivery/http"
	"storefinder/internal/delivery/http/router/handler"
	"storefinder/internal/domain/entity"
	"storefinder/internal/geofence"
	logs "storefinder/internal/infra/log"
	"storefinder/internal/infra/persistence/postgres"
	"storefinder/internal/infra/position"
	"storefinder/internal/infra/pubsub"
	"storefinder/internal/infra/wireless"
	"storefinder/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewStoreRepository,
			postgres.NewConfirmationRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		pubsub.Module,
		fx.Provide(
			newGeofenceEngine,
			newPositionSource,
			position.NewService,
			newScanner,
			wireless.NewService,
		),
	)
}

// newGeofenceEngine maps the detection thresholds onto the scoring engine.
func newGeofenceEngine(cfg *config.Config) *geofence.Engine {
	det := cfg.Detection
	if det == nil {
		return geofence.NewEngine(geofence.DefaultConfig())
	}

	bands := make([]geofence.ConfidenceBand, 0, len(det.DistanceBands))
	for _, band := range det.DistanceBands {
		bands = append(bands, geofence.ConfidenceBand{
			MaxMeters:  band.MaxMeters,
			Confidence: band.Confidence,
		})
	}

	return geofence.NewEngine(geofence.Config{
		TightRadiusMeters:    det.TightRadiusMeters,
		Bands:                bands,
		FallbackConfidence:   det.FallbackConfidence,
		BigBoxRadiusMeters:   det.BigBoxRadiusMeters,
		PharmacyRadiusMeters: det.PharmacyRadiusMeters,
		MaxDistanceMeters:    det.MaxDistanceMeters,
	})
}

// newPositionSource provides the positioning adapter. The server binary runs
// the deterministic simulator; embedded builds swap in the device adapter.
func newPositionSource() position.Source {
	return position.NewSimSource(entity.GeoPoint{})
}

// newScanner provides the wireless-scan adapter, simulated for the same
// reason as the position source.
func newScanner() wireless.Scanner {
	return wireless.NewSimScanner()
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewDetectionService,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewDetectionHandler,
			handler.NewStoreHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
