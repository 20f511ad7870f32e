// Command geofenceaudit scans the store database for structurally invalid
// geofences and reports stores that would fall back to a generated default
// boundary. Data-quality tooling; it never mutates the database.
package main

import (
	"context"
	"log/slog"

	"storefinder/config"
	"storefinder/internal/domain/repository"
	"storefinder/internal/geofence"
	logs "storefinder/internal/infra/log"
	"storefinder/internal/infra/persistence/postgres"

	"go.uber.org/fx"
)

type auditParams struct {
	fx.In
	fx.Shutdowner

	Logger    *slog.Logger
	StoreRepo repository.StoreRepository
	Engine    *geofence.Engine
}

func main() {
	fx.New(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
			postgres.NewStoreRepository,
			func() *geofence.Engine { return geofence.NewEngine(geofence.DefaultConfig()) },
		),
		fx.Invoke(runAudit),
	).Run()
}

func runAudit(ctx context.Context, params auditParams) {
	logger := params.Logger

	stores, err := params.StoreRepo.ListStores(ctx)
	if err != nil {
		logger.Error("Failed to list stores", slog.Any("error", err))
		params.Shutdown(fx.ExitCode(1))

		return
	}

	issues := params.Engine.ValidateGeofences(stores)
	for _, issue := range issues {
		logger.Warn("Invalid geofence",
			slog.String("store_id", issue.StoreID.String()),
			slog.String("reason", issue.Reason),
		)
	}

	var missing int
	for _, store := range stores {
		if store.Geofence != nil {
			continue
		}
		missing++
		generated := params.Engine.GenerateDefaultGeofence(store)
		logger.Info("Store has no authored geofence, default would apply",
			slog.String("store_id", store.ID.String()),
			slog.String("name", store.Name),
			slog.String("class", string(store.Class)),
			slog.Float64("default_radius_meters", generated.RadiusMeters),
		)
	}

	logger.Info("Geofence audit complete",
		slog.Int("stores", len(stores)),
		slog.Int("invalid", len(issues)),
		slog.Int("missing", missing),
	)

	if len(issues) > 0 {
		params.Shutdown(fx.ExitCode(1))

		return
	}
	params.Shutdown()
}
