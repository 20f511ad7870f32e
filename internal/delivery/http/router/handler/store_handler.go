package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefinder/internal/delivery/http/response"
	"storefinder/internal/domain/entity"
	domainerrors "storefinder/internal/domain/errors"
	"storefinder/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// StoreHandlerParams holds dependencies for StoreHandler, injected by Fx.
type StoreHandlerParams struct {
	fx.In

	DetectionUC usecase.DetectionUsecase
	Logger      *slog.Logger
}

// StoreHandler holds dependencies for store-related handlers
type StoreHandler struct {
	detectionUC usecase.DetectionUsecase
	logger      *slog.Logger
}

// NewStoreHandler is the constructor for StoreHandler
func NewStoreHandler(params StoreHandlerParams) *StoreHandler {
	return &StoreHandler{
		detectionUC: params.DetectionUC,
		logger:      params.Logger,
	}
}

// NearbyStores lists candidate stores around a point, closest first.
func (h *StoreHandler) NearbyStores(c echo.Context) error {
	latitude, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil || latitude < -90 || latitude > 90 {
		return response.BadRequest(c, "INVALID_COORDINATES", "Query parameter 'lat' must be a latitude")
	}
	longitude, err := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err != nil || longitude < -180 || longitude > 180 {
		return response.BadRequest(c, "INVALID_COORDINATES", "Query parameter 'lng' must be a longitude")
	}

	var radiusMeters float64
	if raw := c.QueryParam("radius"); raw != "" {
		radiusMeters, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusMeters < 0 {
			return response.BadRequest(c, "INVALID_RADIUS", "Query parameter 'radius' must be a non-negative number of meters")
		}
	}

	center := entity.GeoPoint{Latitude: latitude, Longitude: longitude}
	candidates, err := h.detectionUC.NearbyStores(c.Request().Context(), center, radiusMeters)
	if err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
		}

		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, candidates, "Nearby stores retrieved")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
