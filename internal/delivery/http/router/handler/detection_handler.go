package handler

import (
	"log/slog"
	"net/http"

	deliverycontext "storefinder/internal/delivery/context"
	"storefinder/internal/delivery/http/response"
	domainerrors "storefinder/internal/domain/errors"
	"storefinder/internal/domain/repository"
	"storefinder/internal/domain/service"
	"storefinder/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// DetectionHandlerParams holds dependencies for DetectionHandler, injected by Fx.
type DetectionHandlerParams struct {
	fx.In

	DetectionUC usecase.DetectionUsecase
	Logger      *slog.Logger
}

// DetectionHandler holds dependencies for detection-related handlers
type DetectionHandler struct {
	detectionUC usecase.DetectionUsecase
	logger      *slog.Logger
}

// NewDetectionHandler is the constructor for DetectionHandler
func NewDetectionHandler(params DetectionHandlerParams) *DetectionHandler {
	return &DetectionHandler{
		detectionUC: params.DetectionUC,
		logger:      params.Logger,
	}
}

// StoreSelectionRequest carries the store a user confirmed or chose.
type StoreSelectionRequest struct {
	StoreID string `json:"store_id" validate:"required,uuid"`
}

// Detect runs a single detection pass over the current signals.
func (h *DetectionHandler) Detect(c echo.Context) error {
	ctx := deliverycontext.WithRequestID(c.Request().Context(), deliverycontext.GetRequestID(c))

	result, err := h.detectionUC.DetectOnce(ctx)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, result, "Detection completed")
}

// Confirm records that the user accepted the detected store.
func (h *DetectionHandler) Confirm(c echo.Context) error {
	storeID, err := h.bindStoreID(c)
	if err != nil {
		return err
	}

	ctx := deliverycontext.WithRequestID(c.Request().Context(), deliverycontext.GetRequestID(c))
	if err := h.detectionUC.ConfirmStore(ctx, storeID); err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"store_id": storeID.String()}, "Store confirmed")
}

// Select records an explicit user store choice and returns the resulting
// detection.
func (h *DetectionHandler) Select(c echo.Context) error {
	storeID, err := h.bindStoreID(c)
	if err != nil {
		return err
	}

	ctx := deliverycontext.WithRequestID(c.Request().Context(), deliverycontext.GetRequestID(c))
	result, err := h.detectionUC.SelectManually(ctx, storeID)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, result, "Store selected")
}

// bindStoreID parses the selection request body.
func (h *DetectionHandler) bindStoreID(c echo.Context) (uuid.UUID, error) {
	var req StoreSelectionRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, response.BindingError(c, "INVALID_INPUT", "Invalid selection input")
	}
	if err := c.Validate(&req); err != nil {
		return uuid.Nil, response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return uuid.Nil, response.BadRequest(c, "INVALID_ID", "Invalid store ID")
	}

	return storeID, nil
}

// handleAppError maps domain errors onto HTTP responses.
func (h *DetectionHandler) handleAppError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrStoreNotFound):
		return response.NotFound(c, domainerrors.ErrStoreNotFound.ErrorCode(), domainerrors.ErrStoreNotFound.Message())
	case errors.Is(err, service.ErrPermissionDenied):
		return response.Error(c, domainerrors.ErrPositionPermissionDenied.HTTPCode(),
			domainerrors.ErrPositionPermissionDenied.ErrorCode(), domainerrors.ErrPositionPermissionDenied.Message(), "")
	case errors.Is(err, service.ErrPermissionBlocked):
		return response.Error(c, domainerrors.ErrPositionPermissionBlocked.HTTPCode(),
			domainerrors.ErrPositionPermissionBlocked.ErrorCode(), domainerrors.ErrPositionPermissionBlocked.Message(), "")
	case errors.Is(err, service.ErrPositionUnavailable):
		return response.Error(c, domainerrors.ErrPositionUnavailable.HTTPCode(),
			domainerrors.ErrPositionUnavailable.ErrorCode(), domainerrors.ErrPositionUnavailable.Message(), "")
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
	}

	return errors.WithStack(err)
}
