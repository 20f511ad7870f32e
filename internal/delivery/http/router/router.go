// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"storefinder/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	DetectionHandler *handler.DetectionHandler
	StoreHandler     *handler.StoreHandler
}

// router holds all the handlers that need to be registered.
type router struct {
	detectionHandler *handler.DetectionHandler
	storeHandler     *handler.StoreHandler
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		detectionHandler: params.DetectionHandler,
		storeHandler:     params.StoreHandler,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Detection routes
	detectionGroup := e.Group("/detection")
	{
		detectionGroup.POST("/detect", r.detectionHandler.Detect)
		detectionGroup.POST("/confirm", r.detectionHandler.Confirm)
		detectionGroup.POST("/select", r.detectionHandler.Select)
	}

	// Store routes
	storeGroup := e.Group("/stores")
	{
		storeGroup.GET("/nearby", r.storeHandler.NearbyStores)
	}
}
