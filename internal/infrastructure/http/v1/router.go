// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reconcile"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool   *postgres.Pool
	Facade *reconcile.Facade
	Store  ledger.Store
	Logger *logger.Logger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints, no actor required
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	moveHandler := handlers.NewMoveHandler(cfg.Facade)
	returnHandler := handlers.NewReturnHandler(cfg.Facade)
	stockHandler := handlers.NewStockHandler(cfg.Store)

	api := router.Group("/api/v1")
	api.Use(middleware.Actor())
	{
		moves := api.Group("/moves")
		{
			moves.POST("", moveHandler.Create)
			moves.GET("", moveHandler.List)
			moves.GET("/:id", moveHandler.Get)
			moves.POST("/:id/confirm", moveHandler.Confirm)
			moves.POST("/:id/reject", moveHandler.Reject)
			moves.POST("/:id/complete", moveHandler.Complete)
		}

		returns := api.Group("/returns")
		{
			returns.POST("", returnHandler.Submit)
			returns.GET("/:id", returnHandler.Get)
		}

		stock := api.Group("/stock")
		{
			stock.GET("/balance", stockHandler.Balance)
			stock.GET("/entries", stockHandler.EntriesByReference)
			stock.GET("/products/:id/entries", stockHandler.History)
			stock.POST("/recalculate", stockHandler.Recalculate)
		}
	}

	return router
}
