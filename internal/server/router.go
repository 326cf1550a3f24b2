package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/propplyai/compliance-backend/internal/http/handlers"
	"github.com/propplyai/compliance-backend/internal/http/middleware"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	AuthMiddleware   *middleware.AuthMiddleware
	HealthHandler    *handlers.HealthHandler
	DismissalHandler *handlers.DismissalHandler
	ReportHandler    *handlers.ReportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(otelgin.Middleware("compliance-backend"))
	router.Use(middleware.AttachTraceContext())
	router.Use(middleware.RequestLogger(cfg.Log))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Dismissal ledger
	protected.POST("/dismiss-section", cfg.DismissalHandler.DismissSection)
	protected.POST("/restore-section", cfg.DismissalHandler.RestoreSection)
	protected.POST("/dismiss-violation", cfg.DismissalHandler.DismissViolation)
	protected.POST("/restore-violation", cfg.DismissalHandler.RestoreViolation)

	// Report facade
	protected.GET("/dismissed-sections", cfg.ReportHandler.GetDismissedSections)
	protected.GET("/dismissed-violations", cfg.ReportHandler.GetDismissedViolations)
	protected.GET("/report-counts", cfg.ReportHandler.GetCounts)

	return router
}
