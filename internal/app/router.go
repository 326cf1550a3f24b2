package app

import (
	"github.com/gin-gonic/gin"

	"github.com/propplyai/compliance-backend/internal/platform/logger"
	"github.com/propplyai/compliance-backend/internal/server"
)

func wireRouter(log *logger.Logger, handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:              log,
		AuthMiddleware:   middlewareset.Auth,
		HealthHandler:    handlerset.Health,
		DismissalHandler: handlerset.Dismissal,
		ReportHandler:    handlerset.Report,
	})
}
