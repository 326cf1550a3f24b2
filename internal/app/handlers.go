package app

import (
	"github.com/propplyai/compliance-backend/internal/http/handlers"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Dismissal *handlers.DismissalHandler
	Report    *handlers.ReportHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    handlers.NewHealthHandler(),
		Dismissal: handlers.NewDismissalHandler(log, serviceset.Dismissal),
		Report:    handlers.NewReportHandler(log, serviceset.Report),
	}
}
