package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/propplyai/compliance-backend/internal/platform/logger"
	"github.com/propplyai/compliance-backend/internal/services"
)

type Services struct {
	Score     services.ScoreService
	Dismissal services.DismissalService
	Report    services.ReportService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	policy, err := services.LoadScorePolicy(cfg.ScorePolicyPath)
	if err != nil {
		return Services{}, fmt.Errorf("load score policy: %w", err)
	}

	scoreService := services.NewScoreService(
		db,
		log,
		policy,
		reposet.Report,
		reposet.ReportCategoryCount,
		reposet.Violation,
		reposet.DismissedSection,
		reposet.DismissedViolation,
	)
	dismissalService := services.NewDismissalService(
		db,
		log,
		scoreService,
		reposet.Report,
		reposet.Violation,
		reposet.DismissedSection,
		reposet.DismissedViolation,
	)
	reportService := services.NewReportService(
		db,
		log,
		reposet.Report,
		reposet.ReportCategoryCount,
		reposet.DismissedSection,
		reposet.DismissedViolation,
	)

	return Services{
		Score:     scoreService,
		Dismissal: dismissalService,
		Report:    reportService,
	}, nil
}
