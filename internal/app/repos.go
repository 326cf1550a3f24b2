package app

import (
	"gorm.io/gorm"

	"github.com/propplyai/compliance-backend/internal/data/repos"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

type Repos struct {
	Report              repos.ReportRepo
	ReportCategoryCount repos.ReportCategoryCountRepo
	Violation           repos.ViolationRepo
	DismissedSection    repos.DismissedSectionRepo
	DismissedViolation  repos.DismissedViolationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Report:              repos.NewReportRepo(db, log),
		ReportCategoryCount: repos.NewReportCategoryCountRepo(db, log),
		Violation:           repos.NewViolationRepo(db, log),
		DismissedSection:    repos.NewDismissedSectionRepo(db, log),
		DismissedViolation:  repos.NewDismissedViolationRepo(db, log),
	}
}
