package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propplyai/compliance-backend/internal/data/repos"
	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/apierr"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

// ReportService is the read facade. It serves only committed state - the
// counts and score persisted by the most recent recalculation - with no
// cache in front, since stale numbers here would misstate compliance risk.
type ReportService interface {
	GetDismissedSections(dbc dbctx.Context, reportID uuid.UUID) ([]*types.DismissedSection, error)
	GetDismissedViolations(dbc dbctx.Context, reportID uuid.UUID, category *types.Category) ([]*types.DismissedViolation, error)
	GetCounts(dbc dbctx.Context, reportID uuid.UUID) (*ReportCounts, error)
}

type reportService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	reports             repos.ReportRepo
	counts              repos.ReportCategoryCountRepo
	dismissedSections   repos.DismissedSectionRepo
	dismissedViolations repos.DismissedViolationRepo
}

func NewReportService(
	db *gorm.DB,
	log *logger.Logger,
	reports repos.ReportRepo,
	counts repos.ReportCategoryCountRepo,
	dismissedSections repos.DismissedSectionRepo,
	dismissedViolations repos.DismissedViolationRepo,
) ReportService {
	return &reportService{
		db:                  db,
		log:                 log.With("service", "ReportService"),
		reports:             reports,
		counts:              counts,
		dismissedSections:   dismissedSections,
		dismissedViolations: dismissedViolations,
	}
}

func (s *reportService) GetDismissedSections(dbc dbctx.Context, reportID uuid.UUID) ([]*types.DismissedSection, error) {
	if _, err := s.mustGetReport(dbc, reportID); err != nil {
		return nil, err
	}
	sections, err := s.dismissedSections.ListByReport(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("persistence_error", fmt.Errorf("list dismissed sections: %w", err))
	}
	return sections, nil
}

func (s *reportService) GetDismissedViolations(dbc dbctx.Context, reportID uuid.UUID, category *types.Category) ([]*types.DismissedViolation, error) {
	if _, err := s.mustGetReport(dbc, reportID); err != nil {
		return nil, err
	}
	violations, err := s.dismissedViolations.ListByReport(dbc, reportID, category)
	if err != nil {
		return nil, apierr.Internal("persistence_error", fmt.Errorf("list dismissed violations: %w", err))
	}
	return violations, nil
}

func (s *reportService) GetCounts(dbc dbctx.Context, reportID uuid.UUID) (*ReportCounts, error) {
	report, err := s.mustGetReport(dbc, reportID)
	if err != nil {
		return nil, err
	}
	rows, err := s.counts.GetByReportID(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("persistence_error", fmt.Errorf("load counts: %w", err))
	}
	sections, err := s.dismissedSections.ListByReport(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("persistence_error", fmt.Errorf("list dismissed sections: %w", err))
	}
	sectionBy := make(map[types.Category]bool, len(sections))
	for _, row := range sections {
		sectionBy[row.Category] = true
	}

	countBy := make(map[types.Category]*types.ReportCategoryCount, len(rows))
	for _, row := range rows {
		countBy[row.Category] = row
	}

	out := &ReportCounts{ReportID: reportID, ComplianceScore: report.ComplianceScore}
	for _, category := range types.CategoriesForCity(report.City) {
		counts := CategoryCounts{Category: category, SectionDismissed: sectionBy[category]}
		if row, ok := countBy[category]; ok {
			counts.TotalCount = row.TotalCount
			counts.ActiveCount = row.ActiveCount
			counts.DismissedCount = row.DismissedCount
		}
		out.Categories = append(out.Categories, counts)
	}
	return out, nil
}

func (s *reportService) mustGetReport(dbc dbctx.Context, reportID uuid.UUID) (*types.ComplianceReport, error) {
	report, err := s.reports.GetByID(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("persistence_error", fmt.Errorf("load report: %w", err))
	}
	if report == nil {
		return nil, apierr.NotFound("report_not_found", fmt.Errorf("report %s not found", reportID))
	}
	return report, nil
}
