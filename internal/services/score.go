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

// CategoryCounts is the derived view of one report category.
type CategoryCounts struct {
	Category         types.Category `json:"category"`
	TotalCount       int            `json:"total_count"`
	ActiveCount      int            `json:"active_count"`
	DismissedCount   int            `json:"dismissed_count"`
	SectionDismissed bool           `json:"section_dismissed"`
}

// ReportCounts bundles the per-category counts with the overall score.
type ReportCounts struct {
	ReportID        uuid.UUID        `json:"report_id"`
	ComplianceScore float64          `json:"compliance_score"`
	Categories      []CategoryCounts `json:"categories"`
}

// ScoreService recomputes and persists report aggregates. The ledger invokes
// it inside the same transaction as every mutation, so the persisted counts
// can never drift from the per-violation dismissal records.
type ScoreService interface {
	// Recalculate derives active/dismissed counts and the compliance score
	// from the violation store and the ledger, persists them, and returns
	// the fresh view. Must be called with dbc.Tx set; a failure here is
	// meant to roll back the caller's whole transaction.
	Recalculate(dbc dbctx.Context, reportID uuid.UUID) (*ReportCounts, error)
}

type scoreService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	policy              ScorePolicy
	reports             repos.ReportRepo
	counts              repos.ReportCategoryCountRepo
	violations          repos.ViolationRepo
	dismissedSections   repos.DismissedSectionRepo
	dismissedViolations repos.DismissedViolationRepo
}

func NewScoreService(
	db *gorm.DB,
	log *logger.Logger,
	policy ScorePolicy,
	reports repos.ReportRepo,
	counts repos.ReportCategoryCountRepo,
	violations repos.ViolationRepo,
	dismissedSections repos.DismissedSectionRepo,
	dismissedViolations repos.DismissedViolationRepo,
) ScoreService {
	return &scoreService{
		db:                  db,
		log:                 log.With("service", "ScoreService"),
		policy:              policy,
		reports:             reports,
		counts:              counts,
		violations:          violations,
		dismissedSections:   dismissedSections,
		dismissedViolations: dismissedViolations,
	}
}

func (s *scoreService) Recalculate(dbc dbctx.Context, reportID uuid.UUID) (*ReportCounts, error) {
	if dbc.Tx == nil {
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("recalculate requires a transaction"))
	}

	report, err := s.reports.GetByID(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("load report: %w", err))
	}
	if report == nil {
		// Report vanished mid-operation; the caller's mutation rolls back.
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("report %s no longer exists", reportID))
	}

	totals, err := s.violations.CountByReportGrouped(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("count violations: %w", err))
	}
	dismissed, err := s.dismissedViolations.CountByReportGrouped(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("count dismissed violations: %w", err))
	}
	sections, err := s.dismissedSections.ListByReport(dbc, reportID)
	if err != nil {
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("list dismissed sections: %w", err))
	}

	totalBy := make(map[types.Category]int, len(totals))
	for _, row := range totals {
		totalBy[row.Category] = int(row.Count)
	}
	dismissedBy := make(map[types.Category]int, len(dismissed))
	for _, row := range dismissed {
		dismissedBy[row.Category] = int(row.Count)
	}
	sectionBy := make(map[types.Category]bool, len(sections))
	for _, row := range sections {
		sectionBy[row.Category] = true
	}

	cityCategories := types.CategoriesForCity(report.City)
	out := &ReportCounts{ReportID: reportID, Categories: make([]CategoryCounts, 0, len(cityCategories))}
	rows := make([]*types.ReportCategoryCount, 0, len(cityCategories))
	active := make(map[types.Category]int, len(cityCategories))

	for _, category := range cityCategories {
		total := totalBy[category]
		var dis int
		if category.ItemLevel() {
			// Violation-level ledger rows are the source of truth; the
			// section flag is display-only for these categories.
			dis = dismissedBy[category]
			if dis > total {
				return nil, apierr.Internal("recalculation_failed",
					fmt.Errorf("category %s: %d dismissals exceed %d violations", category, dis, total))
			}
		} else if sectionBy[category] {
			// Section-only feeds have no per-item identity: the flag
			// suppresses the whole category.
			dis = total
		}

		counts := CategoryCounts{
			Category:         category,
			TotalCount:       total,
			ActiveCount:      total - dis,
			DismissedCount:   dis,
			SectionDismissed: sectionBy[category],
		}
		out.Categories = append(out.Categories, counts)
		active[category] = counts.ActiveCount
		rows = append(rows, &types.ReportCategoryCount{
			ReportID:       reportID,
			Category:       category,
			TotalCount:     counts.TotalCount,
			ActiveCount:    counts.ActiveCount,
			DismissedCount: counts.DismissedCount,
		})
	}

	out.ComplianceScore = s.policy.Score(report.City, active)

	if err := s.counts.UpsertCounts(dbc, rows); err != nil {
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("persist counts: %w", err))
	}
	if err := s.reports.UpdateScore(dbc, reportID, out.ComplianceScore); err != nil {
		return nil, apierr.Internal("recalculation_failed", fmt.Errorf("persist score: %w", err))
	}

	return out, nil
}
