package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/propplyai/compliance-backend/internal/data/repos"
	"github.com/propplyai/compliance-backend/internal/data/repos/compliance"
	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/apierr"
	"github.com/propplyai/compliance-backend/internal/platform/ctxutil"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

// DismissResult is returned by every ledger mutation. AlreadyDismissed is a
// success outcome: repeating an operation never errors and never changes
// state a second time.
type DismissResult struct {
	AlreadyDismissed bool
	Counts           *ReportCounts
}

type DismissViolationInput struct {
	ReportID    uuid.UUID
	Category    types.Category
	ViolationID string
	Payload     datatypes.JSON
	Reason      string
}

// DismissalService is the write surface of the engine. Every operation is
// one transaction: report row lock, ledger mutation, cascade where
// applicable, score recalculation. If any step fails the whole mutation
// rolls back, so the persisted aggregates never drift from the ledger.
type DismissalService interface {
	DismissSection(ctx context.Context, reportID uuid.UUID, category types.Category) (*DismissResult, error)
	RestoreSection(ctx context.Context, reportID uuid.UUID, category types.Category) (*DismissResult, error)
	DismissViolation(ctx context.Context, in DismissViolationInput) (*DismissResult, error)
	RestoreViolation(ctx context.Context, reportID uuid.UUID, category types.Category, violationID string) (*DismissResult, error)
}

type dismissalService struct {
	db                  *gorm.DB
	log                 *logger.Logger
	score               ScoreService
	reports             repos.ReportRepo
	violations          repos.ViolationRepo
	dismissedSections   repos.DismissedSectionRepo
	dismissedViolations repos.DismissedViolationRepo
}

func NewDismissalService(
	db *gorm.DB,
	log *logger.Logger,
	score ScoreService,
	reports repos.ReportRepo,
	violations repos.ViolationRepo,
	dismissedSections repos.DismissedSectionRepo,
	dismissedViolations repos.DismissedViolationRepo,
) DismissalService {
	return &dismissalService{
		db:                  db,
		log:                 log.With("service", "DismissalService"),
		score:               score,
		reports:             reports,
		violations:          violations,
		dismissedSections:   dismissedSections,
		dismissedViolations: dismissedViolations,
	}
}

func (s *dismissalService) DismissSection(ctx context.Context, reportID uuid.UUID, category types.Category) (*DismissResult, error) {
	user, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	result := &DismissResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		if err := s.lockReport(dbc, reportID, category); err != nil {
			return err
		}

		already, err := s.dismissedSections.Insert(dbc, &types.DismissedSection{
			ReportID:    reportID,
			Category:    category,
			DismissedBy: user,
		})
		if err != nil {
			return wrapPersistence(err, "dismiss section")
		}
		result.AlreadyDismissed = already

		// Cascade runs on every call, not just the first: the bulk insert
		// skips existing keys, so a repeat is a no-op, and any violation the
		// feed added since the first dismissal gets covered.
		if category.ItemLevel() {
			if err := s.cascadeSection(dbc, reportID, category, user); err != nil {
				return err
			}
		}

		counts, err := s.score.Recalculate(dbc, reportID)
		if err != nil {
			return err
		}
		result.Counts = counts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Section dismissed",
		"report_id", reportID.String(),
		"category", string(category),
		"already_dismissed", result.AlreadyDismissed,
	)
	return result, nil
}

func (s *dismissalService) RestoreSection(ctx context.Context, reportID uuid.UUID, category types.Category) (*DismissResult, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, err
	}

	result := &DismissResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		if err := s.lockReport(dbc, reportID, category); err != nil {
			return err
		}

		// Only the section flag goes away. Violations dismissed through the
		// cascade (or individually) stay dismissed until restored one by
		// one; the ledger of individual suppressions is the source of truth.
		if err := s.dismissedSections.Delete(dbc, reportID, category); err != nil {
			return wrapPersistence(err, "restore section")
		}

		counts, err := s.score.Recalculate(dbc, reportID)
		if err != nil {
			return err
		}
		result.Counts = counts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Section restored", "report_id", reportID.String(), "category", string(category))
	return result, nil
}

func (s *dismissalService) DismissViolation(ctx context.Context, in DismissViolationInput) (*DismissResult, error) {
	user, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if in.ViolationID == "" {
		return nil, apierr.Validation("missing_violation_id", fmt.Errorf("violation id is required"))
	}
	if !in.Category.ItemLevel() {
		return nil, apierr.Validation("category_not_item_level",
			fmt.Errorf("category %s only supports section-level dismissal", in.Category))
	}

	result := &DismissResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		if err := s.lockReport(dbc, in.ReportID, in.Category); err != nil {
			return err
		}

		violation, err := s.violations.GetByKey(dbc, in.ReportID, in.Category, in.ViolationID)
		if err != nil {
			return wrapPersistence(err, "load violation")
		}
		if violation == nil {
			// A ledger row with no backing violation would corrupt the
			// active-count arithmetic.
			return apierr.NotFound("violation_not_found",
				fmt.Errorf("violation %s not found in %s/%s", in.ViolationID, in.ReportID, in.Category))
		}

		payload := in.Payload
		if len(payload) == 0 {
			payload = violation.Payload
		}
		reason := in.Reason
		if reason == "" {
			reason = "dismissed by owner"
		}

		already, err := s.dismissedViolations.Insert(dbc, &types.DismissedViolation{
			ReportID:            in.ReportID,
			Category:            in.Category,
			ExternalViolationID: in.ViolationID,
			DismissedBy:         user,
			Reason:              reason,
			Payload:             payload,
		})
		if err != nil {
			return wrapPersistence(err, "dismiss violation")
		}
		result.AlreadyDismissed = already

		counts, err := s.score.Recalculate(dbc, in.ReportID)
		if err != nil {
			return err
		}
		result.Counts = counts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Violation dismissed",
		"report_id", in.ReportID.String(),
		"category", string(in.Category),
		"violation_id", in.ViolationID,
		"already_dismissed", result.AlreadyDismissed,
	)
	return result, nil
}

func (s *dismissalService) RestoreViolation(ctx context.Context, reportID uuid.UUID, category types.Category, violationID string) (*DismissResult, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, err
	}
	if violationID == "" {
		return nil, apierr.Validation("missing_violation_id", fmt.Errorf("violation id is required"))
	}
	if !category.ItemLevel() {
		return nil, apierr.Validation("category_not_item_level",
			fmt.Errorf("category %s only supports section-level dismissal", category))
	}

	result := &DismissResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		if err := s.lockReport(dbc, reportID, category); err != nil {
			return err
		}

		if err := s.dismissedViolations.Delete(dbc, reportID, category, violationID); err != nil {
			return wrapPersistence(err, "restore violation")
		}

		counts, err := s.score.Recalculate(dbc, reportID)
		if err != nil {
			return err
		}
		result.Counts = counts
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Violation restored",
		"report_id", reportID.String(),
		"category", string(category),
		"violation_id", violationID,
	)
	return result, nil
}

// lockReport pins the report row for the duration of the transaction and
// rejects category/city mismatches before any ledger write.
func (s *dismissalService) lockReport(dbc dbctx.Context, reportID uuid.UUID, category types.Category) error {
	report, err := s.reports.GetByIDForUpdate(dbc, reportID)
	if err != nil {
		return wrapPersistence(err, "lock report")
	}
	if report == nil {
		return apierr.NotFound("report_not_found", fmt.Errorf("report %s not found", reportID))
	}
	if category.City() != report.City {
		return apierr.Validation("category_city_mismatch",
			fmt.Errorf("category %s does not apply to a %s report", category, report.City))
	}
	return nil
}

func (s *dismissalService) cascadeSection(dbc dbctx.Context, reportID uuid.UUID, category types.Category, user uuid.UUID) error {
	violations, err := s.violations.ListByReportCategory(dbc, reportID, category)
	if err != nil {
		return wrapPersistence(err, "list violations for cascade")
	}
	rows := make([]*types.DismissedViolation, 0, len(violations))
	for _, v := range violations {
		rows = append(rows, &types.DismissedViolation{
			ReportID:            reportID,
			Category:            category,
			ExternalViolationID: v.ExternalViolationID,
			DismissedBy:         user,
			Reason:              types.ReasonSectionDismissal,
			Payload:             v.Payload,
		})
	}
	if err := s.dismissedViolations.InsertSkipConflicts(dbc, rows); err != nil {
		return wrapPersistence(err, "cascade section dismissal")
	}
	return nil
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("caller identity not set"))
	}
	return rd.UserID, nil
}

func wrapPersistence(err error, op string) error {
	if compliance.IsForeignKeyViolation(err) {
		return apierr.NotFound("report_not_found", fmt.Errorf("%s: %w", op, err))
	}
	return apierr.Internal("persistence_error", fmt.Errorf("%s: %w", op, err))
}
