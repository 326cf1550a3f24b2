package compliance

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

// CategoryCount is one row of a grouped count query.
type CategoryCount struct {
	Category types.Category
	Count    int64
}

// ViolationRepo reads the violation store. Ingest exists for the ingestion
// job's write path (and fixtures); the engine itself never mutates
// violations.
type ViolationRepo interface {
	Ingest(dbc dbctx.Context, violations []*types.Violation) error
	GetByKey(dbc dbctx.Context, reportID uuid.UUID, category types.Category, externalID string) (*types.Violation, error)
	ListByReportCategory(dbc dbctx.Context, reportID uuid.UUID, category types.Category) ([]*types.Violation, error)
	CountByReportGrouped(dbc dbctx.Context, reportID uuid.UUID) ([]CategoryCount, error)
}

type violationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewViolationRepo(db *gorm.DB, baseLog *logger.Logger) ViolationRepo {
	return &violationRepo{db: db, log: baseLog.With("repo", "ViolationRepo")}
}

func (r *violationRepo) Ingest(dbc dbctx.Context, violations []*types.Violation) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(violations) == 0 {
		return nil
	}
	for _, v := range violations {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
	}
	// Re-running the ingestion job must not duplicate findings.
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "report_id"}, {Name: "category"}, {Name: "external_violation_id"}},
			DoNothing: true,
		}).
		CreateInBatches(&violations, 200).Error
}

func (r *violationRepo) GetByKey(dbc dbctx.Context, reportID uuid.UUID, category types.Category, externalID string) (*types.Violation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var v types.Violation
	if err := t.WithContext(dbc.Ctx).
		Where("report_id = ? AND category = ? AND external_violation_id = ?", reportID, category, externalID).
		First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *violationRepo) ListByReportCategory(dbc dbctx.Context, reportID uuid.UUID, category types.Category) ([]*types.Violation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Violation
	if err := t.WithContext(dbc.Ctx).
		Where("report_id = ? AND category = ?", reportID, category).
		Order("external_violation_id").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *violationRepo) CountByReportGrouped(dbc dbctx.Context, reportID uuid.UUID) ([]CategoryCount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []CategoryCount
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Violation{}).
		Select("category, COUNT(*) AS count").
		Where("report_id = ?", reportID).
		Group("category").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
