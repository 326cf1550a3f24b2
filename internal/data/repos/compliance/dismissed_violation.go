package compliance

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

type DismissedViolationRepo interface {
	// Insert records a single violation dismissal with idempotent-upsert
	// semantics: a conflicting key reports alreadyDismissed without touching
	// the existing row's audit fields.
	Insert(dbc dbctx.Context, row *types.DismissedViolation) (alreadyDismissed bool, err error)
	// InsertSkipConflicts bulk-inserts cascade rows. Keys already present
	// (dismissed individually or by an earlier cascade) are silently skipped
	// so their original audit trail survives.
	InsertSkipConflicts(dbc dbctx.Context, rows []*types.DismissedViolation) error
	// Delete restores one violation. Deleting a missing row is a no-op.
	Delete(dbc dbctx.Context, reportID uuid.UUID, category types.Category, externalID string) error
	ListByReport(dbc dbctx.Context, reportID uuid.UUID, category *types.Category) ([]*types.DismissedViolation, error)
	CountByReportGrouped(dbc dbctx.Context, reportID uuid.UUID) ([]CategoryCount, error)
}

type dismissedViolationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDismissedViolationRepo(db *gorm.DB, baseLog *logger.Logger) DismissedViolationRepo {
	return &dismissedViolationRepo{db: db, log: baseLog.With("repo", "DismissedViolationRepo")}
}

var dismissedViolationKey = []clause.Column{
	{Name: "report_id"},
	{Name: "category"},
	{Name: "external_violation_id"},
}

func (r *dismissedViolationRepo) Insert(dbc dbctx.Context, row *types.DismissedViolation) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   dismissedViolationKey,
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		if IsDuplicateKey(res.Error) {
			return true, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 0, nil
}

func (r *dismissedViolationRepo) InsertSkipConflicts(dbc dbctx.Context, rows []*types.DismissedViolation) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   dismissedViolationKey,
			DoNothing: true,
		}).
		CreateInBatches(&rows, 200).Error
}

func (r *dismissedViolationRepo) Delete(dbc dbctx.Context, reportID uuid.UUID, category types.Category, externalID string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Where("report_id = ? AND category = ? AND external_violation_id = ?", reportID, category, externalID).
		Delete(&types.DismissedViolation{}).Error
}

func (r *dismissedViolationRepo) ListByReport(dbc dbctx.Context, reportID uuid.UUID, category *types.Category) ([]*types.DismissedViolation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Where("report_id = ?", reportID)
	if category != nil {
		q = q.Where("category = ?", *category)
	}
	var out []*types.DismissedViolation
	if err := q.Order("category, external_violation_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dismissedViolationRepo) CountByReportGrouped(dbc dbctx.Context, reportID uuid.UUID) ([]CategoryCount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []CategoryCount
	if err := t.WithContext(dbc.Ctx).
		Model(&types.DismissedViolation{}).
		Select("category, COUNT(*) AS count").
		Where("report_id = ?", reportID).
		Group("category").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
