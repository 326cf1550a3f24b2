package compliance

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

type DismissedSectionRepo interface {
	// Insert records the section dismissal. A conflicting row means the
	// section was already dismissed; that is reported as alreadyDismissed,
	// never as an error.
	Insert(dbc dbctx.Context, row *types.DismissedSection) (alreadyDismissed bool, err error)
	// Delete removes the section flag. Deleting a missing row is a no-op.
	Delete(dbc dbctx.Context, reportID uuid.UUID, category types.Category) error
	ListByReport(dbc dbctx.Context, reportID uuid.UUID) ([]*types.DismissedSection, error)
}

type dismissedSectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDismissedSectionRepo(db *gorm.DB, baseLog *logger.Logger) DismissedSectionRepo {
	return &dismissedSectionRepo{db: db, log: baseLog.With("repo", "DismissedSectionRepo")}
}

func (r *dismissedSectionRepo) Insert(dbc dbctx.Context, row *types.DismissedSection) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "report_id"}, {Name: "category"}},
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

func (r *dismissedSectionRepo) Delete(dbc dbctx.Context, reportID uuid.UUID, category types.Category) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Where("report_id = ? AND category = ?", reportID, category).
		Delete(&types.DismissedSection{}).Error
}

func (r *dismissedSectionRepo) ListByReport(dbc dbctx.Context, reportID uuid.UUID) ([]*types.DismissedSection, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DismissedSection
	if err := t.WithContext(dbc.Ctx).
		Where("report_id = ?", reportID).
		Order("category").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
