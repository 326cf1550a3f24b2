package compliance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

type ReportCategoryCountRepo interface {
	UpsertCounts(dbc dbctx.Context, rows []*types.ReportCategoryCount) error
	GetByReportID(dbc dbctx.Context, reportID uuid.UUID) ([]*types.ReportCategoryCount, error)
}

type reportCategoryCountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportCategoryCountRepo(db *gorm.DB, baseLog *logger.Logger) ReportCategoryCountRepo {
	return &reportCategoryCountRepo{db: db, log: baseLog.With("repo", "ReportCategoryCountRepo")}
}

func (r *reportCategoryCountRepo) UpsertCounts(dbc dbctx.Context, rows []*types.ReportCategoryCount) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.UpdatedAt = now
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "report_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_count",
				"active_count",
				"dismissed_count",
				"updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *reportCategoryCountRepo) GetByReportID(dbc dbctx.Context, reportID uuid.UUID) ([]*types.ReportCategoryCount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ReportCategoryCount
	if err := t.WithContext(dbc.Ctx).
		Where("report_id = ?", reportID).
		Order("category").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
