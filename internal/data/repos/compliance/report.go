package compliance

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
)

type ReportRepo interface {
	Create(dbc dbctx.Context, reports []*types.ComplianceReport) ([]*types.ComplianceReport, error)
	GetByID(dbc dbctx.Context, reportID uuid.UUID) (*types.ComplianceReport, error)
	// GetByIDForUpdate takes a row lock on the report so that concurrent
	// ledger mutations for the same report serialize. Must be called inside
	// a transaction.
	GetByIDForUpdate(dbc dbctx.Context, reportID uuid.UUID) (*types.ComplianceReport, error)
	UpdateScore(dbc dbctx.Context, reportID uuid.UUID, score float64) error
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "ReportRepo")}
}

func (r *reportRepo) Create(dbc dbctx.Context, reports []*types.ComplianceReport) ([]*types.ComplianceReport, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(reports) == 0 {
		return []*types.ComplianceReport{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *reportRepo) GetByID(dbc dbctx.Context, reportID uuid.UUID) (*types.ComplianceReport, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var report types.ComplianceReport
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", reportID).
		First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) GetByIDForUpdate(dbc dbctx.Context, reportID uuid.UUID) (*types.ComplianceReport, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var report types.ComplianceReport
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", reportID).
		First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) UpdateScore(dbc dbctx.Context, reportID uuid.UUID, score float64) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.ComplianceReport{}).
		Where("id = ?", reportID).
		Updates(map[string]any{
			"compliance_score": score,
			"updated_at":       time.Now().UTC(),
		}).Error
}
