package domain

import (
	"time"

	"github.com/google/uuid"
)

// ComplianceReport is one generated compliance snapshot for a property.
// ComplianceScore and the per-category counts hanging off of it are written
// only by the score recalculator, always in the same transaction as the
// ledger mutation that made them stale.
type ComplianceReport struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PropertyID      uuid.UUID `gorm:"type:uuid;not null;index;column:property_id" json:"property_id"`
	City            City      `gorm:"type:text;not null;column:city" json:"city"`
	Address         string    `gorm:"not null;column:address" json:"address"`
	ComplianceScore float64   `gorm:"not null;default:0;column:compliance_score" json:"compliance_score"`
	GeneratedAt     time.Time `gorm:"not null;default:now();column:generated_at" json:"generated_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ComplianceReport) TableName() string { return "compliance_report" }

// ReportCategoryCount is the persisted aggregate for one report category.
// Invariant: ActiveCount + DismissedCount == TotalCount.
type ReportCategoryCount struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReportID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_report_category_count_key;column:report_id" json:"report_id"`
	Category       Category  `gorm:"type:text;not null;uniqueIndex:idx_report_category_count_key;column:category" json:"category"`
	TotalCount     int       `gorm:"not null;default:0;column:total_count" json:"total_count"`
	ActiveCount    int       `gorm:"not null;default:0;column:active_count" json:"active_count"`
	DismissedCount int       `gorm:"not null;default:0;column:dismissed_count" json:"dismissed_count"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReportCategoryCount) TableName() string { return "report_category_count" }
