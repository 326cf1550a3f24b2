package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReasonSectionDismissal tags DismissedViolation rows produced by a section
// cascade, as opposed to rows from an explicit per-violation dismissal.
const ReasonSectionDismissal = "dismissed via section"

// DismissedSection marks an entire report category as bulk-suppressed.
// At most one row per (report, category); restore hard-deletes it.
type DismissedSection struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReportID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_dismissed_section_key;column:report_id" json:"report_id"`
	Category    Category  `gorm:"type:text;not null;uniqueIndex:idx_dismissed_section_key;column:category" json:"category"`
	DismissedBy uuid.UUID `gorm:"type:uuid;not null;column:dismissed_by" json:"dismissed_by"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DismissedSection) TableName() string { return "dismissed_section" }

// DismissedViolation suppresses one specific violation. Payload is copied
// from the violation at dismissal time so the audit trail stays meaningful
// even if the source record later drops out of the feed. At most one row per
// (report, category, external id); restore hard-deletes it.
type DismissedViolation struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReportID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_dismissed_violation_key;index:idx_dismissed_violation_report_category;column:report_id" json:"report_id"`
	Category            Category       `gorm:"type:text;not null;uniqueIndex:idx_dismissed_violation_key;index:idx_dismissed_violation_report_category;column:category" json:"category"`
	ExternalViolationID string         `gorm:"not null;uniqueIndex:idx_dismissed_violation_key;column:external_violation_id" json:"external_violation_id"`
	DismissedBy         uuid.UUID      `gorm:"type:uuid;not null;column:dismissed_by" json:"dismissed_by"`
	Reason              string         `gorm:"not null;default:'';column:reason" json:"reason"`
	Payload             datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (DismissedViolation) TableName() string { return "dismissed_violation" }
