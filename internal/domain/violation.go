package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Violation is one externally-sourced finding. Rows are written by the
// ingestion job and are immutable once ingested; this engine only reads them.
type Violation struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReportID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_violation_key;index:idx_violation_report_category;column:report_id" json:"report_id"`
	Category            Category       `gorm:"type:text;not null;uniqueIndex:idx_violation_key;index:idx_violation_report_category;column:category" json:"category"`
	ExternalViolationID string         `gorm:"not null;uniqueIndex:idx_violation_key;column:external_violation_id" json:"external_violation_id"`
	Payload             datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	IssuedAt            *time.Time     `gorm:"column:issued_at" json:"issued_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Violation) TableName() string { return "violation" }
