package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/propplyai/compliance-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Reports + persisted aggregates
		&types.ComplianceReport{},
		&types.ReportCategoryCount{},

		// Violation store (written by the ingestion job, read here)
		&types.Violation{},

		// Dismissal ledger
		&types.DismissedSection{},
		&types.DismissedViolation{},
	)
}

// EnsureLedgerIndexes creates the unique indexes the ledger's idempotency
// contract depends on. Concurrent dismissals for the same key serialize on
// these rather than on check-then-insert reads.
func EnsureLedgerIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_dismissed_section_key
		ON dismissed_section (report_id, category);
	`).Error; err != nil {
		return fmt.Errorf("create idx_dismissed_section_key: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_dismissed_violation_key
		ON dismissed_violation (report_id, category, external_violation_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_dismissed_violation_key: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_violation_key
		ON violation (report_id, category, external_violation_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_violation_key: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_report_category_count_key
		ON report_category_count (report_id, category);
	`).Error; err != nil {
		return fmt.Errorf("create idx_report_category_count_key: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_dismissed_violation_report_category
		ON dismissed_violation (report_id, category);
	`).Error; err != nil {
		return fmt.Errorf("create idx_dismissed_violation_report_category: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_violation_report_category
		ON violation (report_id, category);
	`).Error; err != nil {
		return fmt.Errorf("create idx_violation_report_category: %w", err)
	}
	return nil
}
