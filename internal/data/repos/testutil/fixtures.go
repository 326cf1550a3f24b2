package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/ctxutil"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
)

// SeedReport inserts a compliance report for the given city.
func SeedReport(tb testing.TB, tx *gorm.DB, city domain.City) *domain.ComplianceReport {
	tb.Helper()
	report := &domain.ComplianceReport{
		PropertyID: uuid.New(),
		City:       city,
		Address:    "123 Test Street",
	}
	if err := tx.Create(report).Error; err != nil {
		tb.Fatalf("seed report: %v", err)
	}
	return report
}

// SeedViolations inserts n violations into one category of a report and
// returns their external ids.
func SeedViolations(tb testing.TB, tx *gorm.DB, report *domain.ComplianceReport, category domain.Category, n int) []string {
	tb.Helper()
	rows := make([]*domain.Violation, 0, n)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", category, i+1)
		ids = append(ids, id)
		rows = append(rows, &domain.Violation{
			ReportID:            report.ID,
			Category:            category,
			ExternalViolationID: id,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		tb.Fatalf("seed violations: %v", err)
	}
	return ids
}

// AuthedContext returns a dbctx whose base context carries request data for
// the given caller, the way the auth middleware would set it.
func AuthedContext(tx *gorm.DB, callerID uuid.UUID) dbctx.Context {
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		TokenString: "test-token",
		UserID:      callerID,
	})
	return dbctx.Context{Ctx: ctx, Tx: tx}
}
