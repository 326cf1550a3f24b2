package services

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propplyai/compliance-backend/internal/data/repos"
	"github.com/propplyai/compliance-backend/internal/data/repos/testutil"
	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/platform/apierr"
	"github.com/propplyai/compliance-backend/internal/platform/ctxutil"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
)

// engine bundles the full service stack over one database handle. Tests
// construct it over a rolled-back test transaction; mutations then run as
// savepoints inside it.
type engine struct {
	user       uuid.UUID
	ctx        context.Context
	dbc        dbctx.Context
	violations repos.ViolationRepo
	score      ScoreService
	dismissals DismissalService
	reports    ReportService
}

func newEngine(t *testing.T, db *gorm.DB) *engine {
	t.Helper()
	log := testutil.Logger(t)

	reportRepo := repos.NewReportRepo(db, log)
	countRepo := repos.NewReportCategoryCountRepo(db, log)
	violationRepo := repos.NewViolationRepo(db, log)
	sectionRepo := repos.NewDismissedSectionRepo(db, log)
	dismissedRepo := repos.NewDismissedViolationRepo(db, log)

	score := NewScoreService(db, log, DefaultScorePolicy(),
		reportRepo, countRepo, violationRepo, sectionRepo, dismissedRepo)

	user := uuid.New()
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		TokenString: "test-token",
		UserID:      user,
	})

	return &engine{
		user:       user,
		ctx:        ctx,
		dbc:        dbctx.Context{Ctx: ctx, Tx: db},
		violations: violationRepo,
		score:      score,
		dismissals: NewDismissalService(db, log, score,
			reportRepo, violationRepo, sectionRepo, dismissedRepo),
		reports: NewReportService(db, log,
			reportRepo, countRepo, sectionRepo, dismissedRepo),
	}
}

func checkCounts(t *testing.T, counts *ReportCounts, category types.Category, total, active, dismissed int) {
	t.Helper()
	for _, c := range counts.Categories {
		if c.Category != category {
			continue
		}
		if c.TotalCount != total || c.ActiveCount != active || c.DismissedCount != dismissed {
			t.Fatalf("%s counts = total %d active %d dismissed %d, want %d/%d/%d",
				category, c.TotalCount, c.ActiveCount, c.DismissedCount, total, active, dismissed)
		}
		return
	}
	t.Fatalf("category %s missing from counts", category)
}

func checkBalanced(t *testing.T, counts *ReportCounts) {
	t.Helper()
	for _, c := range counts.Categories {
		if c.ActiveCount+c.DismissedCount != c.TotalCount {
			t.Fatalf("category %s out of balance: %+v", c.Category, c)
		}
		if c.ActiveCount < 0 || c.DismissedCount < 0 {
			t.Fatalf("category %s has negative counts: %+v", c.Category, c)
		}
	}
	if counts.ComplianceScore < 0 || counts.ComplianceScore > 100 {
		t.Fatalf("score %v out of range", counts.ComplianceScore)
	}
}

func TestDismissAndRestoreViolation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	e := newEngine(t, tx)

	report := testutil.SeedReport(t, tx, types.CityNYC)
	hpd := testutil.SeedViolations(t, tx, report, types.CategoryHPDViolations, 4)
	testutil.SeedViolations(t, tx, report, types.CategoryDOBViolations, 2)

	counts, err := e.score.Recalculate(e.dbc, report.ID)
	if err != nil {
		t.Fatalf("initial Recalculate: %v", err)
	}
	// hpd 4 active -> 60, dob 2 active -> 70, equal halves.
	if counts.ComplianceScore != 65 {
		t.Fatalf("initial score = %v, want 65", counts.ComplianceScore)
	}

	res, err := e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
		ReportID:    report.ID,
		Category:    types.CategoryHPDViolations,
		ViolationID: hpd[0],
		Reason:      "vacated by court order",
	})
	if err != nil {
		t.Fatalf("DismissViolation: %v", err)
	}
	if res.AlreadyDismissed {
		t.Fatal("first dismissal reported AlreadyDismissed")
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 4, 3, 1)
	if res.Counts.ComplianceScore != 70 {
		t.Fatalf("score after dismissal = %v, want 70", res.Counts.ComplianceScore)
	}

	// Repeating the exact same dismissal succeeds, changes nothing, and says so.
	res, err = e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
		ReportID:    report.ID,
		Category:    types.CategoryHPDViolations,
		ViolationID: hpd[0],
	})
	if err != nil {
		t.Fatalf("repeat DismissViolation: %v", err)
	}
	if !res.AlreadyDismissed {
		t.Fatal("repeat dismissal did not report AlreadyDismissed")
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 4, 3, 1)
	if res.Counts.ComplianceScore != 70 {
		t.Fatalf("score after repeat = %v, want 70", res.Counts.ComplianceScore)
	}

	// Ledger keeps the first dismissal's reason.
	ledger, err := e.reports.GetDismissedViolations(e.dbc, report.ID, nil)
	if err != nil || len(ledger) != 1 {
		t.Fatalf("GetDismissedViolations: err=%v len=%d", err, len(ledger))
	}
	if ledger[0].Reason != "vacated by court order" || ledger[0].DismissedBy != e.user {
		t.Fatalf("ledger row = %+v", ledger[0])
	}

	res, err = e.dismissals.RestoreViolation(e.ctx, report.ID, types.CategoryHPDViolations, hpd[0])
	if err != nil {
		t.Fatalf("RestoreViolation: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 4, 4, 0)
	if res.Counts.ComplianceScore != 65 {
		t.Fatalf("score after restore = %v, want 65", res.Counts.ComplianceScore)
	}

	// Restoring a violation that was never dismissed is a quiet no-op.
	res, err = e.dismissals.RestoreViolation(e.ctx, report.ID, types.CategoryHPDViolations, hpd[1])
	if err != nil {
		t.Fatalf("no-op RestoreViolation: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 4, 4, 0)
}

func TestSectionCascade(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	e := newEngine(t, tx)

	report := testutil.SeedReport(t, tx, types.CityNYC)
	hpd := testutil.SeedViolations(t, tx, report, types.CategoryHPDViolations, 3)

	// One violation dismissed individually before the section sweep.
	if _, err := e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
		ReportID:    report.ID,
		Category:    types.CategoryHPDViolations,
		ViolationID: hpd[0],
		Reason:      "duplicate entry",
	}); err != nil {
		t.Fatalf("DismissViolation: %v", err)
	}

	res, err := e.dismissals.DismissSection(e.ctx, report.ID, types.CategoryHPDViolations)
	if err != nil {
		t.Fatalf("DismissSection: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 3, 0, 3)
	if res.Counts.ComplianceScore != 100 {
		t.Fatalf("score after section dismissal = %v, want 100", res.Counts.ComplianceScore)
	}

	// Cascade covered the remaining violations but left the earlier
	// individual dismissal's audit trail alone.
	ledger, err := e.reports.GetDismissedViolations(e.dbc, report.ID, nil)
	if err != nil || len(ledger) != 3 {
		t.Fatalf("ledger after cascade: err=%v len=%d", err, len(ledger))
	}
	for _, row := range ledger {
		want := types.ReasonSectionDismissal
		if row.ExternalViolationID == hpd[0] {
			want = "duplicate entry"
		}
		if row.Reason != want {
			t.Fatalf("ledger row %s: reason=%q want %q", row.ExternalViolationID, row.Reason, want)
		}
	}

	// The feed picks up a new violation; repeating the section dismissal
	// sweeps it in instead of stopping at AlreadyDismissed.
	if err := e.violations.Ingest(e.dbc, []*types.Violation{{
		ReportID:            report.ID,
		Category:            types.CategoryHPDViolations,
		ExternalViolationID: "HPD-LATE",
	}}); err != nil {
		t.Fatalf("Ingest late violation: %v", err)
	}
	res, err = e.dismissals.DismissSection(e.ctx, report.ID, types.CategoryHPDViolations)
	if err != nil {
		t.Fatalf("repeat DismissSection: %v", err)
	}
	if !res.AlreadyDismissed {
		t.Fatal("repeat section dismissal did not report AlreadyDismissed")
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 4, 0, 4)

	// Restore removes only the section flag; the cascaded per-violation
	// dismissals stand until restored one by one.
	res, err = e.dismissals.RestoreSection(e.ctx, report.ID, types.CategoryHPDViolations)
	if err != nil {
		t.Fatalf("RestoreSection: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 4, 0, 4)
	for _, c := range res.Counts.Categories {
		if c.Category == types.CategoryHPDViolations && c.SectionDismissed {
			t.Fatal("section flag survived restore")
		}
	}

	res, err = e.dismissals.RestoreViolation(e.ctx, report.ID, types.CategoryHPDViolations, hpd[1])
	if err != nil {
		t.Fatalf("RestoreViolation after section restore: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryHPDViolations, 4, 1, 3)
	// hpd 1 active -> 90, dob clean -> 100.
	if res.Counts.ComplianceScore != 95 {
		t.Fatalf("score = %v, want 95", res.Counts.ComplianceScore)
	}
}

func TestSectionOnlyCategory(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	e := newEngine(t, tx)

	report := testutil.SeedReport(t, tx, types.CityPhiladelphia)
	testutil.SeedViolations(t, tx, report, types.CategoryLIViolations, 2)
	testutil.SeedViolations(t, tx, report, types.CategoryLIPermits, 3)

	counts, err := e.score.Recalculate(e.dbc, report.ID)
	if err != nil {
		t.Fatalf("initial Recalculate: %v", err)
	}
	if counts.ComplianceScore != 80 {
		t.Fatalf("initial score = %v, want 80", counts.ComplianceScore)
	}

	// Permits have no per-item identity: the section flag suppresses the
	// whole category, and no ledger rows are written.
	res, err := e.dismissals.DismissSection(e.ctx, report.ID, types.CategoryLIPermits)
	if err != nil {
		t.Fatalf("DismissSection li_permits: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryLIPermits, 3, 0, 3)
	if res.Counts.ComplianceScore != 80 {
		t.Fatalf("unweighted category moved the score: %v", res.Counts.ComplianceScore)
	}
	ledger, err := e.reports.GetDismissedViolations(e.dbc, report.ID, nil)
	if err != nil || len(ledger) != 0 {
		t.Fatalf("section-only dismissal wrote ledger rows: err=%v len=%d", err, len(ledger))
	}

	// Individual dismissal is not available for section-only categories.
	_, err = e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
		ReportID:    report.ID,
		Category:    types.CategoryLIPermits,
		ViolationID: "LIP-1",
	})
	if status, code := apierr.StatusOf(err); status != http.StatusBadRequest || code != "category_not_item_level" {
		t.Fatalf("DismissViolation on section-only category: status=%d code=%s err=%v", status, code, err)
	}

	res, err = e.dismissals.RestoreSection(e.ctx, report.ID, types.CategoryLIPermits)
	if err != nil {
		t.Fatalf("RestoreSection li_permits: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryLIPermits, 3, 3, 0)

	// L&I violations are item-level even in Philadelphia: the section sweep
	// cascades and the score recovers fully.
	res, err = e.dismissals.DismissSection(e.ctx, report.ID, types.CategoryLIViolations)
	if err != nil {
		t.Fatalf("DismissSection li_violations: %v", err)
	}
	checkCounts(t, res.Counts, types.CategoryLIViolations, 2, 0, 2)
	if res.Counts.ComplianceScore != 100 {
		t.Fatalf("score after li_violations sweep = %v, want 100", res.Counts.ComplianceScore)
	}
}

func TestDismissalValidation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	e := newEngine(t, tx)

	report := testutil.SeedReport(t, tx, types.CityNYC)
	testutil.SeedViolations(t, tx, report, types.CategoryHPDViolations, 1)

	cases := []struct {
		name       string
		run        func() error
		wantStatus int
		wantCode   string
	}{
		{
			name: "unknown report",
			run: func() error {
				_, err := e.dismissals.DismissSection(e.ctx, uuid.New(), types.CategoryHPDViolations)
				return err
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "report_not_found",
		},
		{
			name: "category from the other city",
			run: func() error {
				_, err := e.dismissals.DismissSection(e.ctx, report.ID, types.CategoryLIViolations)
				return err
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "category_city_mismatch",
		},
		{
			name: "violation not in the store",
			run: func() error {
				_, err := e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
					ReportID:    report.ID,
					Category:    types.CategoryHPDViolations,
					ViolationID: "HPD-404",
				})
				return err
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "violation_not_found",
		},
		{
			name: "missing violation id",
			run: func() error {
				_, err := e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
					ReportID: report.ID,
					Category: types.CategoryHPDViolations,
				})
				return err
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_violation_id",
		},
		{
			name: "no caller identity",
			run: func() error {
				_, err := e.dismissals.DismissSection(context.Background(), report.ID, types.CategoryHPDViolations)
				return err
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if err == nil {
				t.Fatal("expected error")
			}
			if status, code := apierr.StatusOf(err); status != tc.wantStatus || code != tc.wantCode {
				t.Fatalf("status=%d code=%s, want %d %s (err=%v)", status, code, tc.wantStatus, tc.wantCode, err)
			}
		})
	}

	// Failed mutations leave no ledger rows behind.
	ledger, err := e.reports.GetDismissedViolations(e.dbc, report.ID, nil)
	if err != nil || len(ledger) != 0 {
		t.Fatalf("ledger after failed mutations: err=%v len=%d", err, len(ledger))
	}
	sections, err := e.reports.GetDismissedSections(e.dbc, report.ID)
	if err != nil || len(sections) != 0 {
		t.Fatalf("sections after failed mutations: err=%v len=%d", err, len(sections))
	}
}

// TestDismissRestoreSequences drives a seeded random mix of dismiss and
// restore operations and checks after every step that the persisted counts
// stay balanced and the score stays in range.
func TestDismissRestoreSequences(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	e := newEngine(t, tx)

	report := testutil.SeedReport(t, tx, types.CityPhiladelphia)
	li := testutil.SeedViolations(t, tx, report, types.CategoryLIViolations, 6)
	testutil.SeedViolations(t, tx, report, types.CategoryLICertifications, 2)

	if _, err := e.score.Recalculate(e.dbc, report.ID); err != nil {
		t.Fatalf("initial Recalculate: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 80; i++ {
		var (
			counts *ReportCounts
			err    error
			op     string
		)
		switch rng.Intn(6) {
		case 0, 1:
			id := li[rng.Intn(len(li))]
			op = fmt.Sprintf("dismiss %s", id)
			var res *DismissResult
			res, err = e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
				ReportID:    report.ID,
				Category:    types.CategoryLIViolations,
				ViolationID: id,
			})
			if err == nil {
				counts = res.Counts
			}
		case 2, 3:
			id := li[rng.Intn(len(li))]
			op = fmt.Sprintf("restore %s", id)
			var res *DismissResult
			res, err = e.dismissals.RestoreViolation(e.ctx, report.ID, types.CategoryLIViolations, id)
			if err == nil {
				counts = res.Counts
			}
		case 4:
			op = "dismiss section"
			var res *DismissResult
			res, err = e.dismissals.DismissSection(e.ctx, report.ID, types.CategoryLICertifications)
			if err == nil {
				counts = res.Counts
			}
		default:
			op = "restore section"
			var res *DismissResult
			res, err = e.dismissals.RestoreSection(e.ctx, report.ID, types.CategoryLICertifications)
			if err == nil {
				counts = res.Counts
			}
		}
		if err != nil {
			t.Fatalf("step %d (%s): %v", i, op, err)
		}
		checkBalanced(t, counts)
	}

	// The persisted aggregates match a fresh derivation from the ledger.
	final, err := e.reports.GetCounts(e.dbc, report.ID)
	if err != nil {
		t.Fatalf("GetCounts: %v", err)
	}
	fresh, err := e.score.Recalculate(e.dbc, report.ID)
	if err != nil {
		t.Fatalf("final Recalculate: %v", err)
	}
	if final.ComplianceScore != fresh.ComplianceScore {
		t.Fatalf("persisted score %v != derived score %v", final.ComplianceScore, fresh.ComplianceScore)
	}
	for i := range final.Categories {
		if final.Categories[i] != fresh.Categories[i] {
			t.Fatalf("persisted counts drifted: %+v vs %+v", final.Categories[i], fresh.Categories[i])
		}
	}
}

func TestScoreMonotoneUnderDismissals(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	e := newEngine(t, tx)

	report := testutil.SeedReport(t, tx, types.CityNYC)
	hpd := testutil.SeedViolations(t, tx, report, types.CategoryHPDViolations, 5)

	counts, err := e.score.Recalculate(e.dbc, report.ID)
	if err != nil {
		t.Fatalf("initial Recalculate: %v", err)
	}
	prev := counts.ComplianceScore

	for _, id := range hpd {
		res, err := e.dismissals.DismissViolation(e.ctx, DismissViolationInput{
			ReportID:    report.ID,
			Category:    types.CategoryHPDViolations,
			ViolationID: id,
		})
		if err != nil {
			t.Fatalf("DismissViolation %s: %v", id, err)
		}
		if res.Counts.ComplianceScore < prev {
			t.Fatalf("dismissal lowered score: %v -> %v", prev, res.Counts.ComplianceScore)
		}
		prev = res.Counts.ComplianceScore
	}

	for _, id := range hpd {
		res, err := e.dismissals.RestoreViolation(e.ctx, report.ID, types.CategoryHPDViolations, id)
		if err != nil {
			t.Fatalf("RestoreViolation %s: %v", id, err)
		}
		if res.Counts.ComplianceScore > prev {
			t.Fatalf("restore raised score: %v -> %v", prev, res.Counts.ComplianceScore)
		}
		prev = res.Counts.ComplianceScore
	}
}
