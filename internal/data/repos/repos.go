package repos

import (
	"github.com/propplyai/compliance-backend/internal/data/repos/compliance"
)

type ReportRepo = compliance.ReportRepo
type ReportCategoryCountRepo = compliance.ReportCategoryCountRepo
type ViolationRepo = compliance.ViolationRepo
type DismissedSectionRepo = compliance.DismissedSectionRepo
type DismissedViolationRepo = compliance.DismissedViolationRepo

type CategoryCount = compliance.CategoryCount

var NewReportRepo = compliance.NewReportRepo
var NewReportCategoryCountRepo = compliance.NewReportCategoryCountRepo
var NewViolationRepo = compliance.NewViolationRepo
var NewDismissedSectionRepo = compliance.NewDismissedSectionRepo
var NewDismissedViolationRepo = compliance.NewDismissedViolationRepo
