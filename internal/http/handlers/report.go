package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/http/response"
	"github.com/propplyai/compliance-backend/internal/platform/apierr"
	"github.com/propplyai/compliance-backend/internal/platform/dbctx"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
	"github.com/propplyai/compliance-backend/internal/services"
)

type ReportHandler struct {
	log     *logger.Logger
	reports services.ReportService
}

func NewReportHandler(log *logger.Logger, reports services.ReportService) *ReportHandler {
	return &ReportHandler{
		log:     log.With("handler", "ReportHandler"),
		reports: reports,
	}
}

func (h *ReportHandler) GetDismissedSections(c *gin.Context) {
	reportID, ok := parseReportQuery(c)
	if !ok {
		return
	}
	sections, err := h.reports.GetDismissedSections(dbctx.Context{Ctx: c.Request.Context()}, reportID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(sections))
	for _, s := range sections {
		out = append(out, gin.H{
			"category":     s.Category,
			"dismissed_at": s.CreatedAt,
			"dismissed_by": s.DismissedBy,
		})
	}
	response.RespondOK(c, gin.H{"sections": out})
}

func (h *ReportHandler) GetDismissedViolations(c *gin.Context) {
	reportID, ok := parseReportQuery(c)
	if !ok {
		return
	}
	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		parsed, ok := types.ParseCategory(raw)
		if !ok {
			response.RespondError(c, http.StatusBadRequest, "invalid_category",
				fmt.Errorf("unknown category %q", raw))
			return
		}
		category = &parsed
	}

	violations, err := h.reports.GetDismissedViolations(dbctx.Context{Ctx: c.Request.Context()}, reportID, category)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"violations": violations,
		"count":      len(violations),
	})
}

func (h *ReportHandler) GetCounts(c *gin.Context) {
	reportID, ok := parseReportQuery(c)
	if !ok {
		return
	}
	counts, err := h.reports.GetCounts(dbctx.Context{Ctx: c.Request.Context()}, reportID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, counts)
}

func (h *ReportHandler) respondServiceError(c *gin.Context, err error) {
	if status, code := apierr.StatusOf(err); status >= http.StatusInternalServerError {
		h.log.Error("Report read failed", "code", code, "error", err)
	}
	response.RespondAPIError(c, err)
}

func parseReportQuery(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Query("report")
	if raw == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_report",
			fmt.Errorf("report query parameter is required"))
		return uuid.Nil, false
	}
	reportID, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_report_id",
			fmt.Errorf("report must be a uuid: %w", err))
		return uuid.Nil, false
	}
	return reportID, true
}
