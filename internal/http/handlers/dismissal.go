package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/propplyai/compliance-backend/internal/domain"
	"github.com/propplyai/compliance-backend/internal/http/response"
	"github.com/propplyai/compliance-backend/internal/platform/apierr"
	"github.com/propplyai/compliance-backend/internal/platform/logger"
	"github.com/propplyai/compliance-backend/internal/services"
)

type DismissalHandler struct {
	log        *logger.Logger
	dismissals services.DismissalService
}

func NewDismissalHandler(log *logger.Logger, dismissals services.DismissalService) *DismissalHandler {
	return &DismissalHandler{
		log:        log.With("handler", "DismissalHandler"),
		dismissals: dismissals,
	}
}

type sectionRequest struct {
	ReportID string `json:"report_id" binding:"required"`
	Category string `json:"category" binding:"required"`
}

type violationRequest struct {
	ReportID    string         `json:"report_id" binding:"required"`
	Category    string         `json:"category" binding:"required"`
	ViolationID string         `json:"violation_id" binding:"required"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	Reason      string         `json:"reason,omitempty"`
}

func (h *DismissalHandler) DismissSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reportID, category, ok := parseSectionKey(c, req.ReportID, req.Category)
	if !ok {
		return
	}

	result, err := h.dismissals.DismissSection(c.Request.Context(), reportID, category)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":           true,
		"already_dismissed": result.AlreadyDismissed,
	})
}

func (h *DismissalHandler) RestoreSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reportID, category, ok := parseSectionKey(c, req.ReportID, req.Category)
	if !ok {
		return
	}

	if _, err := h.dismissals.RestoreSection(c.Request.Context(), reportID, category); err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true})
}

func (h *DismissalHandler) DismissViolation(c *gin.Context) {
	var req violationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reportID, category, ok := parseSectionKey(c, req.ReportID, req.Category)
	if !ok {
		return
	}

	result, err := h.dismissals.DismissViolation(c.Request.Context(), services.DismissViolationInput{
		ReportID:    reportID,
		Category:    category,
		ViolationID: req.ViolationID,
		Payload:     req.Payload,
		Reason:      req.Reason,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":           true,
		"already_dismissed": result.AlreadyDismissed,
		"updated_counts":    result.Counts,
	})
}

func (h *DismissalHandler) RestoreViolation(c *gin.Context) {
	var req violationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reportID, category, ok := parseSectionKey(c, req.ReportID, req.Category)
	if !ok {
		return
	}

	result, err := h.dismissals.RestoreViolation(c.Request.Context(), reportID, category, req.ViolationID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":        true,
		"updated_counts": result.Counts,
	})
}

func (h *DismissalHandler) respondServiceError(c *gin.Context, err error) {
	if status, code := apierr.StatusOf(err); status >= http.StatusInternalServerError {
		h.log.Error("Dismissal operation failed", "code", code, "error", err)
	}
	response.RespondAPIError(c, err)
}

// parseSectionKey validates the (report, category) pair shared by every
// mutation route; rejections happen here, before any ledger write.
func parseSectionKey(c *gin.Context, rawReport, rawCategory string) (uuid.UUID, types.Category, bool) {
	reportID, err := uuid.Parse(rawReport)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_report_id",
			fmt.Errorf("report_id must be a uuid: %w", err))
		return uuid.Nil, "", false
	}
	category, ok := types.ParseCategory(rawCategory)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_category",
			fmt.Errorf("unknown category %q", rawCategory))
		return uuid.Nil, "", false
	}
	return reportID, category, true
}
