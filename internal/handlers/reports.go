package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novaocc/cora/internal/services"
	appErrors "github.com/novaocc/cora/pkg/errors"
	"github.com/novaocc/cora/pkg/response"
)

// ReportHandler exposes the civic report workflow.
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type createReportRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
}

// Create files a report on behalf of the authenticated user. Delivery of the
// resulting notification is best-effort and never fails the request.
func (h *ReportHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createReportRequest
	if !bindAndValidate(c, &req) {
		return
	}

	report, err := h.reports.Create(c.Request.Context(), services.CreateReportInput{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, report)
}

// List returns recent reports, newest first.
func (h *ReportHandler) List(c *gin.Context) {
	rows, err := h.reports.List(c.Request.Context(), services.ListReportsInput{
		Limit:  parseIntQuery(c, "limit", 25),
		Offset: parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"reports": rows,
		"count":   len(rows),
	})
}
