package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/response"
)

// ReportHandler accepts abuse reports.
type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type createReportRequest struct {
	EntityType  string         `json:"entity_type" validate:"required"`
	EntityID    string         `json:"entity_id" validate:"required"`
	Reason      string         `json:"reason" validate:"required,max=128"`
	Description string         `json:"description" validate:"omitempty,max=2048"`
	Metadata    map[string]any `json:"metadata"`
}

// POST /api/reports
func (h *ReportHandler) Create(c *gin.Context) {
	var req createReportRequest
	if !bindAndValidate(c, &req) {
		return
	}

	// Reports are accepted from anonymous visitors too; the reporter is
	// attached only when the request is authenticated.
	report, err := h.reports.Create(requestContext(c), currentUserID(c), services.CreateReportInput{
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Reason:      req.Reason,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, report)
}
