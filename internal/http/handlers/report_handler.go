package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// ReportHandler - разбор жалоб администратором.
type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GetReport GET /admin/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	rep, err := h.reports.GetReport(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}

// ResolveReport POST /admin/reports/:id/resolve
func (h *ReportHandler) ResolveReport(c *gin.Context) {
	adminID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ResolveReportRequest
	if !common.BindJSON(c, &req) {
		return
	}
	resolution, err := valueobject.NewHoldResolution(req.Resolution)
	if err != nil {
		response.Error(c, err)
		return
	}

	rep, err := h.reports.ResolveReport(c.Request.Context(), id, adminID, resolution)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}
