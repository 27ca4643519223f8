package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// ScheduleHandler обслуживает занятия: статус, подтверждение проведения и жалобы.
type ScheduleHandler struct {
	schedules  *service.ScheduleService
	completion *service.CompletionService
	reports    *service.ReportService
}

func NewScheduleHandler(schedules *service.ScheduleService, completion *service.CompletionService, reports *service.ReportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, completion: completion, reports: reports}
}

// GetSchedule GET /schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	s, err := h.schedules.GetSchedule(c.Request.Context(), id, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s)
}

// UpdateScheduleStatus PATCH /schedules/:id/status
func (h *ScheduleHandler) UpdateScheduleStatus(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !common.BindJSON(c, &req) {
		return
	}
	status, err := valueobject.NewScheduleStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	s, err := h.schedules.UpdateStatus(c.Request.Context(), id, userID, common.CurrentActor(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s)
}

// CancelSchedule POST /schedules/:id/cancel
func (h *ScheduleHandler) CancelSchedule(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	s, err := h.schedules.CancelSchedule(c.Request.Context(), id, userID, common.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s)
}

// GetConfirmation GET /schedules/:id/confirmation
func (h *ScheduleHandler) GetConfirmation(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	conf, err := h.completion.GetBySchedule(c.Request.Context(), id, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conf)
}

// ConfirmCompletion POST /schedules/:id/confirm
func (h *ScheduleHandler) ConfirmCompletion(c *gin.Context) {
	learnerID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	conf, err := h.completion.ConfirmByLearner(c.Request.Context(), id, learnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conf)
}

// FileReport POST /schedules/:id/reports
func (h *ScheduleHandler) FileReport(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CreateReportRequest
	if !common.BindJSON(c, &req) {
		return
	}

	rep, err := h.reports.FileReport(c.Request.Context(), id, userID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rep)
}
