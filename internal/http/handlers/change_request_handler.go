package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// ChangeRequestHandler обслуживает запросы на перенос занятий.
type ChangeRequestHandler struct {
	requests *service.ChangeRequestService
}

func NewChangeRequestHandler(requests *service.ChangeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{requests: requests}
}

// CreateChangeRequest POST /schedules/:id/change-requests
func (h *ChangeRequestHandler) CreateChangeRequest(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	scheduleID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CreateChangeRequest
	if !common.BindJSON(c, &req) {
		return
	}

	cr, err := h.requests.Create(c.Request.Context(), scheduleID, userID, req.NewAvailabilityID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cr)
}

// GetChangeRequest GET /change-requests/:id
func (h *ChangeRequestHandler) GetChangeRequest(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	cr, err := h.requests.Get(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cr)
}

// ApproveChangeRequest POST /change-requests/:id/approve
func (h *ChangeRequestHandler) ApproveChangeRequest(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	cr, err := h.requests.Approve(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cr)
}

// RejectChangeRequest POST /change-requests/:id/reject
func (h *ChangeRequestHandler) RejectChangeRequest(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	cr, err := h.requests.Reject(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cr)
}
