package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

type ClassRequestHandler struct {
	requests *service.ClassRequestService
}

func NewClassRequestHandler(requests *service.ClassRequestService) *ClassRequestHandler {
	return &ClassRequestHandler{requests: requests}
}

// CreateClassRequest POST /class-requests
func (h *ClassRequestHandler) CreateClassRequest(c *gin.Context) {
	learnerID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req dto.CreateClassRequest
	if !common.BindJSON(c, &req) {
		return
	}

	cr, err := h.requests.Create(c.Request.Context(), learnerID, req.SubjectID, req.ExpectedStartAt.UTC(), req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cr)
}

// ListClassRequests GET /class-requests
func (h *ClassRequestHandler) ListClassRequests(c *gin.Context) {
	learnerID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	items, err := h.requests.ListByLearner(c.Request.Context(), learnerID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, limit, offset)
}

// CloseClassRequest POST /class-requests/:id/close
func (h *ClassRequestHandler) CloseClassRequest(c *gin.Context) {
	learnerID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	cr, err := h.requests.Close(c.Request.Context(), id, learnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cr)
}
