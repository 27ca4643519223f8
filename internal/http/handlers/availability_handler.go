package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// AvailabilityHandler обслуживает слоты доступности преподавателя.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// CreateAvailability POST /availabilities
func (h *AvailabilityHandler) CreateAvailability(c *gin.Context) {
	tutorID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req dto.CreateAvailabilityRequest
	if !common.BindJSON(c, &req) {
		return
	}

	slots := make([]service.SlotInput, 0, len(req.Slots))
	for _, s := range req.Slots {
		date, err := time.Parse(time.DateOnly, s.Date)
		if err != nil {
			response.BadRequest(c, "дата должна быть в формате YYYY-MM-DD")
			return
		}
		slots = append(slots, service.SlotInput{TimeSlotID: s.TimeSlotID, Date: date})
	}

	created, err := h.availability.CreateBulk(c.Request.Context(), tutorID, slots)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListTutorAvailability GET /tutors/:id/availabilities?from=&to=
func (h *AvailabilityHandler) ListTutorAvailability(c *gin.Context) {
	tutorID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	now := time.Now().UTC()
	from, ok := common.ParseTimeQuery(c, "from", now)
	if !ok {
		return
	}
	to, ok := common.ParseTimeQuery(c, "to", from.Add(7*24*time.Hour))
	if !ok {
		return
	}

	slots, err := h.availability.ListByTutor(c.Request.Context(), tutorID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, slots)
}

// GetAvailability GET /availabilities/:id
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	a, err := h.availability.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, a)
}

// UpdateAvailabilityStatus PATCH /availabilities/:id/status
func (h *AvailabilityHandler) UpdateAvailabilityStatus(c *gin.Context) {
	tutorID, ok := common.RequireUser(c)
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
	status, err := valueobject.NewAvailabilityStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	a, err := h.availability.UpdateStatus(c.Request.Context(), id, tutorID, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, a)
}

// DeleteAvailability DELETE /availabilities/:id
func (h *AvailabilityHandler) DeleteAvailability(c *gin.Context) {
	tutorID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.availability.Delete(c.Request.Context(), id, tutorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
