package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// BookingHandler обслуживает бронирования, их занятия и возвраты.
type BookingHandler struct {
	bookings  *service.BookingService
	schedules *service.ScheduleService
	refunds   *service.RefundService
}

func NewBookingHandler(bookings *service.BookingService, schedules *service.ScheduleService, refunds *service.RefundService) *BookingHandler {
	return &BookingHandler{bookings: bookings, schedules: schedules, refunds: refunds}
}

// CreateBooking POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	learnerID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if !common.BindJSON(c, &req) {
		return
	}

	b, err := h.bookings.CreateBooking(c.Request.Context(), learnerID, req.TutorSubjectID, req.TotalSessions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, b)
}

// ListBookings GET /bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	items, err := h.bookings.ListBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, limit, offset)
}

// GetBooking GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	b, err := h.bookings.GetBooking(ctx, id, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	schedules, err := h.schedules.ListByBooking(ctx, id, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.BookingResponse{Booking: b, Schedules: schedules})
}

// PayBooking POST /bookings/:id/pay
func (h *BookingHandler) PayBooking(c *gin.Context) {
	learnerID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	b, err := h.bookings.PayBooking(c.Request.Context(), id, learnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, b)
}

// CancelBooking POST /bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CancelRequest
	_ = c.ShouldBindJSON(&req)

	b, err := h.bookings.CancelBooking(c.Request.Context(), id, userID, common.CurrentActor(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, b)
}

// CreateSchedule POST /bookings/:id/schedules
func (h *BookingHandler) CreateSchedule(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CreateScheduleRequest
	if !common.BindJSON(c, &req) {
		return
	}

	s, err := h.schedules.CreateSchedule(c.Request.Context(), id, req.AvailabilityID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, s)
}

// RequestRefund POST /bookings/:id/refunds
func (h *BookingHandler) RequestRefund(c *gin.Context) {
	learnerID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RefundRequest
	if !common.BindJSON(c, &req) {
		return
	}

	rr, err := h.refunds.RequestRefund(c.Request.Context(), id, learnerID, req.Amount, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rr)
}

// ListRefunds GET /bookings/:id/refunds
func (h *BookingHandler) ListRefunds(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	items, err := h.refunds.ListByBooking(c.Request.Context(), id, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}
