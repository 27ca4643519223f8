package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// AdminHandler - ручные операции администратора над слотами, выплатами, возвратами и выводами.
type AdminHandler struct {
	availability *service.AvailabilityService
	payouts      *service.PayoutService
	refunds      *service.RefundService
	withdrawals  *service.WithdrawalService
	ledger       *service.LedgerService
}

func NewAdminHandler(
	availability *service.AvailabilityService,
	payouts *service.PayoutService,
	refunds *service.RefundService,
	withdrawals *service.WithdrawalService,
	ledger *service.LedgerService,
) *AdminHandler {
	return &AdminHandler{
		availability: availability,
		payouts:      payouts,
		refunds:      refunds,
		withdrawals:  withdrawals,
		ledger:       ledger,
	}
}

// OverrideAvailability PATCH /admin/availabilities/:id/status
func (h *AdminHandler) OverrideAvailability(c *gin.Context) {
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

	a, err := h.availability.Override(c.Request.Context(), id, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, a)
}

// GetPayout GET /admin/payouts/:id
func (h *AdminHandler) GetPayout(c *gin.Context) {
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.payouts.GetPayout(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// CancelPayout POST /admin/payouts/:id/cancel
func (h *AdminHandler) CancelPayout(c *gin.Context) {
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if !common.BindJSON(c, &req) {
		return
	}

	p, err := h.payouts.CancelPayout(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// ApproveRefund POST /admin/refunds/:id/approve
func (h *AdminHandler) ApproveRefund(c *gin.Context) {
	adminID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AdminNoteRequest
	_ = c.ShouldBindJSON(&req)

	rr, err := h.refunds.ApproveRefund(c.Request.Context(), id, adminID, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rr)
}

// RejectRefund POST /admin/refunds/:id/reject
func (h *AdminHandler) RejectRefund(c *gin.Context) {
	adminID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AdminNoteRequest
	_ = c.ShouldBindJSON(&req)

	rr, err := h.refunds.RejectRefund(c.Request.Context(), id, adminID, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rr)
}

// CompleteWithdrawal POST /admin/withdrawals/:id/complete
func (h *AdminHandler) CompleteWithdrawal(c *gin.Context) {
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	w, err := h.withdrawals.CompleteWithdrawal(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, w)
}

// RejectWithdrawal POST /admin/withdrawals/:id/reject
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if !common.BindJSON(c, &req) {
		return
	}

	w, err := h.withdrawals.RejectWithdrawal(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, w)
}

// PlatformWallets GET /admin/wallets - эскроу и выручка платформы.
func (h *AdminHandler) PlatformWallets(c *gin.Context) {
	ctx := c.Request.Context()
	escrow, err := h.ledger.PlatformWallet(ctx, valueobject.WalletEscrow)
	if err != nil {
		response.Error(c, err)
		return
	}
	revenue, err := h.ledger.PlatformWallet(ctx, valueobject.WalletRevenue)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"escrow":  dto.NewWalletResponse(escrow),
		"revenue": dto.NewWalletResponse(revenue),
	})
}
