package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/dto"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers/common"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// PaymentHandler - личный кошелёк: баланс, пополнение, история операций.
type PaymentHandler struct {
	ledger *service.LedgerService
}

func NewPaymentHandler(ledger *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// GetBalance GET /wallet
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	w, err := h.ledger.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewWalletResponse(w))
}

// Deposit POST /wallet/deposit - зачисление после подтверждения платёжного шлюза.
func (h *PaymentHandler) Deposit(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if req.Description == "" {
		req.Description = "Пополнение баланса"
	}

	tx, err := h.ledger.Deposit(c.Request.Context(), userID, req.Amount, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tx)
}

// ListTransactions GET /wallet/transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}

	limit, offset := common.GetPagination(c)
	items, err := h.ledger.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, limit, offset)
}
