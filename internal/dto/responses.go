package dto

import (
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
)

// WalletResponse - кошелёк с суммами в читаемом виде.
type WalletResponse struct {
	*entity.Wallet
	BalanceDisplay string `json:"balance_display"`
	LockedDisplay  string `json:"locked_display"`
}

func NewWalletResponse(w *entity.Wallet) *WalletResponse {
	return &WalletResponse{
		Wallet:         w,
		BalanceDisplay: valueobject.Money(w.Balance).String(),
		LockedDisplay:  valueobject.Money(w.LockedBalance).String(),
	}
}

// BookingResponse - бронирование вместе с его занятиями.
type BookingResponse struct {
	*entity.Booking
	Schedules []*entity.Schedule `json:"schedules"`
}
