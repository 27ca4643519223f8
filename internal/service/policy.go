package service

import (
	"time"

	"github.com/ignatzorin/tutoring-backend/internal/config"
)

// Policy - бизнес-окна, общие для всех сервисов движка.
type Policy struct {
	CompletionGrace     time.Duration
	PayoutDelay         time.Duration
	BookingPendingGrace time.Duration
	NoCancelWindow      time.Duration
	ChangeRequestTTL    time.Duration
	MinWithdrawal       int64
}

func PolicyFromConfig(e config.Engine) Policy {
	return Policy{
		CompletionGrace:     e.CompletionGracePeriod,
		PayoutDelay:         e.PayoutDelay,
		BookingPendingGrace: e.BookingPendingGrace,
		NoCancelWindow:      e.NoCancelWindow,
		ChangeRequestTTL:    e.ChangeRequestTTL,
		MinWithdrawal:       e.MinWithdrawalAmount,
	}
}

// DefaultPolicy совпадает со значениями конфигурации по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		CompletionGrace:     24 * time.Hour,
		PayoutDelay:         72 * time.Hour,
		BookingPendingGrace: 24 * time.Hour,
		NoCancelWindow:      2 * time.Hour,
		ChangeRequestTTL:    72 * time.Hour,
		MinWithdrawal:       100000,
	}
}
