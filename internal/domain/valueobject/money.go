package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// Money - сумма в минимальных единицах валюты (копейки, центы).
type Money int64

func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return Money(amount), nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

// MaxSessions - верхняя граница пакета занятий в одном бронировании.
const MaxSessions = 100

// FeeRule - активная конфигурация комиссии платформы.
// PercentageBP задаётся в базисных пунктах (1000 = 10%), FixedAmount - за занятие.
type FeeRule struct {
	PercentageBP int64
	FixedAmount  int64
}

// Pricing - зафиксированные при создании бронирования суммы.
type Pricing struct {
	UnitPrice          int64
	TotalSessions      int
	TotalAmount        int64
	SystemFeeAmount    int64
	TutorReceiveAmount int64
}

// ComputePricing считает суммы бронирования по ставке за занятие и комиссии.
func ComputePricing(unitPrice int64, sessions int, fee FeeRule) (Pricing, error) {
	if sessions < 1 || sessions > MaxSessions {
		return Pricing{}, apperror.ErrInvalidSessions
	}
	if unitPrice <= 0 {
		return Pricing{}, apperror.ErrNoRate
	}
	if fee.PercentageBP < 0 || fee.PercentageBP > 10000 || fee.FixedAmount < 0 {
		return Pricing{}, apperror.New(apperror.ErrCodeValidation, "некорректная конфигурация комиссии")
	}

	n := int64(sessions)
	total, ok := mulNonNegative(unitPrice, n)
	if !ok {
		return Pricing{}, apperror.New(apperror.ErrCodeValidation, "стоимость бронирования слишком велика")
	}
	// floor(total*bp/10000) без промежуточного произведения: при bp <= 10000 каждое слагаемое не больше total
	percentFee := (total/10000)*fee.PercentageBP + (total%10000)*fee.PercentageBP/10000
	fixedFee, ok := mulNonNegative(fee.FixedAmount, n)
	if !ok || fixedFee > total-percentFee {
		return Pricing{}, apperror.New(apperror.ErrCodeValidation, "комиссия превышает стоимость бронирования")
	}
	systemFee := percentFee + fixedFee

	return Pricing{
		UnitPrice:          unitPrice,
		TotalSessions:      sessions,
		TotalAmount:        total,
		SystemFeeAmount:    systemFee,
		TutorReceiveAmount: total - systemFee,
	}, nil
}

// mulNonNegative перемножает неотрицательные a и b, ok=false при переполнении int64.
func mulNonNegative(a, b int64) (int64, bool) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

// PerSession возвращает долю преподавателя и комиссию за одно занятие.
// Округление вниз, поэтому amount+fee никогда не превышает цену занятия.
func (p Pricing) PerSession() (tutorAmount, fee int64) {
	if p.TotalSessions < 1 {
		return 0, 0
	}
	n := int64(p.TotalSessions)
	return p.TutorReceiveAmount / n, p.SystemFeeAmount / n
}
