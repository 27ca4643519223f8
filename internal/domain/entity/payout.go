package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// Payout - выплата преподавателю за одно занятие.
type Payout struct {
	ID                  uuid.UUID                 `db:"id" json:"id"`
	ScheduleID          uuid.UUID                 `db:"schedule_id" json:"schedule_id"`
	BookingID           uuid.UUID                 `db:"booking_id" json:"booking_id"`
	TutorID             uuid.UUID                 `db:"tutor_id" json:"tutor_id"`
	TutorWalletID       uuid.UUID                 `db:"tutor_wallet_id" json:"tutor_wallet_id"`
	Amount              int64                     `db:"amount" json:"amount"`
	SystemFeeAmount     int64                     `db:"system_fee_amount" json:"system_fee_amount"`
	Status              valueobject.PayoutStatus  `db:"status" json:"status"`
	Trigger             valueobject.PayoutTrigger `db:"payout_trigger" json:"trigger"`
	ScheduledPayoutDate time.Time                 `db:"scheduled_payout_date" json:"scheduled_payout_date"`
	ReleasedAt          *time.Time                `db:"released_at" json:"released_at,omitempty"`
	TransactionID       *uuid.UUID                `db:"transaction_id" json:"transaction_id,omitempty"`
	CancelReason        *string                   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version             int64                     `db:"version" json:"-"`
	CreatedAt           time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time                 `db:"updated_at" json:"updated_at"`
}

func NewPayout(s *Schedule, b *Booking, tutorWalletID uuid.UUID, trigger valueobject.PayoutTrigger, scheduledAt, now time.Time) (*Payout, error) {
	amount, fee := b.Pricing().PerSession()
	if amount+fee > b.UnitPrice {
		return nil, apperror.Invariant("выплата %d + комиссия %d превышают цену занятия %d", amount, fee, b.UnitPrice)
	}
	return &Payout{
		ID:                  uuid.New(),
		ScheduleID:          s.ID,
		BookingID:           b.ID,
		TutorID:             b.TutorID,
		TutorWalletID:       tutorWalletID,
		Amount:              amount,
		SystemFeeAmount:     fee,
		Status:              valueobject.PayoutPending,
		Trigger:             trigger,
		ScheduledPayoutDate: scheduledAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (p *Payout) transition(next valueobject.PayoutStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict,
			"недопустимый переход выплаты "+string(p.Status)+" → "+string(next))
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}

func (p *Payout) IsDue(now time.Time) bool {
	return !p.ScheduledPayoutDate.After(now)
}

func (p *Payout) Hold(now time.Time) error {
	if p.Status == valueobject.PayoutOnHold {
		return nil
	}
	return p.transition(valueobject.PayoutOnHold, now)
}

func (p *Payout) MarkReady(now time.Time) error {
	if p.Status == valueobject.PayoutReadyForPayout {
		return nil
	}
	return p.transition(valueobject.PayoutReadyForPayout, now)
}

func (p *Payout) MarkPaid(txID uuid.UUID, now time.Time) error {
	if p.Status == valueobject.PayoutPaid {
		return apperror.ErrAlreadyPaid
	}
	if err := p.transition(valueobject.PayoutPaid, now); err != nil {
		return err
	}
	p.ReleasedAt = &now
	p.TransactionID = &txID
	return nil
}

func (p *Payout) Cancel(reason string, now time.Time) error {
	if p.Status == valueobject.PayoutPaid {
		return apperror.ErrAlreadyPaid
	}
	if err := p.transition(valueobject.PayoutCancelled, now); err != nil {
		return err
	}
	if reason != "" {
		p.CancelReason = &reason
	}
	return nil
}

func (p *Payout) IsSettled() bool {
	return p.Status == valueobject.PayoutPaid || p.Status == valueobject.PayoutCancelled
}
