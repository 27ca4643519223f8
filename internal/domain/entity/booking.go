package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// Booking - пакет оплаченных учеником занятий у преподавателя по одному предмету.
type Booking struct {
	ID                 uuid.UUID                 `db:"id" json:"id"`
	LearnerID          uuid.UUID                 `db:"learner_id" json:"learner_id"`
	TutorID            uuid.UUID                 `db:"tutor_id" json:"tutor_id"`
	TutorSubjectID     uuid.UUID                 `db:"tutor_subject_id" json:"tutor_subject_id"`
	SystemFeeID        uuid.UUID                 `db:"system_fee_id" json:"system_fee_id"`
	TotalSessions      int                       `db:"total_sessions" json:"total_sessions"`
	UnitPrice          int64                     `db:"unit_price" json:"unit_price"`
	TotalAmount        int64                     `db:"total_amount" json:"total_amount"`
	SystemFeeAmount    int64                     `db:"system_fee_amount" json:"system_fee_amount"`
	TutorReceiveAmount int64                     `db:"tutor_receive_amount" json:"tutor_receive_amount"`
	RefundedAmount     int64                     `db:"refunded_amount" json:"refunded_amount"`
	PaymentStatus      valueobject.PaymentStatus `db:"payment_status" json:"payment_status"`
	Status             valueobject.BookingStatus `db:"status" json:"status"`
	CancelledAt        *time.Time                `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason       *string                   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version            int64                     `db:"version" json:"-"`
	CreatedAt          time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time                 `db:"updated_at" json:"updated_at"`
}

func NewBooking(learnerID uuid.UUID, subject *TutorSubject, fee *SystemFee, sessions int, now time.Time) (*Booking, error) {
	if learnerID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан ученик")
	}
	if learnerID == subject.TutorID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя забронировать занятие у самого себя")
	}
	pricing, err := valueobject.ComputePricing(subject.Rate, sessions, fee.Rule())
	if err != nil {
		return nil, err
	}

	return &Booking{
		ID:                 uuid.New(),
		LearnerID:          learnerID,
		TutorID:            subject.TutorID,
		TutorSubjectID:     subject.ID,
		SystemFeeID:        fee.ID,
		TotalSessions:      pricing.TotalSessions,
		UnitPrice:          pricing.UnitPrice,
		TotalAmount:        pricing.TotalAmount,
		SystemFeeAmount:    pricing.SystemFeeAmount,
		TutorReceiveAmount: pricing.TutorReceiveAmount,
		PaymentStatus:      valueobject.PaymentPending,
		Status:             valueobject.BookingPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (b *Booking) Pricing() valueobject.Pricing {
	return valueobject.Pricing{
		UnitPrice:          b.UnitPrice,
		TotalSessions:      b.TotalSessions,
		TotalAmount:        b.TotalAmount,
		SystemFeeAmount:    b.SystemFeeAmount,
		TutorReceiveAmount: b.TutorReceiveAmount,
	}
}

// PerSessionTutorAmount - доля преподавателя за одно занятие.
func (b *Booking) PerSessionTutorAmount() int64 {
	amount, _ := b.Pricing().PerSession()
	return amount
}

// PerSessionFee - комиссия платформы за одно занятие.
func (b *Booking) PerSessionFee() int64 {
	_, fee := b.Pricing().PerSession()
	return fee
}

func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.LearnerID == userID || b.TutorID == userID
}

// MarkPaid фиксирует оплату и подтверждает бронирование.
func (b *Booking) MarkPaid(now time.Time) error {
	if b.Status != valueobject.BookingPending || !b.PaymentStatus.CanTransitionTo(valueobject.PaymentPaid) {
		return apperror.ErrBookingAlreadyPaid
	}
	b.PaymentStatus = valueobject.PaymentPaid
	b.Status = valueobject.BookingConfirmed
	b.UpdatedAt = now
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Status.CanTransitionTo(valueobject.BookingCancelled) {
		return apperror.ErrInvalidTransition
	}
	b.Status = valueobject.BookingCancelled
	b.CancelledAt = &now
	if reason != "" {
		b.CancelReason = &reason
	}
	b.UpdatedAt = now
	return nil
}

// ApplyRefund увеличивает сумму возврата. Сумма возврата не может превысить стоимость.
func (b *Booking) ApplyRefund(amount int64, now time.Time) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount
	}
	if b.RefundedAmount+amount > b.TotalAmount {
		return apperror.Invariant("возврат %d превышает остаток бронирования %s: %d из %d",
			amount, b.ID, b.RefundedAmount, b.TotalAmount)
	}
	b.RefundedAmount += amount
	if b.RefundedAmount == b.TotalAmount && b.PaymentStatus == valueobject.PaymentPaid {
		b.PaymentStatus = valueobject.PaymentRefunded
	}
	b.UpdatedAt = now
	return nil
}

// ApplyFold пересчитывает статус по занятиям. Возвращает true, если статус изменился.
func (b *Booking) ApplyFold(schedules []valueobject.ScheduleStatus, now time.Time) bool {
	next := valueobject.FoldBookingStatus(b.Status, schedules)
	if next == b.Status {
		return false
	}
	b.Status = next
	if next == valueobject.BookingCancelled {
		b.CancelledAt = &now
	}
	b.UpdatedAt = now
	return true
}
