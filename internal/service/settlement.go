package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
)

// notice - уведомление, отправляемое после фиксации транзакции.
type notice struct {
	to    uuid.UUID
	event string
	data  any
}

type outbox []notice

func (o *outbox) add(to uuid.UUID, event string, data any) {
	*o = append(*o, notice{to: to, event: event, data: data})
}

func (o outbox) flush(ctx context.Context, n Notifier) {
	for _, m := range o {
		n.Notify(ctx, m.to, m.event, m.data)
	}
}

// foldBooking пересчитывает статус бронирования по его занятиям и сохраняет при изменении.
func foldBooking(ctx context.Context, st repository.Store, b *entity.Booking, now time.Time) (bool, error) {
	statuses, err := st.Schedules().Statuses(ctx, b.ID)
	if err != nil {
		return false, err
	}
	if !b.ApplyFold(statuses, now) {
		return false, nil
	}
	return true, st.Bookings().Update(ctx, b)
}

// releasedAmount - сумма, уже выведенная из escrow выплатами преподавателю (доля плюс комиссия).
func releasedAmount(ctx context.Context, st repository.Store, bookingID uuid.UUID) (int64, error) {
	payouts, err := st.Payouts().ListByBookingForUpdate(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range payouts {
		if p.Status == valueobject.PayoutPaid {
			total += p.Amount + p.SystemFeeAmount
		}
	}
	return total, nil
}

// committedAmount - сумма всех неотменённых выплат бронирования.
// Ожидающие выплаты резервируют свою долю escrow наравне с проведёнными.
func committedAmount(ctx context.Context, st repository.Store, bookingID uuid.UUID) (int64, error) {
	payouts, err := st.Payouts().ListByBookingForUpdate(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range payouts {
		if p.Status != valueobject.PayoutCancelled {
			total += p.Amount + p.SystemFeeAmount
		}
	}
	return total, nil
}

// refundable - сколько ещё можно вернуть ученику из escrow по бронированию.
func refundable(b *entity.Booking, released int64) int64 {
	left := b.TotalAmount - b.RefundedAmount - released
	if left < 0 {
		return 0
	}
	return left
}

func bookingNotice(b *entity.Booking) map[string]any {
	return map[string]any{
		"booking_id": b.ID,
		"status":     b.Status,
		"amount":     valueobject.Money(b.TotalAmount).String(),
	}
}

func scheduleNotice(s *entity.Schedule) map[string]any {
	return map[string]any{
		"schedule_id": s.ID,
		"booking_id":  s.BookingID,
		"status":      s.Status,
		"start_at":    s.StartAt,
	}
}
