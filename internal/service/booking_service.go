package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/logger"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// BookingService - оформление, оплата и отмена бронирований.
type BookingService struct {
	txm       repository.TxManager
	clock     clock.Clock
	policy    Policy
	ledger    *LedgerService
	schedules *ScheduleService
	notifier  Notifier
}

func NewBookingService(txm repository.TxManager, clk clock.Clock, policy Policy, ledger *LedgerService,
	schedules *ScheduleService, notifier Notifier) *BookingService {
	return &BookingService{
		txm:       txm,
		clock:     clk,
		policy:    policy,
		ledger:    ledger,
		schedules: schedules,
		notifier:  notifierOrNoop(notifier),
	}
}

// CreateBooking фиксирует цену по текущей ставке преподавателя и активной комиссии.
func (s *BookingService) CreateBooking(ctx context.Context, learnerID, tutorSubjectID uuid.UUID, sessions int) (*entity.Booking, error) {
	var b *entity.Booking
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		subject, err := st.Reference().GetTutorSubject(ctx, tutorSubjectID)
		if err != nil {
			return err
		}
		if !subject.IsActive {
			return apperror.New(apperror.ErrCodeValidation, "предмет преподавателя недоступен для бронирования")
		}
		fee, err := st.Reference().GetActiveSystemFee(ctx, now)
		if err != nil {
			return err
		}
		b, err = entity.NewBooking(learnerID, subject, fee, sessions, now)
		if err != nil {
			return err
		}
		return st.Bookings().Create(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("booking service: create: %w", err)
	}
	s.notifier.Notify(ctx, b.TutorID, EventBookingCreated, bookingNotice(b))
	return b, nil
}

// PayBooking списывает стоимость с кошелька ученика в escrow платформы.
func (s *BookingService) PayBooking(ctx context.Context, bookingID, learnerID uuid.UUID) (*entity.Booking, error) {
	var b *entity.Booking
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		var err error
		b, err = st.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.LearnerID != learnerID {
			return apperror.ErrForbidden
		}
		if err := b.MarkPaid(now); err != nil {
			return err
		}

		learner, err := s.ledger.EnsureWallet(ctx, st, b.LearnerID, valueobject.WalletPersonal)
		if err != nil {
			return err
		}
		escrow, err := s.ledger.Escrow(ctx, st)
		if err != nil {
			return err
		}
		if err := s.ledger.LockWallets(ctx, st, learner.ID, escrow.ID); err != nil {
			return err
		}
		ref := b.ID
		desc := "оплата бронирования " + b.ID.String()
		if _, err := s.ledger.Debit(ctx, st, learner.ID, b.TotalAmount, valueobject.ReasonBookingPayment, &ref, desc); err != nil {
			return err
		}
		if _, err := s.ledger.Credit(ctx, st, escrow.ID, b.TotalAmount, valueobject.ReasonBookingPayment, &ref, desc); err != nil {
			return err
		}
		return st.Bookings().Update(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("booking service: pay: %w", err)
	}
	s.notifier.Notify(ctx, b.LearnerID, EventBookingPaid, bookingNotice(b))
	s.notifier.Notify(ctx, b.TutorID, EventBookingPaid, bookingNotice(b))
	return b, nil
}

// CancelBooking отменяет неоплаченное бронирование вместе со всеми занятиями.
// Оплаченное бронирование отменяется только через запрос на возврат.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID, actor valueobject.Actor, reason string) (*entity.Booking, error) {
	var b *entity.Booking
	var meetings []string
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		b, err = st.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if actor == valueobject.ActorUser && !b.IsParticipant(actorID) {
			return apperror.ErrForbidden
		}
		meetings, err = s.cancelInTx(ctx, st, b, actor, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("booking service: cancel: %w", err)
	}
	s.schedules.deleteMeetings(ctx, meetings)
	s.notifier.Notify(ctx, b.LearnerID, EventBookingCancelled, bookingNotice(b))
	s.notifier.Notify(ctx, b.TutorID, EventBookingCancelled, bookingNotice(b))
	return b, nil
}

func (s *BookingService) cancelInTx(ctx context.Context, st repository.Store, b *entity.Booking, actor valueobject.Actor, reason string) ([]string, error) {
	now := s.clock.Now()
	if b.Status.IsTerminal() {
		return nil, apperror.ErrInvalidTransition
	}
	if b.PaymentStatus != valueobject.PaymentPending {
		return nil, apperror.ErrBookingAlreadyPaid
	}

	schedules, err := st.Schedules().ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if actor == valueobject.ActorUser {
		for _, sched := range schedules {
			if !sched.Status.IsTerminal() && sched.StartsWithin(now, s.policy.NoCancelWindow) {
				return nil, apperror.ErrTooLateToCancel
			}
		}
	}

	var meetings []string
	for _, sched := range schedules {
		if sched.Status.IsTerminal() {
			continue
		}
		eventID, err := s.schedules.cancelInTx(ctx, st, sched, b, now)
		if err != nil {
			return nil, err
		}
		if eventID != "" {
			meetings = append(meetings, eventID)
		}
	}
	if err := b.Cancel(reason, now); err != nil {
		return nil, err
	}
	return meetings, st.Bookings().Update(ctx, b)
}

func (s *BookingService) GetBooking(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*entity.Booking, error) {
	b, err := s.txm.Bookings().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !b.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return b, nil
}

func (s *BookingService) ListBookings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	return s.txm.Bookings().ListByParticipant(ctx, userID, clampLimit(limit), offset)
}

// AutoCancelStale отменяет неоплаченное бронирование, висящее дольше BookingPendingGrace.
// Условия перепроверяются под блокировкой: оплаченное за это время бронирование не трогается.
func (s *BookingService) AutoCancelStale(ctx context.Context, bookingID uuid.UUID) error {
	var b *entity.Booking
	var meetings []string
	cancelled := false
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		var err error
		b, err = st.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != valueobject.BookingPending || b.PaymentStatus != valueobject.PaymentPending ||
			!b.CreatedAt.Before(now.Add(-s.policy.BookingPendingGrace)) {
			return nil
		}
		statuses, err := st.Schedules().Statuses(ctx, b.ID)
		if err != nil {
			return err
		}
		for _, status := range statuses {
			if status != valueobject.ScheduleUpcoming && status != valueobject.ScheduleCancelled {
				return nil
			}
		}
		meetings, err = s.cancelInTx(ctx, st, b, valueobject.ActorSystem, "бронирование не оплачено вовремя")
		if err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("booking service: auto cancel %s: %w", bookingID, err)
	}
	if cancelled {
		logger.Component("booking").WithField("booking_id", b.ID).Info("неоплаченное бронирование отменено")
		s.schedules.deleteMeetings(ctx, meetings)
		s.notifier.Notify(ctx, b.LearnerID, EventBookingCancelled, bookingNotice(b))
		s.notifier.Notify(ctx, b.TutorID, EventBookingCancelled, bookingNotice(b))
	}
	return nil
}

// Refold пересчитывает статус бронирования по занятиям.
func (s *BookingService) Refold(ctx context.Context, bookingID uuid.UUID) error {
	var out outbox
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		return s.schedules.fold(ctx, st, bookingID, s.clock.Now(), &out)
	})
	if err != nil {
		return fmt.Errorf("booking service: refold %s: %w", bookingID, err)
	}
	out.flush(ctx, s.notifier)
	return nil
}

func (s *BookingService) ListStale(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return s.txm.Bookings().ListStale(ctx, s.clock.Now().Add(-s.policy.BookingPendingGrace), limit)
}

func (s *BookingService) ListFoldCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return s.txm.Bookings().ListFoldCandidates(ctx, limit)
}
