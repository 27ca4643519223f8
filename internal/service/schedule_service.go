package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/logger"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// ScheduleService ведёт занятия бронирования: создание, продвижение по времени и отмену.
type ScheduleService struct {
	txm      repository.TxManager
	clock    clock.Clock
	policy   Policy
	ledger   *LedgerService
	meetings MeetingProvisioner
	notifier Notifier
}

func NewScheduleService(txm repository.TxManager, clk clock.Clock, policy Policy, ledger *LedgerService,
	meetings MeetingProvisioner, notifier Notifier) *ScheduleService {
	if meetings == nil {
		meetings = noopMeetings{}
	}
	return &ScheduleService{
		txm:      txm,
		clock:    clk,
		policy:   policy,
		ledger:   ledger,
		meetings: meetings,
		notifier: notifierOrNoop(notifier),
	}
}

// CreateSchedule занимает слот доступности под занятие бронирования.
func (s *ScheduleService) CreateSchedule(ctx context.Context, bookingID, availabilityID, actorID uuid.UUID) (*entity.Schedule, error) {
	var sched *entity.Schedule
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		b, err := st.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsParticipant(actorID) {
			return apperror.ErrForbidden
		}
		if b.Status.IsTerminal() {
			return apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict, "бронирование уже закрыто")
		}
		active, err := st.Schedules().CountActiveByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if active >= b.TotalSessions {
			return apperror.ErrSessionsExhausted
		}

		a, err := st.Availabilities().GetForUpdate(ctx, availabilityID)
		if err != nil {
			return err
		}
		if a.TutorID != b.TutorID {
			return apperror.ErrTutorMismatch
		}
		if a.Status != valueobject.AvailabilityAvailable {
			return apperror.ErrAvailabilityNotAvailable
		}
		if !a.StartAt.After(now) {
			return apperror.ErrSlotInPast
		}
		taken, err := st.Schedules().ExistsActiveForAvailability(ctx, a.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperror.ErrScheduleExists
		}
		// слоты одного преподавателя могут пересекаться по времени
		busy, err := st.Schedules().HasTutorOverlap(ctx, a.TutorID, a.StartAt, a.EndAt)
		if err != nil {
			return err
		}
		if busy {
			return apperror.ErrTutorBusy
		}

		sched = entity.NewSchedule(b, a, now)
		if err := st.Schedules().Create(ctx, sched); err != nil {
			return err
		}
		if err := a.TransitionTo(valueobject.AvailabilityBooked, now); err != nil {
			return err
		}
		return st.Availabilities().Update(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule service: create schedule: %w", err)
	}

	s.provisionMeeting(ctx, sched)
	s.notifier.Notify(ctx, sched.TutorID, EventScheduleCreated, scheduleNotice(sched))
	s.notifier.Notify(ctx, sched.LearnerID, EventScheduleCreated, scheduleNotice(sched))
	return sched, nil
}

// provisionMeeting создаёт встречу после фиксации занятия. Ошибка провайдера не откатывает занятие.
func (s *ScheduleService) provisionMeeting(ctx context.Context, sched *entity.Schedule) {
	log := logger.Component("schedule").WithField("schedule_id", sched.ID)
	link, eventID, err := s.meetings.CreateMeetingForSchedule(ctx, sched.ID)
	if err != nil {
		log.WithError(err).Warn("не удалось создать встречу")
		return
	}
	if link == "" {
		return
	}

	var orphan bool
	err = s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		current, err := st.Schedules().GetForUpdate(ctx, sched.ID)
		if err != nil {
			return err
		}
		if current.Status == valueobject.ScheduleCancelled {
			orphan = true
			return nil
		}
		current.SetMeeting(link, eventID, s.clock.Now())
		if err := st.Schedules().Update(ctx, current); err != nil {
			return err
		}
		*sched = *current
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("не удалось сохранить ссылку на встречу")
		orphan = true
	}
	if orphan {
		s.deleteMeetings(ctx, []string{eventID})
	}
}

func (s *ScheduleService) deleteMeetings(ctx context.Context, eventIDs []string) {
	for _, id := range eventIDs {
		if id == "" {
			continue
		}
		if err := s.meetings.DeleteMeeting(ctx, id); err != nil {
			logger.Component("schedule").WithFields(logrus.Fields{"event_id": id}).WithError(err).
				Warn("не удалось удалить встречу")
		}
	}
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*entity.Schedule, error) {
	sched, err := s.txm.Schedules().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !sched.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return sched, nil
}

func (s *ScheduleService) ListByBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) ([]*entity.Schedule, error) {
	b, err := s.txm.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !b.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return s.txm.Schedules().ListByBooking(ctx, bookingID)
}

// UpdateStatus - ручной переход занятия участником или администратором.
// Processing и Completed достижимы только через подтверждение проведения.
func (s *ScheduleService) UpdateStatus(ctx context.Context, id, actorID uuid.UUID, actor valueobject.Actor, status valueobject.ScheduleStatus) (*entity.Schedule, error) {
	switch status {
	case valueobject.ScheduleCancelled:
		return s.CancelSchedule(ctx, id, actorID, actor)
	case valueobject.ScheduleInProgress, valueobject.SchedulePending:
	default:
		return nil, apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict,
			"статус "+string(status)+" выставляется подтверждением занятия")
	}

	var sched *entity.Schedule
	var out outbox
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		sched, err = st.Schedules().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor != valueobject.ActorAdmin && !sched.IsParticipant(actorID) {
			return apperror.ErrForbidden
		}
		now := s.clock.Now()
		if status == valueobject.ScheduleInProgress {
			err = s.start(ctx, st, sched, now)
		} else {
			err = s.finish(ctx, st, sched, now, &out)
		}
		if err != nil {
			return err
		}
		return s.fold(ctx, st, sched.BookingID, now, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule service: update status: %w", err)
	}
	out.flush(ctx, s.notifier)
	return sched, nil
}

// AdvanceSchedule продвигает занятие по времени: Upcoming → InProgress → Pending.
// Повторный вызов без наступившего времени ничего не меняет.
func (s *ScheduleService) AdvanceSchedule(ctx context.Context, id uuid.UUID) error {
	var out outbox
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		sched, err := st.Schedules().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		changed := false
		if sched.Status == valueobject.ScheduleUpcoming && !now.Before(sched.StartAt) {
			if err := s.start(ctx, st, sched, now); err != nil {
				return err
			}
			changed = true
		}
		if sched.Status == valueobject.ScheduleInProgress && !now.Before(sched.EndAt) {
			if err := s.finish(ctx, st, sched, now, &out); err != nil {
				return err
			}
			changed = true
		}
		if !changed {
			return nil
		}
		return s.fold(ctx, st, sched.BookingID, now, &out)
	})
	if err != nil {
		return fmt.Errorf("schedule service: advance: %w", err)
	}
	out.flush(ctx, s.notifier)
	return nil
}

func (s *ScheduleService) start(ctx context.Context, st repository.Store, sched *entity.Schedule, now time.Time) error {
	if err := sched.Start(now); err != nil {
		return err
	}
	a, err := st.Availabilities().GetForUpdate(ctx, sched.AvailabilityID)
	if err != nil {
		return err
	}
	if a.Status == valueobject.AvailabilityBooked {
		if err := a.TransitionTo(valueobject.AvailabilityInProgress, now); err != nil {
			return err
		}
		if err := st.Availabilities().Update(ctx, a); err != nil {
			return err
		}
	}
	return st.Schedules().Update(ctx, sched)
}

// finish закрывает занятие по времени и открывает окно подтверждения.
func (s *ScheduleService) finish(ctx context.Context, st repository.Store, sched *entity.Schedule, now time.Time, out *outbox) error {
	if err := sched.Finish(now); err != nil {
		return err
	}
	if err := st.Schedules().Update(ctx, sched); err != nil {
		return err
	}

	_, err := st.Confirmations().GetByScheduleForUpdate(ctx, sched.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrConfirmationNotFound) {
		return err
	}
	conf := entity.NewCompletionConfirmation(sched, s.policy.CompletionGrace, now)
	if err := st.Confirmations().Create(ctx, conf); err != nil {
		return err
	}
	out.add(sched.LearnerID, EventCompletionRequested, map[string]any{
		"schedule_id": sched.ID,
		"deadline":    conf.Deadline,
	})
	return nil
}

func (s *ScheduleService) fold(ctx context.Context, st repository.Store, bookingID uuid.UUID, now time.Time, out *outbox) error {
	b, err := st.Bookings().GetForUpdate(ctx, bookingID)
	if err != nil {
		return err
	}
	changed, err := foldBooking(ctx, st, b, now)
	if err != nil {
		return err
	}
	if changed {
		event := EventBookingCompleted
		if b.Status == valueobject.BookingCancelled {
			event = EventBookingCancelled
		}
		out.add(b.LearnerID, event, bookingNotice(b))
		out.add(b.TutorID, event, bookingNotice(b))
	}
	return nil
}

// CancelSchedule отменяет одно занятие. Пользователь не может отменить занятие
// ближе NoCancelWindow к началу, администратор и система могут.
func (s *ScheduleService) CancelSchedule(ctx context.Context, id, actorID uuid.UUID, actor valueobject.Actor) (*entity.Schedule, error) {
	var sched *entity.Schedule
	var meetings []string
	var out outbox
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		var err error
		sched, err = st.Schedules().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor == valueobject.ActorUser {
			if !sched.IsParticipant(actorID) {
				return apperror.ErrForbidden
			}
			if sched.StartsWithin(now, s.policy.NoCancelWindow) {
				return apperror.ErrTooLateToCancel
			}
		}
		b, err := st.Bookings().GetForUpdate(ctx, sched.BookingID)
		if err != nil {
			return err
		}
		eventID, err := s.cancelInTx(ctx, st, sched, b, now)
		if err != nil {
			return err
		}
		if eventID != "" {
			meetings = append(meetings, eventID)
		}
		out.add(sched.TutorID, EventScheduleCancelled, scheduleNotice(sched))
		out.add(sched.LearnerID, EventScheduleCancelled, scheduleNotice(sched))

		return s.fold(ctx, st, b.ID, now, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule service: cancel: %w", err)
	}
	s.deleteMeetings(ctx, meetings)
	out.flush(ctx, s.notifier)
	return sched, nil
}

// cancelInTx отменяет занятие со всеми последствиями: слот, возврат, выплата,
// подтверждение и открытые запросы на перенос. Бронирование b сохраняется при изменении,
// свёртка статуса остаётся вызывающему. Возвращает id встречи для удаления после коммита.
func (s *ScheduleService) cancelInTx(ctx context.Context, st repository.Store, sched *entity.Schedule, b *entity.Booking, now time.Time) (string, error) {
	if err := sched.Cancel(now); err != nil {
		return "", err
	}

	a, err := st.Availabilities().GetForUpdate(ctx, sched.AvailabilityID)
	if err != nil {
		return "", err
	}
	switch a.Status {
	case valueobject.AvailabilityBooked:
		if sched.StartsWithin(now, s.policy.NoCancelWindow) {
			err = a.TransitionTo(valueobject.AvailabilityCancelled, now)
		} else {
			err = a.Release(now)
		}
	case valueobject.AvailabilityInProgress:
		err = a.Override(valueobject.AvailabilityCancelled, now)
	default:
		err = nil
	}
	if err != nil {
		return "", err
	}
	if err := st.Availabilities().Update(ctx, a); err != nil {
		return "", err
	}

	if err := s.refundScheduleInTx(ctx, st, sched, b, now); err != nil {
		return "", err
	}

	conf, err := st.Confirmations().GetByScheduleForUpdate(ctx, sched.ID)
	switch {
	case err == nil:
		if conf.Status == valueobject.ConfirmationPendingConfirm || conf.Status == valueobject.ConfirmationReportedOnHold {
			if err := conf.Cancel(now); err != nil {
				return "", err
			}
			if err := st.Confirmations().Update(ctx, conf); err != nil {
				return "", err
			}
		}
	case !errors.Is(err, apperror.ErrConfirmationNotFound):
		return "", err
	}

	pending, err := st.ChangeRequests().ListPendingBySchedule(ctx, sched.ID)
	if err != nil {
		return "", err
	}
	for _, cr := range pending {
		if err := cr.Cancel("занятие отменено", now); err != nil {
			return "", err
		}
		if err := st.ChangeRequests().Update(ctx, cr); err != nil {
			return "", err
		}
	}

	eventID := ""
	if sched.MeetingEventID != nil {
		eventID = *sched.MeetingEventID
	}
	if err := st.Schedules().Update(ctx, sched); err != nil {
		return "", err
	}
	return eventID, nil
}

// refundScheduleInTx возвращает ученику стоимость одного занятия из escrow и отменяет
// невыплаченную выплату по нему. Повторный возврат по занятию не выполняется,
// занятие сохраняет вызывающий.
func (s *ScheduleService) refundScheduleInTx(ctx context.Context, st repository.Store, sched *entity.Schedule, b *entity.Booking, now time.Time) error {
	payout, err := st.Payouts().GetByScheduleForUpdate(ctx, sched.ID)
	switch {
	case err == nil:
		if payout.Status == valueobject.PayoutPaid {
			return nil
		}
		if !payout.IsSettled() {
			if err := payout.Cancel("занятие отменено", now); err != nil {
				return err
			}
			if err := st.Payouts().Update(ctx, payout); err != nil {
				return err
			}
		}
	case !errors.Is(err, apperror.ErrPayoutNotFound):
		return err
	}

	if sched.Refunded || b.PaymentStatus == valueobject.PaymentPending {
		return nil
	}
	released, err := releasedAmount(ctx, st, b.ID)
	if err != nil {
		return err
	}
	amount := min(b.UnitPrice, refundable(b, released))
	if amount <= 0 {
		return nil
	}

	escrow, err := s.ledger.Escrow(ctx, st)
	if err != nil {
		return err
	}
	learner, err := s.ledger.EnsureWallet(ctx, st, b.LearnerID, valueobject.WalletPersonal)
	if err != nil {
		return err
	}
	if err := s.ledger.LockWallets(ctx, st, escrow.ID, learner.ID); err != nil {
		return err
	}
	ref := b.ID
	desc := "возврат за отменённое занятие " + sched.ID.String()
	if _, err := s.ledger.Debit(ctx, st, escrow.ID, amount, valueobject.ReasonBookingRefund, &ref, desc); err != nil {
		return err
	}
	if _, err := s.ledger.Credit(ctx, st, learner.ID, amount, valueobject.ReasonBookingRefund, &ref, desc); err != nil {
		return err
	}
	if err := b.ApplyRefund(amount, now); err != nil {
		return err
	}
	sched.Refunded = true
	sched.UpdatedAt = now
	return st.Bookings().Update(ctx, b)
}

// ListDue отдаёт занятия, которым пора сменить статус по времени.
func (s *ScheduleService) ListDue(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return s.txm.Schedules().ListDue(ctx, s.clock.Now(), limit)
}
