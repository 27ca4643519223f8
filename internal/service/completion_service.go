package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// CompletionService подтверждает проведённые занятия и запускает выплаты.
type CompletionService struct {
	txm       repository.TxManager
	clock     clock.Clock
	policy    Policy
	payouts   *PayoutService
	schedules *ScheduleService
	notifier  Notifier
}

func NewCompletionService(txm repository.TxManager, clk clock.Clock, policy Policy, payouts *PayoutService,
	schedules *ScheduleService, notifier Notifier) *CompletionService {
	return &CompletionService{
		txm:       txm,
		clock:     clk,
		policy:    policy,
		payouts:   payouts,
		schedules: schedules,
		notifier:  notifierOrNoop(notifier),
	}
}

// ConfirmByLearner - ученик подтверждает, что занятие состоялось.
func (c *CompletionService) ConfirmByLearner(ctx context.Context, scheduleID, learnerID uuid.UUID) (*entity.CompletionConfirmation, error) {
	var conf *entity.CompletionConfirmation
	var out outbox
	err := c.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := c.clock.Now()
		sched, err := st.Schedules().GetForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if sched.LearnerID != learnerID {
			return apperror.ErrForbidden
		}
		conf, err = st.Confirmations().GetByScheduleForUpdate(ctx, sched.ID)
		if err != nil {
			return err
		}
		onHold, err := st.Reports().HasUnresolved(ctx, sched.BookingID, sched.ID)
		if err != nil {
			return err
		}
		if onHold {
			return apperror.ErrOnHold
		}
		if err := conf.ConfirmByLearner(now); err != nil {
			return err
		}
		if err := st.Confirmations().Update(ctx, conf); err != nil {
			return err
		}
		if err := c.completeInTx(ctx, st, sched, conf, now, &out); err != nil {
			return err
		}
		out.add(sched.TutorID, EventCompletionConfirmed, scheduleNotice(sched))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("completion service: confirm: %w", err)
	}
	out.flush(ctx, c.notifier)
	return conf, nil
}

// AutoComplete закрывает подтверждение после дедлайна. При открытой жалобе
// подтверждение и занятие уходят на удержание, выплата не создаётся.
func (c *CompletionService) AutoComplete(ctx context.Context, confirmationID uuid.UUID) error {
	var out outbox
	err := c.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := c.clock.Now()
		conf, err := st.Confirmations().GetForUpdate(ctx, confirmationID)
		if err != nil {
			return err
		}
		if conf.Status != valueobject.ConfirmationPendingConfirm || !now.After(conf.Deadline) {
			return nil
		}
		sched, err := st.Schedules().GetForUpdate(ctx, conf.ScheduleID)
		if err != nil {
			return err
		}

		onHold, err := st.Reports().HasUnresolved(ctx, conf.BookingID, conf.ScheduleID)
		if err != nil {
			return err
		}
		if onHold {
			if err := conf.Hold(nil, now); err != nil {
				return err
			}
			if err := st.Confirmations().Update(ctx, conf); err != nil {
				return err
			}
			if sched.Status == valueobject.SchedulePending {
				if err := sched.HoldForReview(now); err != nil {
					return err
				}
				return st.Schedules().Update(ctx, sched)
			}
			return nil
		}

		if err := conf.AutoComplete(now); err != nil {
			return err
		}
		if err := st.Confirmations().Update(ctx, conf); err != nil {
			return err
		}
		return c.completeInTx(ctx, st, sched, conf, now, &out)
	})
	if err != nil {
		return fmt.Errorf("completion service: auto complete %s: %w", confirmationID, err)
	}
	out.flush(ctx, c.notifier)
	return nil
}

// completeInTx завершает занятие, создаёт выплату и сворачивает статус бронирования.
func (c *CompletionService) completeInTx(ctx context.Context, st repository.Store, sched *entity.Schedule,
	conf *entity.CompletionConfirmation, now time.Time, out *outbox) error {
	if err := sched.Complete(now); err != nil {
		return err
	}
	if err := st.Schedules().Update(ctx, sched); err != nil {
		return err
	}
	b, err := st.Bookings().GetForUpdate(ctx, sched.BookingID)
	if err != nil {
		return err
	}
	scheduledAt := conf.ConfirmationTime(now).Add(c.policy.PayoutDelay)
	if _, err := c.payouts.createForSchedule(ctx, st, sched, b, conf.Trigger(), scheduledAt, now); err != nil {
		return err
	}
	return c.schedules.fold(ctx, st, b.ID, now, out)
}

// resolveHoldInTx применяет решение администратора по занятию на удержании.
func (c *CompletionService) resolveHoldInTx(ctx context.Context, st repository.Store, sched *entity.Schedule,
	resolution valueobject.HoldResolution, now time.Time, out *outbox) (string, error) {
	conf, err := st.Confirmations().GetByScheduleForUpdate(ctx, sched.ID)
	if err != nil && !errors.Is(err, apperror.ErrConfirmationNotFound) {
		return "", err
	}
	if errors.Is(err, apperror.ErrConfirmationNotFound) {
		conf = nil
	}
	b, err := st.Bookings().GetForUpdate(ctx, sched.BookingID)
	if err != nil {
		return "", err
	}

	switch resolution {
	case valueobject.ResolutionReleaseToTutor:
		return "", c.releaseToTutor(ctx, st, sched, b, conf, now, out)
	case valueobject.ResolutionRefundLearner:
		return c.refundLearner(ctx, st, sched, b, conf, now, out)
	}
	return "", apperror.New(apperror.ErrCodeValidation, "неизвестное решение по жалобе")
}

func (c *CompletionService) releaseToTutor(ctx context.Context, st repository.Store, sched *entity.Schedule, b *entity.Booking,
	conf *entity.CompletionConfirmation, now time.Time, out *outbox) error {
	if conf == nil {
		// занятие ещё идёт: дальше его поведёт обычный цикл подтверждения
		return nil
	}
	if conf.Status == valueobject.ConfirmationReportedOnHold {
		if err := conf.ReleaseHold(now); err != nil {
			return err
		}
		if err := st.Confirmations().Update(ctx, conf); err != nil {
			return err
		}
	}
	if !conf.Status.AllowsPayout() {
		return nil
	}

	if sched.Status == valueobject.SchedulePending || sched.Status == valueobject.ScheduleProcessing {
		if err := sched.Complete(now); err != nil {
			return err
		}
		if err := st.Schedules().Update(ctx, sched); err != nil {
			return err
		}
	}

	payout, err := st.Payouts().GetByScheduleForUpdate(ctx, sched.ID)
	switch {
	case err == nil:
		if payout.Status == valueobject.PayoutOnHold || payout.Status == valueobject.PayoutPending {
			if err := payout.MarkReady(now); err != nil {
				return err
			}
			if err := st.Payouts().Update(ctx, payout); err != nil {
				return err
			}
		}
	case errors.Is(err, apperror.ErrPayoutNotFound):
		if _, err := c.payouts.createForSchedule(ctx, st, sched, b, valueobject.PayoutTriggerAdminResolved, now, now); err != nil {
			return err
		}
	default:
		return err
	}
	return c.schedules.fold(ctx, st, b.ID, now, out)
}

func (c *CompletionService) refundLearner(ctx context.Context, st repository.Store, sched *entity.Schedule, b *entity.Booking,
	conf *entity.CompletionConfirmation, now time.Time, out *outbox) (string, error) {
	if conf != nil && !conf.Status.IsTerminal() {
		if err := conf.Cancel(now); err != nil {
			return "", err
		}
		if err := st.Confirmations().Update(ctx, conf); err != nil {
			return "", err
		}
	}

	var eventID string
	if sched.Status.IsTerminal() {
		// занятие уже завершено: возвращаем деньги без смены статуса
		if err := c.schedules.refundScheduleInTx(ctx, st, sched, b, now); err != nil {
			return "", err
		}
		if err := st.Schedules().Update(ctx, sched); err != nil {
			return "", err
		}
	} else {
		var err error
		if eventID, err = c.schedules.cancelInTx(ctx, st, sched, b, now); err != nil {
			return "", err
		}
		out.add(sched.LearnerID, EventScheduleCancelled, scheduleNotice(sched))
		out.add(sched.TutorID, EventScheduleCancelled, scheduleNotice(sched))
	}
	if err := c.schedules.fold(ctx, st, b.ID, now, out); err != nil {
		return "", err
	}
	return eventID, nil
}

func (c *CompletionService) GetBySchedule(ctx context.Context, scheduleID, userID uuid.UUID, isAdmin bool) (*entity.CompletionConfirmation, error) {
	conf, err := c.txm.Confirmations().GetByScheduleForUpdate(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && conf.LearnerID != userID && conf.TutorID != userID {
		return nil, apperror.ErrForbidden
	}
	return conf, nil
}

// ListOverdue отдаёт подтверждения с истёкшим дедлайном.
func (c *CompletionService) ListOverdue(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return c.txm.Confirmations().ListOverdue(ctx, c.clock.Now(), limit)
}
