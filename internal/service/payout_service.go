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
	"github.com/ignatzorin/tutoring-backend/internal/logger"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

const reasonRefunded = "средства по бронированию возвращены ученику"

// PayoutService создаёт и проводит выплаты преподавателям за подтверждённые занятия.
type PayoutService struct {
	txm      repository.TxManager
	clock    clock.Clock
	policy   Policy
	ledger   *LedgerService
	notifier Notifier
}

func NewPayoutService(txm repository.TxManager, clk clock.Clock, policy Policy, ledger *LedgerService, notifier Notifier) *PayoutService {
	return &PayoutService{txm: txm, clock: clk, policy: policy, ledger: ledger, notifier: notifierOrNoop(notifier)}
}

// createForSchedule создаёт выплату по занятию. На занятие приходится не более одной выплаты:
// при повторном вызове возвращается существующая.
func (p *PayoutService) createForSchedule(ctx context.Context, st repository.Store, sched *entity.Schedule, b *entity.Booking,
	trigger valueobject.PayoutTrigger, scheduledAt, now time.Time) (*entity.Payout, error) {
	existing, err := st.Payouts().GetByScheduleForUpdate(ctx, sched.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrPayoutNotFound) {
		return nil, err
	}

	tutorWallet, err := p.ledger.EnsureWallet(ctx, st, b.TutorID, valueobject.WalletPersonal)
	if err != nil {
		return nil, err
	}
	payout, err := entity.NewPayout(sched, b, tutorWallet.ID, trigger, scheduledAt, now)
	if err != nil {
		return nil, err
	}
	committed, err := committedAmount(ctx, st, b.ID)
	if err != nil {
		return nil, err
	}
	if refundable(b, committed) < payout.Amount+payout.SystemFeeAmount {
		// доля занятия уже вернулась ученику: выплата сразу отменена
		if err := payout.Cancel(reasonRefunded, now); err != nil {
			return nil, err
		}
	}
	if err := st.Payouts().Create(ctx, payout); err != nil {
		return nil, err
	}
	return payout, nil
}

// ReleasePayout проводит выплату, если наступила дата и по занятию нет открытой жалобы.
// Выплата с открытой жалобой переводится в OnHold и ждёт следующего прохода.
func (p *PayoutService) ReleasePayout(ctx context.Context, payoutID uuid.UUID) error {
	var paid *entity.Payout
	err := p.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := p.clock.Now()
		peek, err := st.Payouts().Get(ctx, payoutID)
		if err != nil {
			return err
		}
		if peek.IsSettled() || !peek.IsDue(now) {
			return nil
		}

		// порядок блокировок как у завершения занятия: подтверждение, бронирование, выплата
		conf, err := st.Confirmations().GetByScheduleForUpdate(ctx, peek.ScheduleID)
		if err != nil {
			return err
		}
		b, err := st.Bookings().GetForUpdate(ctx, peek.BookingID)
		if err != nil {
			return err
		}
		payout, err := st.Payouts().GetForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if payout.IsSettled() {
			return nil
		}
		onHold, err := st.Reports().HasUnresolved(ctx, payout.BookingID, payout.ScheduleID)
		if err != nil {
			return err
		}
		if onHold || conf.Status == valueobject.ConfirmationReportedOnHold {
			if err := payout.Hold(now); err != nil {
				return err
			}
			return st.Payouts().Update(ctx, payout)
		}
		if !conf.Status.AllowsPayout() {
			return nil
		}

		if err := payout.MarkReady(now); err != nil {
			return err
		}
		ok, err := p.settle(ctx, st, b, payout, now)
		if err != nil {
			return err
		}
		if ok {
			paid = payout
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("payout service: release %s: %w", payoutID, err)
	}
	if paid != nil {
		logger.Component("payout").WithField("payout_id", paid.ID).Info("выплата проведена")
		p.notifier.Notify(ctx, paid.TutorID, EventPayoutPaid, map[string]any{
			"payout_id":   paid.ID,
			"schedule_id": paid.ScheduleID,
			"amount":      valueobject.Money(paid.Amount).String(),
		})
	}
	return nil
}

// settle переносит долю занятия из escrow: преподавателю сумма выплаты, платформе комиссия.
// Если остаток бронирования в escrow меньше доли, выплата отменяется и settle возвращает false.
// Бронирование должно быть заблокировано вызывающим.
func (p *PayoutService) settle(ctx context.Context, st repository.Store, b *entity.Booking, payout *entity.Payout, now time.Time) (bool, error) {
	released, err := releasedAmount(ctx, st, b.ID)
	if err != nil {
		return false, err
	}
	if refundable(b, released) < payout.Amount+payout.SystemFeeAmount {
		logger.Component("payout").WithField("payout_id", payout.ID).Warn("остаток бронирования меньше выплаты, выплата отменена")
		if err := payout.Cancel(reasonRefunded, now); err != nil {
			return false, err
		}
		return false, st.Payouts().Update(ctx, payout)
	}

	escrow, err := p.ledger.Escrow(ctx, st)
	if err != nil {
		return false, err
	}
	revenue, err := p.ledger.Revenue(ctx, st)
	if err != nil {
		return false, err
	}
	if err := p.ledger.LockWallets(ctx, st, escrow.ID, payout.TutorWalletID, revenue.ID); err != nil {
		return false, err
	}

	ref := payout.ID
	desc := "выплата за занятие " + payout.ScheduleID.String()
	if total := payout.Amount + payout.SystemFeeAmount; total > 0 {
		if _, err := p.ledger.Debit(ctx, st, escrow.ID, total, valueobject.ReasonBookingPayout, &ref, desc); err != nil {
			return false, err
		}
	}

	var txID uuid.UUID
	if payout.Amount > 0 {
		tx, err := p.ledger.Credit(ctx, st, payout.TutorWalletID, payout.Amount, valueobject.ReasonBookingPayout, &ref, desc)
		if err != nil {
			return false, err
		}
		txID = tx.ID
	}
	if payout.SystemFeeAmount > 0 {
		tx, err := p.ledger.Credit(ctx, st, revenue.ID, payout.SystemFeeAmount, valueobject.ReasonSystemFee, &ref, desc)
		if err != nil {
			return false, err
		}
		if txID == uuid.Nil {
			txID = tx.ID
		}
	}

	if err := payout.MarkPaid(txID, now); err != nil {
		return false, err
	}
	return true, st.Payouts().Update(ctx, payout)
}

// CancelPayout отменяет невыплаченную выплату по решению администратора.
func (p *PayoutService) CancelPayout(ctx context.Context, payoutID uuid.UUID, reason string) (*entity.Payout, error) {
	var payout *entity.Payout
	err := p.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		payout, err = st.Payouts().GetForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if err := payout.Cancel(reason, p.clock.Now()); err != nil {
			return err
		}
		return st.Payouts().Update(ctx, payout)
	})
	if err != nil {
		return nil, fmt.Errorf("payout service: cancel: %w", err)
	}
	return payout, nil
}

func (p *PayoutService) GetPayout(ctx context.Context, payoutID uuid.UUID) (*entity.Payout, error) {
	return p.txm.Payouts().Get(ctx, payoutID)
}

// ListDue отдаёт выплаты с наступившей датой.
func (p *PayoutService) ListDue(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return p.txm.Payouts().ListDue(ctx, p.clock.Now(), limit)
}
