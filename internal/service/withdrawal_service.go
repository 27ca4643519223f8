package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// WithdrawalService - вывод средств с личного кошелька. Сумма удерживается
// при создании заявки и списывается или возвращается по решению администратора.
type WithdrawalService struct {
	txm      repository.TxManager
	clock    clock.Clock
	policy   Policy
	ledger   *LedgerService
	notifier Notifier
}

func NewWithdrawalService(txm repository.TxManager, clk clock.Clock, policy Policy, ledger *LedgerService, notifier Notifier) *WithdrawalService {
	return &WithdrawalService{txm: txm, clock: clk, policy: policy, ledger: ledger, notifier: notifierOrNoop(notifier)}
}

func (s *WithdrawalService) CreateWithdrawal(ctx context.Context, ownerID uuid.UUID, amount int64, cardLast4, bankName string) (*entity.Withdrawal, error) {
	var wd *entity.Withdrawal
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		w, err := s.ledger.EnsureWallet(ctx, st, ownerID, valueobject.WalletPersonal)
		if err != nil {
			return err
		}
		wd, err = entity.NewWithdrawal(w, amount, s.policy.MinWithdrawal, cardLast4, bankName, now)
		if err != nil {
			return err
		}
		ref := wd.ID
		tx, err := s.ledger.Hold(ctx, st, w.ID, amount, valueobject.ReasonWithdrawal, &ref, "вывод средств на карту *"+cardLast4)
		if err != nil {
			return err
		}
		wd.TransactionID = &tx.ID
		return st.Withdrawals().Create(ctx, wd)
	})
	if err != nil {
		return nil, fmt.Errorf("withdrawal service: create: %w", err)
	}
	return wd, nil
}

// CompleteWithdrawal окончательно списывает удержанную сумму.
func (s *WithdrawalService) CompleteWithdrawal(ctx context.Context, id uuid.UUID) (*entity.Withdrawal, error) {
	var wd *entity.Withdrawal
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		wd, err = st.Withdrawals().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := wd.Complete(s.clock.Now()); err != nil {
			return err
		}
		if wd.TransactionID == nil {
			return apperror.Invariant("у заявки на вывод %s нет транзакции удержания", wd.ID)
		}
		if err := s.ledger.SettleHold(ctx, st, *wd.TransactionID); err != nil {
			return err
		}
		return st.Withdrawals().Update(ctx, wd)
	})
	if err != nil {
		return nil, fmt.Errorf("withdrawal service: complete: %w", err)
	}
	s.notifier.Notify(ctx, wd.OwnerID, EventWithdrawalCompleted, withdrawalNotice(wd))
	return wd, nil
}

// RejectWithdrawal возвращает удержанную сумму на кошелёк.
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, id uuid.UUID, reason string) (*entity.Withdrawal, error) {
	var wd *entity.Withdrawal
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		wd, err = st.Withdrawals().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := wd.Reject(reason, s.clock.Now()); err != nil {
			return err
		}
		if wd.TransactionID == nil {
			return apperror.Invariant("у заявки на вывод %s нет транзакции удержания", wd.ID)
		}
		if _, err := s.ledger.ReleaseHold(ctx, st, *wd.TransactionID, valueobject.ReasonWithdrawalReversal, "отказ в выводе: "+reason); err != nil {
			return err
		}
		return st.Withdrawals().Update(ctx, wd)
	})
	if err != nil {
		return nil, fmt.Errorf("withdrawal service: reject: %w", err)
	}
	s.notifier.Notify(ctx, wd.OwnerID, EventWithdrawalRejected, withdrawalNotice(wd))
	return wd, nil
}

func (s *WithdrawalService) GetWithdrawal(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*entity.Withdrawal, error) {
	wd, err := s.txm.Withdrawals().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && wd.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}
	return wd, nil
}

func (s *WithdrawalService) ListUserWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Withdrawal, error) {
	return s.txm.Withdrawals().ListByOwner(ctx, userID, clampLimit(limit), offset)
}

func withdrawalNotice(wd *entity.Withdrawal) map[string]any {
	return map[string]any{
		"withdrawal_id": wd.ID,
		"status":        wd.Status,
		"amount":        valueobject.Money(wd.Amount).String(),
	}
}
