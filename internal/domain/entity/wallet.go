package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// PlatformOwnerID - владелец служебных кошельков (escrow, revenue).
var PlatformOwnerID = uuid.Nil

// Wallet - баланс владельца. LockedBalance - сумма, удержанная под незавершённые операции.
type Wallet struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	OwnerID       uuid.UUID              `db:"owner_id" json:"owner_id"`
	Kind          valueobject.WalletKind `db:"kind" json:"kind"`
	Balance       int64                  `db:"balance" json:"balance"`
	LockedBalance int64                  `db:"locked_balance" json:"locked_balance"`
	Version       int64                  `db:"version" json:"-"`
	CreatedAt     time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time              `db:"updated_at" json:"updated_at"`
}

func NewWallet(ownerID uuid.UUID, kind valueobject.WalletKind, now time.Time) *Wallet {
	return &Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit зачисляет сумму и возвращает баланс до и после.
func (w *Wallet) Credit(amount int64, now time.Time) (before, after int64, err error) {
	if amount <= 0 {
		return 0, 0, apperror.ErrInvalidAmount
	}
	before = w.Balance
	w.Balance += amount
	w.UpdatedAt = now
	return before, w.Balance, nil
}

// Debit списывает сумму. Баланс не может уйти в минус.
func (w *Wallet) Debit(amount int64, now time.Time) (before, after int64, err error) {
	if amount <= 0 {
		return 0, 0, apperror.ErrInvalidAmount
	}
	if w.Balance < amount {
		return 0, 0, apperror.ErrInsufficientFunds
	}
	before = w.Balance
	w.Balance -= amount
	w.UpdatedAt = now
	return before, w.Balance, nil
}

// Hold переносит сумму из доступного баланса в удержанный.
func (w *Wallet) Hold(amount int64, now time.Time) (before, after int64, err error) {
	before, after, err = w.Debit(amount, now)
	if err != nil {
		return 0, 0, err
	}
	w.LockedBalance += amount
	return before, after, nil
}

// SettleHold окончательно списывает удержанную сумму.
func (w *Wallet) SettleHold(amount int64, now time.Time) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount
	}
	if w.LockedBalance < amount {
		return apperror.Invariant("удержано %d, списывается %d в кошельке %s", w.LockedBalance, amount, w.ID)
	}
	w.LockedBalance -= amount
	w.UpdatedAt = now
	return nil
}

// ReleaseHold возвращает удержанную сумму в доступный баланс.
func (w *Wallet) ReleaseHold(amount int64, now time.Time) (before, after int64, err error) {
	if amount <= 0 {
		return 0, 0, apperror.ErrInvalidAmount
	}
	if w.LockedBalance < amount {
		return 0, 0, apperror.Invariant("удержано %d, возвращается %d в кошельке %s", w.LockedBalance, amount, w.ID)
	}
	w.LockedBalance -= amount
	before = w.Balance
	w.Balance += amount
	w.UpdatedAt = now
	return before, w.Balance, nil
}

// WalletTransaction - неизменяемая запись журнала по кошельку.
type WalletTransaction struct {
	ID            uuid.UUID                     `db:"id" json:"id"`
	WalletID      uuid.UUID                     `db:"wallet_id" json:"wallet_id"`
	Amount        int64                         `db:"amount" json:"amount"`
	Type          valueobject.TransactionType   `db:"type" json:"type"`
	Reason        valueobject.TransactionReason `db:"reason" json:"reason"`
	BalanceBefore int64                         `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64                         `db:"balance_after" json:"balance_after"`
	Status        valueobject.TransactionStatus `db:"status" json:"status"`
	ReferenceID   *uuid.UUID                    `db:"reference_id" json:"reference_id,omitempty"`
	Description   *string                       `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time                     `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time                    `db:"completed_at" json:"completed_at,omitempty"`
}

// NewWalletTransaction проверяет согласованность балансов до и после.
func NewWalletTransaction(
	walletID uuid.UUID,
	txType valueobject.TransactionType,
	reason valueobject.TransactionReason,
	amount, before, after int64,
	status valueobject.TransactionStatus,
	referenceID *uuid.UUID,
	description string,
	now time.Time,
) (*WalletTransaction, error) {
	expected := before + amount
	if txType == valueobject.TransactionDebit {
		expected = before - amount
	}
	if after != expected || after < 0 {
		return nil, apperror.Invariant("нарушен баланс транзакции: %s %d, до %d, после %d", txType, amount, before, after)
	}

	tx := &WalletTransaction{
		ID:            uuid.New(),
		WalletID:      walletID,
		Amount:        amount,
		Type:          txType,
		Reason:        reason,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        status,
		ReferenceID:   referenceID,
		CreatedAt:     now,
	}
	if description != "" {
		tx.Description = &description
	}
	if status == valueobject.TransactionCompleted {
		tx.CompletedAt = &now
	}
	return tx, nil
}

// Complete переводит отложенную транзакцию в завершённую.
func (t *WalletTransaction) Complete(now time.Time) error {
	if t.Status != valueobject.TransactionPending {
		return apperror.ErrInvalidTransition
	}
	t.Status = valueobject.TransactionCompleted
	t.CompletedAt = &now
	return nil
}

func (t *WalletTransaction) Fail(now time.Time) error {
	if t.Status != valueobject.TransactionPending {
		return apperror.ErrInvalidTransition
	}
	t.Status = valueobject.TransactionFailed
	t.CompletedAt = &now
	return nil
}
