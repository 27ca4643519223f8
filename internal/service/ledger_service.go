package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// LedgerService ведёт кошельки и журнал транзакций.
// Методы с параметром repository.Store вызываются только внутри открытой транзакции.
type LedgerService struct {
	txm   repository.TxManager
	clock clock.Clock
}

func NewLedgerService(txm repository.TxManager, clk clock.Clock) *LedgerService {
	return &LedgerService{txm: txm, clock: clk}
}

// EnsureWallet возвращает кошелёк владельца под блокировкой, создавая его при первом обращении.
func (l *LedgerService) EnsureWallet(ctx context.Context, s repository.Store, ownerID uuid.UUID, kind valueobject.WalletKind) (*entity.Wallet, error) {
	w, err := s.Wallets().GetByOwnerForUpdate(ctx, ownerID, kind)
	if err == nil {
		return w, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	w = entity.NewWallet(ownerID, kind, l.clock.Now())
	if err := s.Wallets().Create(ctx, w); err != nil {
		if errors.Is(err, apperror.ErrWalletExists) {
			return s.Wallets().GetByOwnerForUpdate(ctx, ownerID, kind)
		}
		return nil, err
	}
	return w, nil
}

func (l *LedgerService) Escrow(ctx context.Context, s repository.Store) (*entity.Wallet, error) {
	return l.EnsureWallet(ctx, s, entity.PlatformOwnerID, valueobject.WalletEscrow)
}

func (l *LedgerService) Revenue(ctx context.Context, s repository.Store) (*entity.Wallet, error) {
	return l.EnsureWallet(ctx, s, entity.PlatformOwnerID, valueobject.WalletRevenue)
}

// LockWallets блокирует кошельки в порядке возрастания id, чтобы встречные переводы не взаимоблокировались.
func (l *LedgerService) LockWallets(ctx context.Context, s repository.Store, ids ...uuid.UUID) error {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })
	for _, id := range sorted {
		if _, err := s.Wallets().GetForUpdate(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Credit зачисляет сумму и пишет завершённую транзакцию.
func (l *LedgerService) Credit(ctx context.Context, s repository.Store, walletID uuid.UUID, amount int64,
	reason valueobject.TransactionReason, ref *uuid.UUID, description string) (*entity.WalletTransaction, error) {
	return l.post(ctx, s, walletID, valueobject.TransactionCredit, amount, reason, ref, description)
}

// Debit списывает сумму и пишет завершённую транзакцию.
func (l *LedgerService) Debit(ctx context.Context, s repository.Store, walletID uuid.UUID, amount int64,
	reason valueobject.TransactionReason, ref *uuid.UUID, description string) (*entity.WalletTransaction, error) {
	return l.post(ctx, s, walletID, valueobject.TransactionDebit, amount, reason, ref, description)
}

func (l *LedgerService) post(ctx context.Context, s repository.Store, walletID uuid.UUID, txType valueobject.TransactionType,
	amount int64, reason valueobject.TransactionReason, ref *uuid.UUID, description string) (*entity.WalletTransaction, error) {
	now := l.clock.Now()
	w, err := s.Wallets().GetForUpdate(ctx, walletID)
	if err != nil {
		return nil, err
	}

	var before, after int64
	if txType == valueobject.TransactionCredit {
		before, after, err = w.Credit(amount, now)
	} else {
		before, after, err = w.Debit(amount, now)
	}
	if err != nil {
		return nil, err
	}

	tx, err := entity.NewWalletTransaction(w.ID, txType, reason, amount, before, after,
		valueobject.TransactionCompleted, ref, description, now)
	if err != nil {
		return nil, err
	}
	if err := s.Wallets().Update(ctx, w); err != nil {
		return nil, err
	}
	if err := s.Wallets().CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Hold удерживает сумму на кошельке и пишет отложенную транзакцию списания.
func (l *LedgerService) Hold(ctx context.Context, s repository.Store, walletID uuid.UUID, amount int64,
	reason valueobject.TransactionReason, ref *uuid.UUID, description string) (*entity.WalletTransaction, error) {
	now := l.clock.Now()
	w, err := s.Wallets().GetForUpdate(ctx, walletID)
	if err != nil {
		return nil, err
	}
	before, after, err := w.Hold(amount, now)
	if err != nil {
		return nil, err
	}
	tx, err := entity.NewWalletTransaction(w.ID, valueobject.TransactionDebit, reason, amount, before, after,
		valueobject.TransactionPending, ref, description, now)
	if err != nil {
		return nil, err
	}
	if err := s.Wallets().Update(ctx, w); err != nil {
		return nil, err
	}
	if err := s.Wallets().CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// SettleHold завершает отложенную транзакцию: удержание списывается окончательно.
func (l *LedgerService) SettleHold(ctx context.Context, s repository.Store, txID uuid.UUID) error {
	now := l.clock.Now()
	tx, err := s.Wallets().GetTransactionForUpdate(ctx, txID)
	if err != nil {
		return err
	}
	w, err := s.Wallets().GetForUpdate(ctx, tx.WalletID)
	if err != nil {
		return err
	}
	if err := w.SettleHold(tx.Amount, now); err != nil {
		return err
	}
	if err := tx.Complete(now); err != nil {
		return err
	}
	if err := s.Wallets().Update(ctx, w); err != nil {
		return err
	}
	return s.Wallets().UpdateTransactionStatus(ctx, tx)
}

// ReleaseHold отменяет отложенную транзакцию и возвращает сумму в доступный баланс
// отдельной транзакцией зачисления.
func (l *LedgerService) ReleaseHold(ctx context.Context, s repository.Store, txID uuid.UUID,
	reason valueobject.TransactionReason, description string) (*entity.WalletTransaction, error) {
	now := l.clock.Now()
	held, err := s.Wallets().GetTransactionForUpdate(ctx, txID)
	if err != nil {
		return nil, err
	}
	w, err := s.Wallets().GetForUpdate(ctx, held.WalletID)
	if err != nil {
		return nil, err
	}
	before, after, err := w.ReleaseHold(held.Amount, now)
	if err != nil {
		return nil, err
	}
	if err := held.Fail(now); err != nil {
		return nil, err
	}
	reversal, err := entity.NewWalletTransaction(w.ID, valueobject.TransactionCredit, reason, held.Amount, before, after,
		valueobject.TransactionCompleted, held.ReferenceID, description, now)
	if err != nil {
		return nil, err
	}
	if err := s.Wallets().Update(ctx, w); err != nil {
		return nil, err
	}
	if err := s.Wallets().UpdateTransactionStatus(ctx, held); err != nil {
		return nil, err
	}
	if err := s.Wallets().CreateTransaction(ctx, reversal); err != nil {
		return nil, err
	}
	return reversal, nil
}

// Deposit пополняет личный кошелёк пользователя.
func (l *LedgerService) Deposit(ctx context.Context, ownerID uuid.UUID, amount int64, description string) (*entity.WalletTransaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	var tx *entity.WalletTransaction
	err := l.txm.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		w, err := l.EnsureWallet(ctx, s, ownerID, valueobject.WalletPersonal)
		if err != nil {
			return err
		}
		tx, err = l.Credit(ctx, s, w.ID, amount, valueobject.ReasonDeposit, nil, description)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ledger service: deposit: %w", err)
	}
	return tx, nil
}

// GetWallet возвращает личный кошелёк, создавая его если не существует.
func (l *LedgerService) GetWallet(ctx context.Context, ownerID uuid.UUID) (*entity.Wallet, error) {
	var w *entity.Wallet
	err := l.txm.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		var err error
		w, err = l.EnsureWallet(ctx, s, ownerID, valueobject.WalletPersonal)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ledger service: get wallet: %w", err)
	}
	return w, nil
}

// PlatformWallet возвращает служебный кошелёк платформы (escrow или revenue).
func (l *LedgerService) PlatformWallet(ctx context.Context, kind valueobject.WalletKind) (*entity.Wallet, error) {
	if kind != valueobject.WalletEscrow && kind != valueobject.WalletRevenue {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип служебного кошелька")
	}
	var w *entity.Wallet
	err := l.txm.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		var err error
		w, err = l.EnsureWallet(ctx, s, entity.PlatformOwnerID, kind)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ledger service: platform wallet: %w", err)
	}
	return w, nil
}

func (l *LedgerService) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.WalletTransaction, error) {
	limit = clampLimit(limit)
	w, err := l.txm.Wallets().GetByOwner(ctx, ownerID, valueobject.WalletPersonal)
	if err != nil {
		if apperror.IsNotFound(err) {
			return []*entity.WalletTransaction{}, nil
		}
		return nil, fmt.Errorf("ledger service: list transactions: %w", err)
	}
	return l.txm.Wallets().ListTransactions(ctx, w.ID, limit, offset)
}

// clampLimit ограничивает размер страницы так же, как списки уведомлений.
func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
