package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

const walletColumns = `id, owner_id, kind, balance, locked_balance, version, created_at, updated_at`

const transactionColumns = `id, wallet_id, amount, type, reason, balance_before, balance_after, status,
	reference_id, description, created_at, completed_at`

// WalletRepository - кошельки и журнал транзакций. Баланс меняется только
// в транзакции, которая вставляет соответствующую запись журнала.
type WalletRepository struct {
	q sqlx.ExtContext
}

// Create не прерывает транзакцию при гонке: ON CONFLICT без вставки даёт ErrWalletExists.
func (r *WalletRepository) Create(ctx context.Context, w *entity.Wallet) error {
	res, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES (:id, :owner_id, :kind, :balance, :locked_balance, :version, :created_at, :updated_at)
		ON CONFLICT (owner_id, kind) DO NOTHING
	`, w)
	if err != nil {
		return wrap(err, "wallet", "create")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, "wallet", "create")
	}
	if n == 0 {
		return apperror.ErrWalletExists
	}
	return nil
}

func (r *WalletRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.Wallet, error) {
	w, err := getOne[entity.Wallet](ctx, r.q, apperror.ErrWalletNotFound,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`+lockClause(forUpdate), id)
	return w, wrap(err, "wallet", "get")
}

func (r *WalletRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Wallet, error) {
	return r.get(ctx, id, false)
}

func (r *WalletRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Wallet, error) {
	return r.get(ctx, id, true)
}

func (r *WalletRepository) getByOwner(ctx context.Context, ownerID uuid.UUID, kind valueobject.WalletKind, forUpdate bool) (*entity.Wallet, error) {
	w, err := getOne[entity.Wallet](ctx, r.q, apperror.ErrWalletNotFound,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 AND kind = $2`+lockClause(forUpdate), ownerID, kind)
	return w, wrap(err, "wallet", "get by owner")
}

func (r *WalletRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID, kind valueobject.WalletKind) (*entity.Wallet, error) {
	return r.getByOwner(ctx, ownerID, kind, false)
}

func (r *WalletRepository) GetByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID, kind valueobject.WalletKind) (*entity.Wallet, error) {
	return r.getByOwner(ctx, ownerID, kind, true)
}

func (r *WalletRepository) Update(ctx context.Context, w *entity.Wallet) error {
	if w.Balance < 0 || w.LockedBalance < 0 {
		return apperror.Invariant("отрицательный баланс кошелька %s", w.ID)
	}
	err := execVersioned(ctx, r.q, `
		UPDATE wallets
		SET balance = :balance, locked_balance = :locked_balance, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, w)
	if err != nil {
		return wrap(err, "wallet", "update")
	}
	w.Version++
	return nil
}

func (r *WalletRepository) CreateTransaction(ctx context.Context, t *entity.WalletTransaction) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO wallet_transactions (`+transactionColumns+`)
		VALUES (:id, :wallet_id, :amount, :type, :reason, :balance_before, :balance_after, :status,
			:reference_id, :description, :created_at, :completed_at)
	`, t)
	return wrap(err, "wallet", "create transaction")
}

func (r *WalletRepository) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*entity.WalletTransaction, error) {
	t, err := getOne[entity.WalletTransaction](ctx, r.q, apperror.ErrTransactionNotFound,
		`SELECT `+transactionColumns+` FROM wallet_transactions WHERE id = $1 FOR UPDATE`, id)
	return t, wrap(err, "wallet", "get transaction")
}

func (r *WalletRepository) UpdateTransactionStatus(ctx context.Context, t *entity.WalletTransaction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE wallet_transactions SET status = $2, completed_at = $3
		WHERE id = $1 AND status = 'pending'
	`, t.ID, t.Status, t.CompletedAt)
	if err != nil {
		return wrap(err, "wallet", "update transaction status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, "wallet", "update transaction status")
	}
	if n == 0 {
		return apperror.Invariant("транзакция %s уже завершена", t.ID)
	}
	return nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entity.WalletTransaction, error) {
	rows, err := selectAll[entity.WalletTransaction](ctx, r.q, `
		SELECT `+transactionColumns+` FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	return rows, wrap(err, "wallet", "list transactions")
}
