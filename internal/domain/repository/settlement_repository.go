package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
)

type ConfirmationRepository interface {
	Create(ctx context.Context, c *entity.CompletionConfirmation) error
	Get(ctx context.Context, id uuid.UUID) (*entity.CompletionConfirmation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.CompletionConfirmation, error)
	// GetByScheduleForUpdate возвращает ErrConfirmationNotFound, если подтверждения ещё нет.
	GetByScheduleForUpdate(ctx context.Context, scheduleID uuid.UUID) (*entity.CompletionConfirmation, error)
	Update(ctx context.Context, c *entity.CompletionConfirmation) error
	// ListOverdue - PendingConfirm с дедлайном раньше now.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, p *entity.Payout) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payout, error)
	GetByScheduleForUpdate(ctx context.Context, scheduleID uuid.UUID) (*entity.Payout, error)
	Update(ctx context.Context, p *entity.Payout) error
	ListByBookingForUpdate(ctx context.Context, bookingID uuid.UUID) ([]*entity.Payout, error)
	// ListDue - Pending, ReadyForPayout и OnHold выплаты с наступившей датой.
	ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type WalletRepository interface {
	Create(ctx context.Context, w *entity.Wallet) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Wallet, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, kind valueobject.WalletKind) (*entity.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID, kind valueobject.WalletKind) (*entity.Wallet, error)
	Update(ctx context.Context, w *entity.Wallet) error

	CreateTransaction(ctx context.Context, t *entity.WalletTransaction) error
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*entity.WalletTransaction, error)
	// UpdateTransactionStatus меняет только статус и время завершения отложенной транзакции.
	UpdateTransactionStatus(ctx context.Context, t *entity.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*entity.WalletTransaction, error)
}
