package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

type confirmationRepo struct{ v *view }

func confirmationVersion(c *entity.CompletionConfirmation) *int64 { return &c.Version }

func (r confirmationRepo) Create(_ context.Context, c *entity.CompletionConfirmation) error {
	return r.v.do(func(t *tables) error {
		for _, other := range t.confirmations {
			if other.ScheduleID == c.ScheduleID {
				return apperror.ErrConfirmationExists
			}
		}
		return insertRow(t.confirmations, c.ID, c)
	})
}

func (r confirmationRepo) Get(_ context.Context, id uuid.UUID) (out *entity.CompletionConfirmation, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.confirmations, id, apperror.ErrConfirmationNotFound)
		return err
	})
	return out, err
}

func (r confirmationRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.CompletionConfirmation, error) {
	return r.Get(ctx, id)
}

func (r confirmationRepo) GetByScheduleForUpdate(_ context.Context, scheduleID uuid.UUID) (out *entity.CompletionConfirmation, err error) {
	err = r.v.do(func(t *tables) error {
		for _, c := range t.confirmations {
			if c.ScheduleID == scheduleID {
				c := c
				out = &c
				return nil
			}
		}
		return apperror.ErrConfirmationNotFound
	})
	return out, err
}

func (r confirmationRepo) Update(_ context.Context, c *entity.CompletionConfirmation) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.confirmations, c.ID, c, confirmationVersion, apperror.ErrConfirmationNotFound)
	})
}

func (r confirmationRepo) ListOverdue(_ context.Context, now time.Time, limit int) (out []uuid.UUID, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.confirmations,
			func(c *entity.CompletionConfirmation) bool {
				return c.Status == valueobject.ConfirmationPendingConfirm && c.Deadline.Before(now)
			},
			func(a, b *entity.CompletionConfirmation) bool { return a.Deadline.Before(b.Deadline) })
		out = ids(rows, func(c *entity.CompletionConfirmation) uuid.UUID { return c.ID }, limit)
		return nil
	})
	return out, err
}

type payoutRepo struct{ v *view }

func payoutVersion(p *entity.Payout) *int64 { return &p.Version }

func (r payoutRepo) Create(_ context.Context, p *entity.Payout) error {
	return r.v.do(func(t *tables) error {
		for _, other := range t.payouts {
			if other.ScheduleID == p.ScheduleID {
				return apperror.ErrPayoutExists
			}
		}
		return insertRow(t.payouts, p.ID, p)
	})
}

func (r payoutRepo) Get(_ context.Context, id uuid.UUID) (out *entity.Payout, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.payouts, id, apperror.ErrPayoutNotFound)
		return err
	})
	return out, err
}

func (r payoutRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	return r.Get(ctx, id)
}

func (r payoutRepo) GetByScheduleForUpdate(_ context.Context, scheduleID uuid.UUID) (out *entity.Payout, err error) {
	err = r.v.do(func(t *tables) error {
		for _, p := range t.payouts {
			if p.ScheduleID == scheduleID {
				p := p
				out = &p
				return nil
			}
		}
		return apperror.ErrPayoutNotFound
	})
	return out, err
}

func (r payoutRepo) Update(_ context.Context, p *entity.Payout) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.payouts, p.ID, p, payoutVersion, apperror.ErrPayoutNotFound)
	})
}

func (r payoutRepo) ListByBookingForUpdate(_ context.Context, bookingID uuid.UUID) (out []*entity.Payout, err error) {
	err = r.v.do(func(t *tables) error {
		out = selectRows(t.payouts,
			func(p *entity.Payout) bool { return p.BookingID == bookingID },
			func(a, b *entity.Payout) bool { return a.CreatedAt.Before(b.CreatedAt) })
		return nil
	})
	return out, err
}

func (r payoutRepo) ListDue(_ context.Context, now time.Time, limit int) (out []uuid.UUID, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.payouts,
			func(p *entity.Payout) bool {
				switch p.Status {
				case valueobject.PayoutPending, valueobject.PayoutReadyForPayout:
					return p.IsDue(now)
				case valueobject.PayoutOnHold:
					return p.IsDue(now) && !holdOpen(t, p)
				}
				return false
			},
			func(a, b *entity.Payout) bool { return a.ScheduledPayoutDate.Before(b.ScheduledPayoutDate) })
		out = ids(rows, func(p *entity.Payout) uuid.UUID { return p.ID }, limit)
		return nil
	})
	return out, err
}

// holdOpen - по занятию выплаты ещё есть открытая жалоба или подтверждение на удержании.
func holdOpen(t *tables, p *entity.Payout) bool {
	for _, rep := range t.reports {
		if rep.ScheduleID == p.ScheduleID && rep.Status == valueobject.ReportOpen {
			return true
		}
	}
	for _, c := range t.confirmations {
		if c.ScheduleID == p.ScheduleID && c.Status == valueobject.ConfirmationReportedOnHold {
			return true
		}
	}
	return false
}

type walletRepo struct{ v *view }

func walletVersion(w *entity.Wallet) *int64 { return &w.Version }

func (r walletRepo) Create(_ context.Context, w *entity.Wallet) error {
	return r.v.do(func(t *tables) error {
		for _, other := range t.wallets {
			if other.OwnerID == w.OwnerID && other.Kind == w.Kind {
				return apperror.ErrWalletExists
			}
		}
		return insertRow(t.wallets, w.ID, w)
	})
}

func (r walletRepo) Get(_ context.Context, id uuid.UUID) (out *entity.Wallet, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.wallets, id, apperror.ErrWalletNotFound)
		return err
	})
	return out, err
}

func (r walletRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Wallet, error) {
	return r.Get(ctx, id)
}

func (r walletRepo) GetByOwner(_ context.Context, ownerID uuid.UUID, kind valueobject.WalletKind) (out *entity.Wallet, err error) {
	err = r.v.do(func(t *tables) error {
		for _, w := range t.wallets {
			if w.OwnerID == ownerID && w.Kind == kind {
				w := w
				out = &w
				return nil
			}
		}
		return apperror.ErrWalletNotFound
	})
	return out, err
}

func (r walletRepo) GetByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID, kind valueobject.WalletKind) (*entity.Wallet, error) {
	return r.GetByOwner(ctx, ownerID, kind)
}

func (r walletRepo) Update(_ context.Context, w *entity.Wallet) error {
	return r.v.do(func(t *tables) error {
		if w.Balance < 0 || w.LockedBalance < 0 {
			return apperror.Invariant("отрицательный баланс кошелька %s", w.ID)
		}
		return updateRow(t.wallets, w.ID, w, walletVersion, apperror.ErrWalletNotFound)
	})
}

func (r walletRepo) CreateTransaction(_ context.Context, tx *entity.WalletTransaction) error {
	return r.v.do(func(t *tables) error {
		if _, ok := t.wallets[tx.WalletID]; !ok {
			return apperror.ErrWalletNotFound
		}
		return insertRow(t.transactions, tx.ID, tx)
	})
}

func (r walletRepo) GetTransactionForUpdate(_ context.Context, id uuid.UUID) (out *entity.WalletTransaction, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.transactions, id, apperror.ErrTransactionNotFound)
		return err
	})
	return out, err
}

func (r walletRepo) UpdateTransactionStatus(_ context.Context, tx *entity.WalletTransaction) error {
	return r.v.do(func(t *tables) error {
		current, ok := t.transactions[tx.ID]
		if !ok {
			return apperror.ErrTransactionNotFound
		}
		if current.Status != valueobject.TransactionPending {
			return apperror.Invariant("транзакция %s уже завершена", tx.ID)
		}
		current.Status = tx.Status
		current.CompletedAt = tx.CompletedAt
		t.transactions[tx.ID] = current
		return nil
	})
}

func (r walletRepo) ListTransactions(_ context.Context, walletID uuid.UUID, limit, offset int) (out []*entity.WalletTransaction, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.transactions,
			func(tx *entity.WalletTransaction) bool { return tx.WalletID == walletID },
			func(a, b *entity.WalletTransaction) bool { return a.CreatedAt.After(b.CreatedAt) })
		out = page(rows, limit, offset)
		return nil
	})
	return out, err
}
