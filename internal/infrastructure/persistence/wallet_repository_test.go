package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

var walletRowColumns = []string{"id", "owner_id", "kind", "balance", "locked_balance", "version", "created_at", "updated_at"}

func TestWalletRepository_GetByOwnerForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStore(db).Wallets()
	id, owner := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE owner_id = $1 AND kind = $2 FOR UPDATE")).
		WithArgs(owner.String(), "escrow").
		WillReturnRows(sqlmock.NewRows(walletRowColumns).
			AddRow(id.String(), owner.String(), "escrow", int64(250000), int64(0), int64(3), now, now))

	w, err := repo.GetByOwnerForUpdate(context.Background(), owner, valueobject.WalletEscrow)
	require.NoError(t, err)
	assert.Equal(t, id, w.ID)
	assert.Equal(t, valueobject.WalletEscrow, w.Kind)
	assert.Equal(t, int64(250000), w.Balance)
	assert.Equal(t, int64(3), w.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStore(db).Wallets()

	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(walletRowColumns))

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrWalletNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_CreateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStore(db).Wallets()

	mock.ExpectExec("INSERT INTO wallets").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), entity.NewWallet(uuid.New(), valueobject.WalletPersonal, now))
	assert.ErrorIs(t, err, apperror.ErrWalletExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_UpdateChecksVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStore(db).Wallets()
	w := entity.NewWallet(uuid.New(), valueobject.WalletPersonal, now)
	w.Balance = 1000

	mock.ExpectExec("UPDATE wallets").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), w))
	assert.Equal(t, int64(1), w.Version)

	mock.ExpectExec("UPDATE wallets").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), w), apperror.ErrStaleWrite)
	assert.Equal(t, int64(1), w.Version)

	// отрицательный баланс отсекается до запроса
	w.Balance = -1
	assert.True(t, apperror.IsInvariant(repo.Update(context.Background(), w)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepository_UpdateTransactionStatusOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStore(db).Wallets()
	completed := now
	tx := &entity.WalletTransaction{ID: uuid.New(), Status: valueobject.TransactionCompleted, CompletedAt: &completed}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallet_transactions SET status = $2")).
		WithArgs(tx.ID.String(), "completed", completed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, apperror.IsInvariant(repo.UpdateTransactionStatus(context.Background(), tx)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepository_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStore(db).Availabilities()

	mock.ExpectExec("INSERT INTO availabilities").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "availabilities_active_slot_uniq"})
	err := repo.Create(context.Background(), &entity.Availability{ID: uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrDuplicateAvailability)

	mock.ExpectExec("INSERT INTO availabilities").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "availabilities_pkey"})
	err = repo.Create(context.Background(), &entity.Availability{ID: uuid.New()})
	assert.True(t, apperror.IsConflict(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_WithinTx(t *testing.T) {
	db, mock := newMockDB(t)
	m := NewTxManager(db)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := m.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
			return s.Wallets().Update(ctx, entity.NewWallet(uuid.New(), valueobject.WalletPersonal, now))
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := m.WithinTx(ctx, func(context.Context, repository.Store) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = m.WithinTx(ctx, func(context.Context, repository.Store) error { panic("boom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
