package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := uuid.New()

	w := entity.NewWallet(owner, valueobject.WalletPersonal, now)
	require.NoError(t, s.Wallets().Create(ctx, w))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		locked, err := tx.Wallets().GetForUpdate(ctx, w.ID)
		require.NoError(t, err)
		_, _, err = locked.Credit(5000, now)
		require.NoError(t, err)
		require.NoError(t, tx.Wallets().Update(ctx, locked))
		require.NoError(t, tx.Wallets().Create(ctx, entity.NewWallet(uuid.New(), valueobject.WalletPersonal, now)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
	assert.Equal(t, w.Version, got.Version)
}

func TestStore_WithinTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := entity.NewWallet(uuid.New(), valueobject.WalletPersonal, now)
	require.NoError(t, s.Wallets().Create(ctx, w))

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		locked, err := tx.Wallets().GetForUpdate(ctx, w.ID)
		if err != nil {
			return err
		}
		if _, _, err := locked.Credit(700, now); err != nil {
			return err
		}
		return tx.Wallets().Update(ctx, locked)
	}))

	got, err := s.Wallets().GetByOwner(ctx, w.OwnerID, valueobject.WalletPersonal)
	require.NoError(t, err)
	assert.Equal(t, int64(700), got.Balance)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().WithinTx(ctx, func(context.Context, repository.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_StaleWrite(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := entity.NewWallet(uuid.New(), valueobject.WalletPersonal, now)
	require.NoError(t, s.Wallets().Create(ctx, w))

	first, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)
	second, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)

	_, _, err = first.Credit(100, now)
	require.NoError(t, err)
	require.NoError(t, s.Wallets().Update(ctx, first))
	assert.Equal(t, w.Version+1, first.Version)

	_, _, err = second.Credit(100, now)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Wallets().Update(ctx, second), apperror.ErrStaleWrite)
}

func TestStore_WalletUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, s.Wallets().Create(ctx, entity.NewWallet(owner, valueobject.WalletPersonal, now)))
	assert.ErrorIs(t, s.Wallets().Create(ctx, entity.NewWallet(owner, valueobject.WalletPersonal, now)), apperror.ErrWalletExists)

	_, err := s.Wallets().GetByOwner(ctx, uuid.New(), valueobject.WalletPersonal)
	assert.ErrorIs(t, err, apperror.ErrWalletNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	w := entity.NewWallet(uuid.New(), valueobject.WalletPersonal, now)
	require.NoError(t, s.Wallets().Create(ctx, w))

	got, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)
	got.Balance = 999

	again, err := s.Wallets().Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Balance)
}

func TestStore_SeedDefaults(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.SeedDefaults(now)

	slots, err := s.Reference().ListTimeSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 14)

	fee, err := s.Reference().GetActiveSystemFee(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), int64(fee.PercentageBP))
}

func TestPayouts_ListDueSkipsOpenHolds(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	payout := func(status valueobject.PayoutStatus, due time.Time) *entity.Payout {
		p := &entity.Payout{ID: uuid.New(), ScheduleID: uuid.New(), BookingID: uuid.New(), Status: status, ScheduledPayoutDate: due}
		require.NoError(t, s.Payouts().Create(ctx, p))
		return p
	}
	reported := payout(valueobject.PayoutOnHold, now.Add(-3*time.Hour))
	require.NoError(t, s.Reports().Create(ctx, &entity.Report{
		ID: uuid.New(), BookingID: reported.BookingID, ScheduleID: reported.ScheduleID, Status: valueobject.ReportOpen,
	}))
	heldConf := payout(valueobject.PayoutOnHold, now.Add(-2*time.Hour))
	require.NoError(t, s.Confirmations().Create(ctx, &entity.CompletionConfirmation{
		ID: uuid.New(), ScheduleID: heldConf.ScheduleID, BookingID: heldConf.BookingID, Status: valueobject.ConfirmationReportedOnHold,
	}))
	released := payout(valueobject.PayoutOnHold, now.Add(-90*time.Minute))
	pending := payout(valueobject.PayoutPending, now.Add(-time.Hour))
	payout(valueobject.PayoutPending, now.Add(time.Hour))
	payout(valueobject.PayoutPaid, now.Add(-4*time.Hour))

	got, err := s.Payouts().ListDue(ctx, now, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{released.ID}, got)

	got, err = s.Payouts().ListDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{released.ID, pending.ID}, got)
}

func TestBookings_ListFoldCandidatesNeedsSettledSessions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	booking := func(age time.Duration, statuses ...valueobject.ScheduleStatus) *entity.Booking {
		b := &entity.Booking{ID: uuid.New(), Status: valueobject.BookingConfirmed, UpdatedAt: now.Add(-age)}
		require.NoError(t, s.Bookings().Create(ctx, b))
		for i, st := range statuses {
			require.NoError(t, s.Schedules().Create(ctx, &entity.Schedule{
				ID: uuid.New(), BookingID: b.ID, AvailabilityID: uuid.New(), Status: st,
				StartAt: now.Add(time.Duration(i) * time.Hour),
			}))
		}
		return b
	}
	booking(5*time.Hour, valueobject.ScheduleCompleted, valueobject.SchedulePending)
	booking(4*time.Hour, valueobject.ScheduleProcessing)
	booking(3*time.Hour, valueobject.ScheduleUpcoming)
	booking(2 * time.Hour)
	done := booking(time.Hour, valueobject.ScheduleCompleted, valueobject.ScheduleCancelled)

	got, err := s.Bookings().ListFoldCandidates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{done.ID}, got)
}
