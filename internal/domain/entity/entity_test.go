package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newSubject() *TutorSubject {
	return &TutorSubject{ID: uuid.New(), TutorID: uuid.New(), SubjectID: uuid.New(), Rate: 100000, IsActive: true}
}

func tenPercent() *SystemFee {
	return &SystemFee{ID: uuid.New(), PercentageBP: 1000, IsActive: true, EffectiveFrom: now.Add(-time.Hour)}
}

func TestTimeSlot_Bounds(t *testing.T) {
	day := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	start, end := (&TimeSlot{StartMinute: 600, EndMinute: 660}).Bounds(day)
	assert.Equal(t, day.Add(10*time.Hour), start)
	assert.Equal(t, day.Add(11*time.Hour), end)

	// слот через полночь заканчивается на следующий день
	start, end = (&TimeSlot{StartMinute: 23 * 60, EndMinute: 30}).Bounds(day)
	assert.Equal(t, day.Add(23*time.Hour), start)
	assert.Equal(t, day.Add(24*time.Hour+30*time.Minute), end)
}

func TestNewAvailability(t *testing.T) {
	slot := &TimeSlot{ID: uuid.New(), StartMinute: 600, EndMinute: 660}

	a, err := NewAvailability(uuid.New(), slot, time.Date(2026, 3, 7, 15, 30, 0, 0, time.UTC), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), a.Date)
	assert.Equal(t, time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), a.StartAt)
	assert.Equal(t, valueobject.AvailabilityAvailable, a.Status)

	_, err = NewAvailability(uuid.New(), slot, now.AddDate(0, 0, -1), now)
	assert.ErrorIs(t, err, apperror.ErrSlotInPast)

	_, err = NewAvailability(uuid.Nil, slot, now.AddDate(0, 0, 1), now)
	assert.True(t, apperror.IsValidation(err))
}

func TestAvailability_Lifecycle(t *testing.T) {
	slot := &TimeSlot{ID: uuid.New(), StartMinute: 600, EndMinute: 660}
	a, err := NewAvailability(uuid.New(), slot, now.AddDate(0, 0, 1), now)
	require.NoError(t, err)

	assert.ErrorIs(t, a.Release(now), apperror.ErrInvalidTransition)
	require.NoError(t, a.TransitionTo(valueobject.AvailabilityBooked, now))
	assert.False(t, a.CanDelete())
	require.NoError(t, a.Release(now))
	assert.Equal(t, valueobject.AvailabilityAvailable, a.Status)

	require.NoError(t, a.TransitionTo(valueobject.AvailabilityBooked, now))
	require.NoError(t, a.TransitionTo(valueobject.AvailabilityInProgress, now))
	assert.ErrorIs(t, a.TransitionTo(valueobject.AvailabilityCancelled, now), apperror.ErrInvalidTransition)

	require.NoError(t, a.Override(valueobject.AvailabilityCancelled, now))
	assert.True(t, a.CanDelete())
	assert.Error(t, a.Override("reserved", now))
}

func TestNewBooking_SnapshotsPricing(t *testing.T) {
	subject := newSubject()
	b, err := NewBooking(uuid.New(), subject, tenPercent(), 2, now)
	require.NoError(t, err)

	assert.Equal(t, subject.TutorID, b.TutorID)
	assert.Equal(t, int64(200000), b.TotalAmount)
	assert.Equal(t, int64(90000), b.PerSessionTutorAmount())
	assert.Equal(t, int64(10000), b.PerSessionFee())

	_, err = NewBooking(subject.TutorID, subject, tenPercent(), 1, now)
	assert.True(t, apperror.IsValidation(err))

	_, err = NewBooking(uuid.New(), subject, tenPercent(), 0, now)
	assert.ErrorIs(t, err, apperror.ErrInvalidSessions)
}

func TestBooking_PaymentAndRefunds(t *testing.T) {
	b, err := NewBooking(uuid.New(), newSubject(), tenPercent(), 2, now)
	require.NoError(t, err)

	require.NoError(t, b.MarkPaid(now))
	assert.ErrorIs(t, b.MarkPaid(now), apperror.ErrBookingAlreadyPaid)

	require.NoError(t, b.ApplyRefund(50000, now))
	assert.Equal(t, valueobject.PaymentPaid, b.PaymentStatus)

	assert.True(t, apperror.IsInvariant(b.ApplyRefund(150001, now)))
	assert.ErrorIs(t, b.ApplyRefund(0, now), apperror.ErrInvalidAmount)

	require.NoError(t, b.ApplyRefund(150000, now))
	assert.Equal(t, valueobject.PaymentRefunded, b.PaymentStatus)
}

func TestBooking_ApplyFold(t *testing.T) {
	b, err := NewBooking(uuid.New(), newSubject(), tenPercent(), 2, now)
	require.NoError(t, err)
	require.NoError(t, b.MarkPaid(now))

	assert.False(t, b.ApplyFold([]valueobject.ScheduleStatus{valueobject.ScheduleUpcoming}, now))
	assert.True(t, b.ApplyFold([]valueobject.ScheduleStatus{valueobject.ScheduleCancelled}, now))
	assert.Equal(t, valueobject.BookingCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)
	assert.False(t, b.ApplyFold([]valueobject.ScheduleStatus{valueobject.ScheduleCompleted}, now))
}

func TestConfirmation_Lifecycle(t *testing.T) {
	s := &Schedule{ID: uuid.New(), BookingID: uuid.New(), EndAt: now}
	c := NewCompletionConfirmation(s, 24*time.Hour, now)
	assert.Equal(t, now.Add(24*time.Hour), c.Deadline)

	assert.ErrorIs(t, c.AutoComplete(now.Add(time.Hour)), apperror.ErrTooEarly)

	reportID := uuid.New()
	require.NoError(t, c.Hold(&reportID, now))
	require.NoError(t, c.Hold(nil, now))
	assert.Equal(t, &reportID, c.ReportID)

	require.NoError(t, c.ReleaseHold(now))
	assert.Equal(t, valueobject.ConfirmationAutoCompleted, c.Status)
	assert.Equal(t, valueobject.PayoutTriggerAutoCompleted, c.Trigger())

	confirmed := NewCompletionConfirmation(s, time.Hour, now)
	require.NoError(t, confirmed.ConfirmByLearner(now.Add(time.Minute)))
	require.NoError(t, confirmed.Hold(nil, now.Add(2*time.Minute)))
	require.NoError(t, confirmed.ReleaseHold(now.Add(3*time.Minute)))
	assert.Equal(t, valueobject.ConfirmationLearnerConfirmed, confirmed.Status)
	assert.Equal(t, now.Add(time.Minute), confirmed.ConfirmationTime(now))
}

func TestPayout_NeverExceedsSessionPrice(t *testing.T) {
	b, err := NewBooking(uuid.New(), newSubject(), tenPercent(), 3, now)
	require.NoError(t, err)
	s := &Schedule{ID: uuid.New(), BookingID: b.ID}

	p, err := NewPayout(s, b, uuid.New(), valueobject.PayoutTriggerLearnerConfirmed, now, now)
	require.NoError(t, err)
	assert.LessOrEqual(t, p.Amount+p.SystemFeeAmount, b.UnitPrice)

	assert.True(t, p.IsDue(now))
	require.NoError(t, p.Hold(now))
	require.NoError(t, p.Hold(now))
	assert.ErrorIs(t, p.MarkPaid(uuid.New(), now), apperror.ErrInvalidTransition)
	require.NoError(t, p.MarkReady(now))
	require.NoError(t, p.MarkPaid(uuid.New(), now))
	assert.True(t, p.IsSettled())
	assert.ErrorIs(t, p.Cancel("", now), apperror.ErrAlreadyPaid)
}

func TestWallet_Holds(t *testing.T) {
	w := NewWallet(uuid.New(), valueobject.WalletPersonal, now)

	_, _, err := w.Debit(1, now)
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds)

	_, _, err = w.Credit(1000, now)
	require.NoError(t, err)

	before, after, err := w.Hold(400, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), before)
	assert.Equal(t, int64(600), after)
	assert.Equal(t, int64(400), w.LockedBalance)

	assert.True(t, apperror.IsInvariant(w.SettleHold(500, now)))
	require.NoError(t, w.SettleHold(100, now))

	_, after, err = w.ReleaseHold(300, now)
	require.NoError(t, err)
	assert.Equal(t, int64(900), after)
	assert.Zero(t, w.LockedBalance)
}

func TestNewWalletTransaction_ChecksBalances(t *testing.T) {
	_, err := NewWalletTransaction(uuid.New(), valueobject.TransactionDebit, valueobject.ReasonWithdrawal,
		100, 500, 450, valueobject.TransactionCompleted, nil, "", now)
	assert.True(t, apperror.IsInvariant(err))

	tx, err := NewWalletTransaction(uuid.New(), valueobject.TransactionDebit, valueobject.ReasonWithdrawal,
		100, 500, 400, valueobject.TransactionPending, nil, "вывод", now)
	require.NoError(t, err)
	assert.Nil(t, tx.CompletedAt)

	require.NoError(t, tx.Fail(now))
	assert.ErrorIs(t, tx.Complete(now), apperror.ErrInvalidTransition)
}
