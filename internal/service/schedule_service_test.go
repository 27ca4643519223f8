package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

func TestScheduleService_CreateProvisionsMeeting(t *testing.T) {
	e := newTestEnv(t)
	b := e.newPaidBooking(t, uuid.New(), 1)

	s := e.scheduleAt(t, b, 10)

	assert.Equal(t, valueobject.ScheduleUpcoming, s.Status)
	require.NotNil(t, s.MeetingLink)
	assert.Equal(t, "https://meet.example.com/"+s.ID.String(), *s.MeetingLink)
	assert.Equal(t, valueobject.AvailabilityBooked, e.availabilityStatus(t, s.AvailabilityID))
	assert.Equal(t, 1, e.notifier.count(e.tutorID, EventScheduleCreated))
}

func TestScheduleService_AdvanceIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	b := e.newPaidBooking(t, uuid.New(), 1)
	s := e.scheduleAt(t, b, 10)

	// до начала занятия ничего не меняется
	require.NoError(t, e.schedules.AdvanceSchedule(e.ctx, s.ID))
	assert.Equal(t, valueobject.ScheduleUpcoming, e.scheduleStatus(t, s.ID))

	e.clock.Set(s.StartAt.Add(10 * time.Minute))
	require.NoError(t, e.schedules.AdvanceSchedule(e.ctx, s.ID))
	assert.Equal(t, valueobject.ScheduleInProgress, e.scheduleStatus(t, s.ID))
	assert.Equal(t, valueobject.AvailabilityInProgress, e.availabilityStatus(t, s.AvailabilityID))

	conf := e.finishSession(t, s)
	require.NoError(t, e.schedules.AdvanceSchedule(e.ctx, s.ID))
	require.NoError(t, e.schedules.AdvanceSchedule(e.ctx, s.ID))

	assert.Equal(t, conf.ID, e.confirmation(t, s.ID).ID)
	assert.Equal(t, valueobject.ConfirmationPendingConfirm, conf.Status)
	assert.Equal(t, s.EndAt.Add(e.policy.CompletionGrace), conf.Deadline)
	assert.Equal(t, 1, e.notifier.count(b.LearnerID, EventCompletionRequested))
}

func TestScheduleService_ListDue(t *testing.T) {
	e := newTestEnv(t)
	b := e.newPaidBooking(t, uuid.New(), 1)
	s := e.scheduleAt(t, b, 10)

	ids, err := e.schedules.ListDue(e.ctx, 10)
	require.NoError(t, err)
	assert.NotContains(t, ids, s.ID)

	e.clock.Set(s.StartAt)
	ids, err = e.schedules.ListDue(e.ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, ids, s.ID)
}

func TestScheduleService_CancelWithinWindow(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newPaidBooking(t, learnerID, 1)
	s := e.scheduleAt(t, b, 10)

	e.clock.Set(s.StartAt.Add(-time.Hour))

	_, err := e.schedules.CancelSchedule(e.ctx, s.ID, learnerID, valueobject.ActorUser)
	require.ErrorIs(t, err, apperror.ErrTooLateToCancel)
	assert.Equal(t, valueobject.ScheduleUpcoming, e.scheduleStatus(t, s.ID))

	cancelled, err := e.schedules.CancelSchedule(e.ctx, s.ID, uuid.New(), valueobject.ActorAdmin)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ScheduleCancelled, cancelled.Status)
	assert.True(t, cancelled.Refunded)

	// слот в окне запрета не возвращается в продажу
	assert.Equal(t, valueobject.AvailabilityCancelled, e.availabilityStatus(t, s.AvailabilityID))
	assert.Equal(t, int64(100000), e.wallet(t, learnerID).Balance)
	assert.Zero(t, e.platformBalance(t, valueobject.WalletEscrow))

	stored := e.booking(t, b.ID)
	assert.Equal(t, valueobject.BookingCancelled, stored.Status)
	assert.Equal(t, valueobject.PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, int64(100000), stored.RefundedAmount)
}

func TestScheduleService_CancelOutsideWindowReleasesSlot(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newPaidBooking(t, learnerID, 2)
	s := e.scheduleAt(t, b, 10)

	_, err := e.schedules.CancelSchedule(e.ctx, s.ID, uuid.New(), valueobject.ActorUser)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = e.schedules.CancelSchedule(e.ctx, s.ID, learnerID, valueobject.ActorUser)
	require.NoError(t, err)

	assert.Equal(t, valueobject.AvailabilityAvailable, e.availabilityStatus(t, s.AvailabilityID))
	assert.Equal(t, int64(100000), e.wallet(t, learnerID).Balance)
	assert.Equal(t, int64(100000), e.platformBalance(t, valueobject.WalletEscrow))

	stored := e.booking(t, b.ID)
	assert.Equal(t, valueobject.BookingCancelled, stored.Status)
	assert.Equal(t, valueobject.PaymentPaid, stored.PaymentStatus)

	// повторная отмена не возвращает деньги второй раз
	_, err = e.schedules.CancelSchedule(e.ctx, s.ID, uuid.New(), valueobject.ActorAdmin)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, int64(100000), e.wallet(t, learnerID).Balance)
}

func TestScheduleService_UpdateStatusRejectsSettlementStatuses(t *testing.T) {
	e := newTestEnv(t)
	b := e.newPaidBooking(t, uuid.New(), 1)
	s := e.scheduleAt(t, b, 10)

	_, err := e.schedules.UpdateStatus(e.ctx, s.ID, b.LearnerID, valueobject.ActorUser, valueobject.ScheduleCompleted)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}
