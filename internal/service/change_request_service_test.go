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

func TestChangeRequestService_ApproveMovesSession(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newPaidBooking(t, learnerID, 1)
	s := e.scheduleAt(t, b, 10)
	target := e.openSlot(t, 14)

	cr, err := e.changeRequests.Create(e.ctx, s.ID, learnerID, target.ID, "совпало с экзаменом")
	require.NoError(t, err)
	assert.Equal(t, valueobject.ChangeRequestPending, cr.Status)
	assert.Equal(t, 1, e.notifier.count(e.tutorID, EventChangeRequestCreated))

	_, err = e.changeRequests.Create(e.ctx, s.ID, learnerID, target.ID, "ещё раз")
	assert.ErrorIs(t, err, apperror.ErrPendingRequestExists)

	_, err = e.changeRequests.Approve(e.ctx, cr.ID, learnerID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	approved, err := e.changeRequests.Approve(e.ctx, cr.ID, e.tutorID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ChangeRequestApproved, approved.Status)

	moved, err := e.store.Schedules().Get(e.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, moved.AvailabilityID)
	assert.Equal(t, target.StartAt, moved.StartAt)
	assert.Equal(t, valueobject.AvailabilityAvailable, e.availabilityStatus(t, s.AvailabilityID))
	assert.Equal(t, valueobject.AvailabilityBooked, e.availabilityStatus(t, target.ID))

	// старая встреча удалена, новая создана заново
	assert.Contains(t, e.meetings.deleted, "evt-"+s.ID.String())
	assert.Len(t, e.meetings.created, 2)
	assert.Equal(t, 1, e.notifier.count(learnerID, EventChangeRequestApproved))
}

func TestChangeRequestService_CreateGuards(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newPaidBooking(t, learnerID, 1)
	s := e.scheduleAt(t, b, 10)

	_, err := e.changeRequests.Create(e.ctx, s.ID, learnerID, s.AvailabilityID, "тот же слот")
	assert.Error(t, err)

	foreign, err := e.availability.Create(e.ctx, uuid.New(), SlotInput{TimeSlotID: e.slots[14], Date: e.day})
	require.NoError(t, err)
	_, err = e.changeRequests.Create(e.ctx, s.ID, learnerID, foreign.ID, "другой преподаватель")
	assert.ErrorIs(t, err, apperror.ErrTutorMismatch)

	target := e.openSlot(t, 14)
	_, err = e.changeRequests.Create(e.ctx, s.ID, uuid.New(), target.ID, "посторонний")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	e.clock.Set(s.StartAt.Add(-time.Hour))
	_, err = e.changeRequests.Create(e.ctx, s.ID, learnerID, target.ID, "поздно")
	assert.ErrorIs(t, err, apperror.ErrTooLateToCancel)
}

func TestChangeRequestService_Reject(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newPaidBooking(t, learnerID, 1)
	s := e.scheduleAt(t, b, 10)
	target := e.openSlot(t, 14)

	cr, err := e.changeRequests.Create(e.ctx, s.ID, e.tutorID, target.ID, "заболел")
	require.NoError(t, err)

	_, err = e.changeRequests.Reject(e.ctx, cr.ID, e.tutorID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	rejected, err := e.changeRequests.Reject(e.ctx, cr.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ChangeRequestRejected, rejected.Status)
	stored, err := e.store.Schedules().Get(e.ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.AvailabilityID, stored.AvailabilityID)
}

func TestChangeRequestService_ExpiresAfterTTL(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newPaidBooking(t, learnerID, 1)
	s := e.scheduleAt(t, b, 10)
	target := e.openSlot(t, 14)

	cr, err := e.changeRequests.Create(e.ctx, s.ID, learnerID, target.ID, "перенос")
	require.NoError(t, err)

	require.NoError(t, e.changeRequests.AutoCancel(e.ctx, cr.ID))
	got, err := e.changeRequests.Get(e.ctx, cr.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ChangeRequestPending, got.Status)

	ids, err := e.changeRequests.ListExpirable(e.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// оба занятия ещё далеко, но срок ответа истёк
	e.clock.Advance(e.policy.ChangeRequestTTL + time.Hour)
	ids, err = e.changeRequests.ListExpirable(e.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cr.ID}, ids)

	require.NoError(t, e.changeRequests.AutoCancel(e.ctx, cr.ID))
	require.NoError(t, e.changeRequests.AutoCancel(e.ctx, cr.ID))

	got, err = e.changeRequests.Get(e.ctx, cr.ID, learnerID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ChangeRequestCancelled, got.Status)
	assert.Equal(t, 1, e.notifier.count(learnerID, EventChangeRequestExpired))

	_, err = e.changeRequests.Approve(e.ctx, cr.ID, e.tutorID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestChangeRequestService_CancelledWithSession(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newPaidBooking(t, learnerID, 1)
	s := e.scheduleAt(t, b, 10)
	target := e.openSlot(t, 14)

	cr, err := e.changeRequests.Create(e.ctx, s.ID, learnerID, target.ID, "перенос")
	require.NoError(t, err)

	_, err = e.schedules.CancelSchedule(e.ctx, s.ID, learnerID, valueobject.ActorUser)
	require.NoError(t, err)

	got, err := e.changeRequests.Get(e.ctx, cr.ID, e.tutorID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ChangeRequestCancelled, got.Status)
}
