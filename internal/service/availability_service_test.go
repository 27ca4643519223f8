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

func TestAvailabilityService_Create(t *testing.T) {
	e := newTestEnv(t)

	a := e.openSlot(t, 10)

	assert.Equal(t, valueobject.AvailabilityAvailable, a.Status)
	assert.Equal(t, time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), a.StartAt)
	assert.Equal(t, time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC), a.EndAt)
}

func TestAvailabilityService_RejectsDuplicateSlot(t *testing.T) {
	e := newTestEnv(t)
	e.openSlot(t, 10)

	_, err := e.availability.Create(e.ctx, e.tutorID, SlotInput{TimeSlotID: e.slots[10], Date: e.day})
	assert.ErrorIs(t, err, apperror.ErrDuplicateAvailability)
}

func TestAvailabilityService_RejectsPastSlot(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.availability.Create(e.ctx, e.tutorID, SlotInput{TimeSlotID: e.slots[10], Date: testStart.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, apperror.ErrSlotInPast)
}

func TestAvailabilityService_CreateBulkIsAllOrNothing(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.availability.CreateBulk(e.ctx, e.tutorID, []SlotInput{
		{TimeSlotID: e.slots[12], Date: e.day},
		{TimeSlotID: e.slots[14], Date: e.day},
		{TimeSlotID: e.slots[12], Date: e.day},
	})
	require.ErrorIs(t, err, apperror.ErrDuplicateAvailability)

	list, err := e.availability.ListByTutor(e.ctx, e.tutorID, e.day, e.day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := e.availability.CreateBulk(e.ctx, e.tutorID, []SlotInput{
		{TimeSlotID: e.slots[12], Date: e.day},
		{TimeSlotID: e.slots[14], Date: e.day},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestAvailabilityService_UpdateStatus(t *testing.T) {
	e := newTestEnv(t)
	a := e.openSlot(t, 10)

	t.Run("engine-only statuses are rejected", func(t *testing.T) {
		_, err := e.availability.UpdateStatus(e.ctx, a.ID, e.tutorID, valueobject.AvailabilityBooked)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	})

	t.Run("foreign tutor is forbidden", func(t *testing.T) {
		_, err := e.availability.UpdateStatus(e.ctx, a.ID, uuid.New(), valueobject.AvailabilityCancelled)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("slot with a session cannot be withdrawn", func(t *testing.T) {
		b := e.newPaidBooking(t, uuid.New(), 1)
		busy := e.openSlot(t, 12)
		_, err := e.schedules.CreateSchedule(e.ctx, b.ID, busy.ID, b.LearnerID)
		require.NoError(t, err)

		_, err = e.availability.UpdateStatus(e.ctx, busy.ID, e.tutorID, valueobject.AvailabilityCancelled)
		assert.ErrorIs(t, err, apperror.ErrAvailabilityInUse)
	})

	t.Run("owner cancels a free slot", func(t *testing.T) {
		updated, err := e.availability.UpdateStatus(e.ctx, a.ID, e.tutorID, valueobject.AvailabilityCancelled)
		require.NoError(t, err)
		assert.Equal(t, valueobject.AvailabilityCancelled, updated.Status)
	})
}
