package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

func TestBookingService_CreateBookingFixesPrice(t *testing.T) {
	e := newTestEnv(t)

	b := e.newBooking(t, uuid.New(), 2)

	assert.Equal(t, int64(100000), b.UnitPrice)
	assert.Equal(t, int64(200000), b.TotalAmount)
	assert.Equal(t, int64(20000), b.SystemFeeAmount)
	assert.Equal(t, int64(180000), b.TutorReceiveAmount)
	assert.Equal(t, valueobject.BookingPending, b.Status)
	assert.Equal(t, valueobject.PaymentPending, b.PaymentStatus)

	// смена ставки не трогает уже оформленное бронирование
	raised := e.subject
	raised.Rate = 150000
	e.store.AddTutorSubject(raised)

	stored := e.booking(t, b.ID)
	assert.Equal(t, int64(200000), stored.TotalAmount)
	assert.Equal(t, int64(180000), stored.TutorReceiveAmount)
}

func TestBookingService_CreateBookingValidation(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.bookings.CreateBooking(e.ctx, uuid.New(), e.subject.ID, 0)
	assert.ErrorIs(t, err, apperror.ErrInvalidSessions)

	// произведение ставки на это число занятий не помещается в int64
	_, err = e.bookings.CreateBooking(e.ctx, uuid.New(), e.subject.ID, 184467440737096)
	assert.ErrorIs(t, err, apperror.ErrInvalidSessions)

	_, err = e.bookings.CreateBooking(e.ctx, uuid.New(), e.subject.ID, valueobject.MaxSessions+1)
	assert.ErrorIs(t, err, apperror.ErrInvalidSessions)

	b, err := e.bookings.CreateBooking(e.ctx, uuid.New(), e.subject.ID, valueobject.MaxSessions)
	require.NoError(t, err)
	assert.Equal(t, e.subject.Rate*valueobject.MaxSessions, b.TotalAmount)

	_, err = e.bookings.CreateBooking(e.ctx, e.tutorID, e.subject.ID, 1)
	assert.Error(t, err)

	inactive := entity.TutorSubject{ID: uuid.New(), TutorID: e.tutorID, SubjectID: uuid.New(), Rate: 100000}
	e.store.AddTutorSubject(inactive)
	_, err = e.bookings.CreateBooking(e.ctx, uuid.New(), inactive.ID, 1)
	assert.Error(t, err)
}

func TestBookingService_PayMovesFundsToEscrow(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()

	b := e.newPaidBooking(t, learnerID, 2)

	assert.Equal(t, valueobject.BookingConfirmed, b.Status)
	assert.Equal(t, valueobject.PaymentPaid, b.PaymentStatus)
	assert.Zero(t, e.wallet(t, learnerID).Balance)
	assert.Equal(t, int64(200000), e.platformBalance(t, valueobject.WalletEscrow))

	_, err := e.bookings.PayBooking(e.ctx, b.ID, learnerID)
	assert.ErrorIs(t, err, apperror.ErrBookingAlreadyPaid)
	assert.Equal(t, int64(200000), e.platformBalance(t, valueobject.WalletEscrow))
}

func TestBookingService_PayWithoutFundsRollsBack(t *testing.T) {
	e := newTestEnv(t)
	learnerID := uuid.New()
	b := e.newBooking(t, learnerID, 1)

	_, err := e.bookings.PayBooking(e.ctx, b.ID, learnerID)
	require.ErrorIs(t, err, apperror.ErrInsufficientFunds)

	stored := e.booking(t, b.ID)
	assert.Equal(t, valueobject.BookingPending, stored.Status)
	assert.Equal(t, valueobject.PaymentPending, stored.PaymentStatus)
	assert.Zero(t, e.platformBalance(t, valueobject.WalletEscrow))
}

func TestBookingService_PayByStrangerIsForbidden(t *testing.T) {
	e := newTestEnv(t)
	b := e.newBooking(t, uuid.New(), 1)

	_, err := e.bookings.PayBooking(e.ctx, b.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestBookingService_CancelPaidBookingNeedsRefund(t *testing.T) {
	e := newTestEnv(t)
	b := e.newPaidBooking(t, uuid.New(), 1)

	_, err := e.bookings.CancelBooking(e.ctx, b.ID, b.LearnerID, valueobject.ActorUser, "передумал")
	assert.ErrorIs(t, err, apperror.ErrBookingAlreadyPaid)
}

func TestBookingService_CancelUnpaidReleasesSlots(t *testing.T) {
	e := newTestEnv(t)
	b := e.newBooking(t, uuid.New(), 2)
	s := e.scheduleAt(t, b, 10)

	cancelled, err := e.bookings.CancelBooking(e.ctx, b.ID, b.LearnerID, valueobject.ActorUser, "передумал")
	require.NoError(t, err)

	assert.Equal(t, valueobject.BookingCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "передумал", *cancelled.CancelReason)
	assert.Equal(t, valueobject.ScheduleCancelled, e.scheduleStatus(t, s.ID))
	assert.Equal(t, valueobject.AvailabilityAvailable, e.availabilityStatus(t, s.AvailabilityID))
	assert.Contains(t, e.meetings.deleted, "evt-"+s.ID.String())
}

func TestBookingService_AutoCancelStale(t *testing.T) {
	e := newTestEnv(t)
	b := e.newBooking(t, uuid.New(), 1)
	s := e.scheduleAt(t, b, 10)

	// до истечения BookingPendingGrace бронирование не трогаем
	require.NoError(t, e.bookings.AutoCancelStale(e.ctx, b.ID))
	assert.Equal(t, valueobject.BookingPending, e.booking(t, b.ID).Status)

	e.clock.Advance(e.policy.BookingPendingGrace + time.Hour)
	ids, err := e.bookings.ListStale(e.ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, ids, b.ID)

	require.NoError(t, e.bookings.AutoCancelStale(e.ctx, b.ID))
	require.NoError(t, e.bookings.AutoCancelStale(e.ctx, b.ID))

	assert.Equal(t, valueobject.BookingCancelled, e.booking(t, b.ID).Status)
	assert.Equal(t, valueobject.ScheduleCancelled, e.scheduleStatus(t, s.ID))
	assert.Equal(t, valueobject.AvailabilityAvailable, e.availabilityStatus(t, s.AvailabilityID))
	assert.Equal(t, 1, e.notifier.count(b.LearnerID, EventBookingCancelled))
}

func TestBookingService_AutoCancelSkipsPaid(t *testing.T) {
	e := newTestEnv(t)
	b := e.newPaidBooking(t, uuid.New(), 1)

	e.clock.Advance(e.policy.BookingPendingGrace + time.Hour)
	require.NoError(t, e.bookings.AutoCancelStale(e.ctx, b.ID))

	assert.Equal(t, valueobject.BookingConfirmed, e.booking(t, b.ID).Status)
}

func TestScheduleService_NoDoubleBooking(t *testing.T) {
	e := newTestEnv(t)
	slot := e.openSlot(t, 10)

	bookings := make([]*entity.Booking, 4)
	for i := range bookings {
		bookings[i] = e.newPaidBooking(t, uuid.New(), 1)
	}

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 16; i++ {
		b := bookings[i%len(bookings)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.schedules.CreateSchedule(e.ctx, b.ID, slot.ID, b.LearnerID); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, valueobject.AvailabilityBooked, e.availabilityStatus(t, slot.ID))
}

func TestScheduleService_CreateScheduleGuards(t *testing.T) {
	e := newTestEnv(t)
	b := e.newPaidBooking(t, uuid.New(), 1)
	e.scheduleAt(t, b, 10)

	t.Run("sessions exhausted", func(t *testing.T) {
		a := e.openSlot(t, 12)
		_, err := e.schedules.CreateSchedule(e.ctx, b.ID, a.ID, b.LearnerID)
		assert.ErrorIs(t, err, apperror.ErrSessionsExhausted)
	})

	t.Run("foreign tutor slot", func(t *testing.T) {
		other := e.newPaidBooking(t, uuid.New(), 1)
		foreign, err := e.availability.Create(e.ctx, uuid.New(), SlotInput{TimeSlotID: e.slots[14], Date: e.day})
		require.NoError(t, err)
		_, err = e.schedules.CreateSchedule(e.ctx, other.ID, foreign.ID, other.LearnerID)
		assert.ErrorIs(t, err, apperror.ErrTutorMismatch)
	})

	t.Run("stranger", func(t *testing.T) {
		other := e.newPaidBooking(t, uuid.New(), 1)
		a := e.openSlot(t, 14)
		_, err := e.schedules.CreateSchedule(e.ctx, other.ID, a.ID, uuid.New())
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestScheduleService_RejectsOverlappingSlotsOfSameTutor(t *testing.T) {
	e := newTestEnv(t)
	for _, ts := range []entity.TimeSlot{
		{ID: uuid.New(), StartMinute: 10*60 + 30, EndMinute: 11*60 + 30},
		{ID: uuid.New(), StartMinute: 11 * 60, EndMinute: 12 * 60},
	} {
		e.store.AddTimeSlot(ts)
		e.slots[ts.StartMinute] = ts.ID
	}

	// все три слота открыты до того, как появилось первое занятие
	first := e.openSlot(t, 10)
	overlapping, err := e.availability.Create(e.ctx, e.tutorID, SlotInput{TimeSlotID: e.slots[10*60+30], Date: e.day})
	require.NoError(t, err)
	adjacent, err := e.availability.Create(e.ctx, e.tutorID, SlotInput{TimeSlotID: e.slots[11*60], Date: e.day})
	require.NoError(t, err)

	a := e.newPaidBooking(t, uuid.New(), 1)
	_, err = e.schedules.CreateSchedule(e.ctx, a.ID, first.ID, a.LearnerID)
	require.NoError(t, err)

	b := e.newPaidBooking(t, uuid.New(), 1)
	_, err = e.schedules.CreateSchedule(e.ctx, b.ID, overlapping.ID, b.LearnerID)
	assert.ErrorIs(t, err, apperror.ErrTutorBusy)
	assert.Equal(t, valueobject.AvailabilityAvailable, e.availabilityStatus(t, overlapping.ID))

	// занятие, начинающееся ровно в конце предыдущего, не пересекается
	_, err = e.schedules.CreateSchedule(e.ctx, b.ID, adjacent.ID, b.LearnerID)
	require.NoError(t, err)
}
