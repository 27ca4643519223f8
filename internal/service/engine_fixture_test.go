package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// Понедельник, 08:00 UTC. Слоты открываются на субботу той же недели.
var testStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) Notify(ctx context.Context, recipientID uuid.UUID, event string, data any) {
	m.Called(ctx, recipientID, event, data)
}

func (m *notifierMock) count(recipientID uuid.UUID, event string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Arguments.Get(1) == recipientID && call.Arguments.String(2) == event {
			n++
		}
	}
	return n
}

type fakeMeetings struct {
	mu      sync.Mutex
	created []uuid.UUID
	deleted []string
}

func (f *fakeMeetings) CreateMeetingForSchedule(_ context.Context, scheduleID uuid.UUID) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, scheduleID)
	return "https://meet.example.com/" + scheduleID.String(), "evt-" + scheduleID.String(), nil
}

func (f *fakeMeetings) DeleteMeeting(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	return nil
}

type testEnv struct {
	ctx      context.Context
	store    *memory.Store
	clock    *clock.Fake
	policy   Policy
	notifier *notifierMock
	meetings *fakeMeetings

	ledger         *LedgerService
	availability   *AvailabilityService
	schedules      *ScheduleService
	bookings       *BookingService
	payouts        *PayoutService
	completion     *CompletionService
	reports        *ReportService
	refunds        *RefundService
	withdrawals    *WithdrawalService
	changeRequests *ChangeRequestService
	classRequests  *ClassRequestService

	tutorID uuid.UUID
	subject entity.TutorSubject
	day     time.Time
	slots   map[int]uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		ctx:      context.Background(),
		store:    memory.NewStore(),
		clock:    clock.NewFake(testStart),
		policy:   DefaultPolicy(),
		notifier: &notifierMock{},
		meetings: &fakeMeetings{},
		tutorID:  uuid.New(),
		day:      time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		slots:    make(map[int]uuid.UUID),
	}
	e.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	for _, hour := range []int{10, 12, 14} {
		id := uuid.New()
		e.slots[hour] = id
		e.store.AddTimeSlot(entity.TimeSlot{ID: id, StartMinute: hour * 60, EndMinute: (hour + 1) * 60})
	}
	e.subject = entity.TutorSubject{ID: uuid.New(), TutorID: e.tutorID, SubjectID: uuid.New(), Rate: 100000, IsActive: true}
	e.store.AddTutorSubject(e.subject)
	e.store.AddSystemFee(entity.SystemFee{ID: uuid.New(), PercentageBP: 1000, IsActive: true, EffectiveFrom: testStart.Add(-24 * time.Hour)})

	e.ledger = NewLedgerService(e.store, e.clock)
	e.availability = NewAvailabilityService(e.store, e.clock)
	e.schedules = NewScheduleService(e.store, e.clock, e.policy, e.ledger, e.meetings, e.notifier)
	e.bookings = NewBookingService(e.store, e.clock, e.policy, e.ledger, e.schedules, e.notifier)
	e.payouts = NewPayoutService(e.store, e.clock, e.policy, e.ledger, e.notifier)
	e.completion = NewCompletionService(e.store, e.clock, e.policy, e.payouts, e.schedules, e.notifier)
	e.reports = NewReportService(e.store, e.clock, e.completion, e.schedules, e.notifier)
	e.refunds = NewRefundService(e.store, e.clock, e.ledger, e.notifier)
	e.withdrawals = NewWithdrawalService(e.store, e.clock, e.policy, e.ledger, e.notifier)
	e.changeRequests = NewChangeRequestService(e.store, e.clock, e.policy, e.schedules, e.notifier)
	e.classRequests = NewClassRequestService(e.store, e.clock, e.notifier)
	return e
}

func (e *testEnv) openSlot(t *testing.T, hour int) *entity.Availability {
	t.Helper()
	a, err := e.availability.Create(e.ctx, e.tutorID, SlotInput{TimeSlotID: e.slots[hour], Date: e.day})
	require.NoError(t, err)
	return a
}

func (e *testEnv) newBooking(t *testing.T, learnerID uuid.UUID, sessions int) *entity.Booking {
	t.Helper()
	b, err := e.bookings.CreateBooking(e.ctx, learnerID, e.subject.ID, sessions)
	require.NoError(t, err)
	return b
}

func (e *testEnv) newPaidBooking(t *testing.T, learnerID uuid.UUID, sessions int) *entity.Booking {
	t.Helper()
	b := e.newBooking(t, learnerID, sessions)
	_, err := e.ledger.Deposit(e.ctx, learnerID, b.TotalAmount, "пополнение")
	require.NoError(t, err)
	b, err = e.bookings.PayBooking(e.ctx, b.ID, learnerID)
	require.NoError(t, err)
	return b
}

func (e *testEnv) scheduleAt(t *testing.T, b *entity.Booking, hour int) *entity.Schedule {
	t.Helper()
	a := e.openSlot(t, hour)
	s, err := e.schedules.CreateSchedule(e.ctx, b.ID, a.ID, b.LearnerID)
	require.NoError(t, err)
	return s
}

// finishSession проводит занятие по времени до Pending и возвращает подтверждение.
func (e *testEnv) finishSession(t *testing.T, s *entity.Schedule) *entity.CompletionConfirmation {
	t.Helper()
	e.clock.Set(s.EndAt.Add(time.Minute))
	require.NoError(t, e.schedules.AdvanceSchedule(e.ctx, s.ID))
	require.Equal(t, valueobject.SchedulePending, e.scheduleStatus(t, s.ID))
	return e.confirmation(t, s.ID)
}

func (e *testEnv) scheduleStatus(t *testing.T, id uuid.UUID) valueobject.ScheduleStatus {
	t.Helper()
	s, err := e.store.Schedules().Get(e.ctx, id)
	require.NoError(t, err)
	return s.Status
}

func (e *testEnv) booking(t *testing.T, id uuid.UUID) *entity.Booking {
	t.Helper()
	b, err := e.store.Bookings().Get(e.ctx, id)
	require.NoError(t, err)
	return b
}

func (e *testEnv) availabilityStatus(t *testing.T, id uuid.UUID) valueobject.AvailabilityStatus {
	t.Helper()
	a, err := e.store.Availabilities().Get(e.ctx, id)
	require.NoError(t, err)
	return a.Status
}

func (e *testEnv) confirmation(t *testing.T, scheduleID uuid.UUID) *entity.CompletionConfirmation {
	t.Helper()
	c, err := e.store.Confirmations().GetByScheduleForUpdate(e.ctx, scheduleID)
	require.NoError(t, err)
	return c
}

func (e *testEnv) payout(t *testing.T, scheduleID uuid.UUID) *entity.Payout {
	t.Helper()
	p, err := e.store.Payouts().GetByScheduleForUpdate(e.ctx, scheduleID)
	require.NoError(t, err)
	return p
}

func (e *testEnv) wallet(t *testing.T, ownerID uuid.UUID) *entity.Wallet {
	t.Helper()
	w, err := e.ledger.GetWallet(e.ctx, ownerID)
	require.NoError(t, err)
	return w
}

func (e *testEnv) platformBalance(t *testing.T, kind valueobject.WalletKind) int64 {
	t.Helper()
	w, err := e.ledger.PlatformWallet(e.ctx, kind)
	require.NoError(t, err)
	return w.Balance
}
