package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tutoring-backend/internal/config"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

var start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type engine struct {
	store      *memory.Store
	clock      *clock.Fake
	policy     service.Policy
	ledger     *service.LedgerService
	avail      *service.AvailabilityService
	schedules  *service.ScheduleService
	bookings   *service.BookingService
	payouts    *service.PayoutService
	completion *service.CompletionService
	reports    *service.ReportService
	svc        Services
}

func newEngine() *engine {
	e := &engine{store: memory.NewStore(), clock: clock.NewFake(start), policy: service.DefaultPolicy()}
	e.ledger = service.NewLedgerService(e.store, e.clock)
	e.avail = service.NewAvailabilityService(e.store, e.clock)
	e.schedules = service.NewScheduleService(e.store, e.clock, e.policy, e.ledger, nil, nil)
	e.bookings = service.NewBookingService(e.store, e.clock, e.policy, e.ledger, e.schedules, nil)
	e.payouts = service.NewPayoutService(e.store, e.clock, e.policy, e.ledger, nil)
	e.completion = service.NewCompletionService(e.store, e.clock, e.policy, e.payouts, e.schedules, nil)
	e.reports = service.NewReportService(e.store, e.clock, e.completion, e.schedules, nil)
	e.svc = Services{
		Bookings:       e.bookings,
		Schedules:      e.schedules,
		Completion:     e.completion,
		Payouts:        e.payouts,
		ChangeRequests: service.NewChangeRequestService(e.store, e.clock, e.policy, e.schedules, nil),
		ClassRequests:  service.NewClassRequestService(e.store, e.clock, nil),
	}
	return e
}

func taskByName(t *testing.T, tasks []Task, name string) Task {
	t.Helper()
	for _, task := range tasks {
		if task.Name == name {
			return task
		}
	}
	t.Fatalf("воркер %s не найден", name)
	return Task{}
}

func TestPayoutRelease_HeldPayoutDoesNotBlockBatch(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	tutorID, learnerID := uuid.New(), uuid.New()
	day := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	subject := entity.TutorSubject{ID: uuid.New(), TutorID: tutorID, SubjectID: uuid.New(), Rate: 100000, IsActive: true}
	e.store.AddTutorSubject(subject)
	e.store.AddSystemFee(entity.SystemFee{ID: uuid.New(), PercentageBP: 1000, IsActive: true, EffectiveFrom: start.Add(-time.Hour)})

	b, err := e.bookings.CreateBooking(ctx, learnerID, subject.ID, 2)
	require.NoError(t, err)
	_, err = e.ledger.Deposit(ctx, learnerID, b.TotalAmount, "пополнение")
	require.NoError(t, err)
	_, err = e.bookings.PayBooking(ctx, b.ID, learnerID)
	require.NoError(t, err)

	var sessions []*entity.Schedule
	for _, hour := range []int{10, 12} {
		slotID := uuid.New()
		e.store.AddTimeSlot(entity.TimeSlot{ID: slotID, StartMinute: hour * 60, EndMinute: (hour + 1) * 60})
		a, err := e.avail.Create(ctx, tutorID, service.SlotInput{TimeSlotID: slotID, Date: day})
		require.NoError(t, err)
		s, err := e.schedules.CreateSchedule(ctx, b.ID, a.ID, learnerID)
		require.NoError(t, err)
		sessions = append(sessions, s)
	}

	// первое занятие подтверждено раньше, поэтому его выплата старше
	for _, s := range sessions {
		e.clock.Set(s.EndAt.Add(time.Minute))
		require.NoError(t, e.schedules.AdvanceSchedule(ctx, s.ID))
		_, err := e.completion.ConfirmByLearner(ctx, s.ID, learnerID)
		require.NoError(t, err)
	}
	held, healthy := sessions[0], sessions[1]
	_, err = e.reports.FileReport(ctx, held.ID, learnerID, "занятие не состоялось")
	require.NoError(t, err)

	cfg := config.Engine{WorkerBatchSize: 1}
	task := taskByName(t, Tasks(cfg, e.svc), "payout-release")
	require.Equal(t, 1, task.BatchSize)

	e.clock.Advance(e.policy.PayoutDelay + time.Hour)
	res, err := RunPass(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, PassResult{Selected: 1, Processed: 1}, res)

	heldPayout, err := e.store.Payouts().GetByScheduleForUpdate(ctx, held.ID)
	require.NoError(t, err)
	healthyPayout, err := e.store.Payouts().GetByScheduleForUpdate(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.PayoutOnHold, heldPayout.Status)
	assert.Equal(t, valueobject.PayoutPaid, healthyPayout.Status)

	// дальше удержанная выплата в пачку не попадает
	res, err = RunPass(ctx, task)
	require.NoError(t, err)
	assert.Zero(t, res.Selected)

	w, err := e.ledger.GetWallet(ctx, tutorID)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), w.Balance)
}
