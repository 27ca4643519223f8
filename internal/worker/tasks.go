package worker

import (
	"github.com/ignatzorin/tutoring-backend/internal/config"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// Services - сервисы, которые обслуживают воркеры.
type Services struct {
	Bookings       *service.BookingService
	Schedules      *service.ScheduleService
	Completion     *service.CompletionService
	Payouts        *service.PayoutService
	ChangeRequests *service.ChangeRequestService
	ClassRequests  *service.ClassRequestService
}

// Tasks собирает семь воркеров сверки с интервалами из конфигурации.
func Tasks(cfg config.Engine, svc Services) []Task {
	batch := cfg.WorkerBatchSize
	return []Task{
		{
			Name:      "booking-auto-cancel",
			Interval:  cfg.BookingAutoCancelInterval,
			BatchSize: batch,
			Eligible:  svc.Bookings.ListStale,
			Process:   svc.Bookings.AutoCancelStale,
		},
		{
			Name:      "booking-auto-complete",
			Interval:  cfg.BookingAutoCompleteInterval,
			BatchSize: batch,
			Eligible:  svc.Bookings.ListFoldCandidates,
			Process:   svc.Bookings.Refold,
		},
		{
			Name:      "schedule-advance",
			Interval:  cfg.ScheduleAdvanceInterval,
			BatchSize: batch,
			Eligible:  svc.Schedules.ListDue,
			Process:   svc.Schedules.AdvanceSchedule,
		},
		{
			Name:      "completion-auto-complete",
			Interval:  cfg.CompletionAutoCompleteInterval,
			BatchSize: batch,
			Eligible:  svc.Completion.ListOverdue,
			Process:   svc.Completion.AutoComplete,
		},
		{
			Name:      "change-request-expiry",
			Interval:  cfg.ChangeRequestExpiryInterval,
			BatchSize: batch,
			Eligible:  svc.ChangeRequests.ListExpirable,
			Process:   svc.ChangeRequests.AutoCancel,
		},
		{
			Name:      "payout-release",
			Interval:  cfg.PayoutReleaseInterval,
			BatchSize: batch,
			Eligible:  svc.Payouts.ListDue,
			Process:   svc.Payouts.ReleasePayout,
		},
		{
			Name:      "class-request-expiry",
			Interval:  cfg.ClassRequestExpiryInterval,
			BatchSize: batch,
			Eligible:  svc.ClassRequests.ListExpired,
			Process:   svc.ClassRequests.Expire,
		},
	}
}
