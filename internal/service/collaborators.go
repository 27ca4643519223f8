package service

import (
	"context"

	"github.com/google/uuid"
)

// MeetingProvisioner создаёт и удаляет видеовстречи для занятий.
type MeetingProvisioner interface {
	CreateMeetingForSchedule(ctx context.Context, scheduleID uuid.UUID) (link, eventID string, err error)
	DeleteMeeting(ctx context.Context, eventID string) error
}

// Notifier доставляет уведомления участникам. Ошибки доставки не влияют на вызывающего.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, event string, data any)
}

// EventPublisher публикует доменные события во внешнюю шину.
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// События, которые получают участники.
const (
	EventBookingCreated        = "booking.created"
	EventBookingPaid           = "booking.paid"
	EventBookingCancelled      = "booking.cancelled"
	EventBookingCompleted      = "booking.completed"
	EventScheduleCreated       = "schedule.created"
	EventScheduleCancelled     = "schedule.cancelled"
	EventScheduleRescheduled   = "schedule.rescheduled"
	EventCompletionRequested   = "completion.requested"
	EventCompletionConfirmed   = "completion.confirmed"
	EventPayoutPaid            = "payout.paid"
	EventRefundApproved        = "refund.approved"
	EventRefundRejected        = "refund.rejected"
	EventReportFiled           = "report.filed"
	EventReportResolved        = "report.resolved"
	EventWithdrawalCompleted   = "withdrawal.completed"
	EventWithdrawalRejected    = "withdrawal.rejected"
	EventChangeRequestCreated  = "change_request.created"
	EventChangeRequestApproved = "change_request.approved"
	EventChangeRequestRejected = "change_request.rejected"
	EventChangeRequestExpired  = "change_request.expired"
	EventClassRequestExpired   = "class_request.expired"
)

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, uuid.UUID, string, any) {}

type noopMeetings struct{}

func (noopMeetings) CreateMeetingForSchedule(context.Context, uuid.UUID) (string, string, error) {
	return "", "", nil
}

func (noopMeetings) DeleteMeeting(context.Context, string) error { return nil }

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
