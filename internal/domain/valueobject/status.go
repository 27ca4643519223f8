package valueobject

import "github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"

// AvailabilityStatus - состояние слота доступности преподавателя.
type AvailabilityStatus string

const (
	AvailabilityAvailable  AvailabilityStatus = "available"
	AvailabilityBooked     AvailabilityStatus = "booked"
	AvailabilityInProgress AvailabilityStatus = "in_progress"
	AvailabilityCancelled  AvailabilityStatus = "cancelled"
)

func (s AvailabilityStatus) IsValid() bool {
	switch s {
	case AvailabilityAvailable, AvailabilityBooked, AvailabilityInProgress, AvailabilityCancelled:
		return true
	}
	return false
}

// CanTransitionTo описывает только прямые переходы. Возврат Booked→Available
// выполняется отдельной операцией освобождения слота.
func (s AvailabilityStatus) CanTransitionTo(next AvailabilityStatus) bool {
	switch s {
	case AvailabilityAvailable:
		return next == AvailabilityBooked || next == AvailabilityCancelled
	case AvailabilityBooked:
		return next == AvailabilityInProgress || next == AvailabilityCancelled
	case AvailabilityInProgress, AvailabilityCancelled:
		return false
	}
	return false
}

func NewAvailabilityStatus(status string) (AvailabilityStatus, error) {
	s := AvailabilityStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус слота")
	}
	return s, nil
}

// BookingStatus - статус бронирования.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled:
		return true
	case BookingPending, BookingConfirmed:
		return false
	}
	return false
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCompleted || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	case BookingCompleted, BookingCancelled:
		return false
	}
	return false
}

// PaymentStatus - статус оплаты бронирования, меняется только вперёд.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return next == PaymentPaid
	case PaymentPaid:
		return next == PaymentRefunded
	case PaymentRefunded:
		return false
	}
	return false
}

// ScheduleStatus - статус конкретного занятия.
type ScheduleStatus string

const (
	ScheduleUpcoming   ScheduleStatus = "upcoming"
	ScheduleInProgress ScheduleStatus = "in_progress"
	SchedulePending    ScheduleStatus = "pending"
	ScheduleProcessing ScheduleStatus = "processing"
	ScheduleCompleted  ScheduleStatus = "completed"
	ScheduleCancelled  ScheduleStatus = "cancelled"
)

func (s ScheduleStatus) IsValid() bool {
	switch s {
	case ScheduleUpcoming, ScheduleInProgress, SchedulePending, ScheduleProcessing, ScheduleCompleted, ScheduleCancelled:
		return true
	}
	return false
}

func (s ScheduleStatus) IsTerminal() bool {
	switch s {
	case ScheduleCompleted, ScheduleCancelled:
		return true
	case ScheduleUpcoming, ScheduleInProgress, SchedulePending, ScheduleProcessing:
		return false
	}
	return false
}

func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	if next == ScheduleCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case ScheduleUpcoming:
		return next == ScheduleInProgress
	case ScheduleInProgress:
		return next == SchedulePending
	case SchedulePending:
		return next == ScheduleProcessing || next == ScheduleCompleted
	case ScheduleProcessing:
		return next == ScheduleCompleted
	case ScheduleCompleted, ScheduleCancelled:
		return false
	}
	return false
}

func NewScheduleStatus(status string) (ScheduleStatus, error) {
	s := ScheduleStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус занятия")
	}
	return s, nil
}

// FoldBookingStatus сворачивает статусы занятий в статус бронирования.
// Все отменены - бронирование отменено; все завершены или отменены и хотя бы
// одно завершено - бронирование завершено; иначе статус не меняется.
func FoldBookingStatus(current BookingStatus, schedules []ScheduleStatus) BookingStatus {
	if len(schedules) == 0 || current.IsTerminal() {
		return current
	}

	cancelled, completed := 0, 0
	for _, s := range schedules {
		switch s {
		case ScheduleCancelled:
			cancelled++
		case ScheduleCompleted:
			completed++
		case ScheduleUpcoming, ScheduleInProgress, SchedulePending, ScheduleProcessing:
			return current
		default:
			return current
		}
	}

	if cancelled == len(schedules) {
		return BookingCancelled
	}
	if completed > 0 {
		return BookingCompleted
	}
	return current
}

// ConfirmationStatus - статус подтверждения проведённого занятия.
type ConfirmationStatus string

const (
	ConfirmationPendingConfirm   ConfirmationStatus = "pending_confirm"
	ConfirmationLearnerConfirmed ConfirmationStatus = "learner_confirmed"
	ConfirmationAutoCompleted    ConfirmationStatus = "auto_completed"
	ConfirmationReportedOnHold   ConfirmationStatus = "reported_on_hold"
	ConfirmationCancelled        ConfirmationStatus = "cancelled"
)

func (s ConfirmationStatus) IsTerminal() bool {
	switch s {
	case ConfirmationLearnerConfirmed, ConfirmationAutoCompleted, ConfirmationCancelled:
		return true
	case ConfirmationPendingConfirm, ConfirmationReportedOnHold:
		return false
	}
	return false
}

// AllowsPayout сообщает, можно ли выплачивать по занятию с таким подтверждением.
func (s ConfirmationStatus) AllowsPayout() bool {
	switch s {
	case ConfirmationLearnerConfirmed, ConfirmationAutoCompleted:
		return true
	case ConfirmationPendingConfirm, ConfirmationReportedOnHold, ConfirmationCancelled:
		return false
	}
	return false
}

func (s ConfirmationStatus) CanTransitionTo(next ConfirmationStatus) bool {
	switch s {
	case ConfirmationPendingConfirm:
		return next == ConfirmationLearnerConfirmed || next == ConfirmationAutoCompleted ||
			next == ConfirmationReportedOnHold || next == ConfirmationCancelled
	case ConfirmationLearnerConfirmed, ConfirmationAutoCompleted:
		// жалоба после подтверждения, пока выплата не проведена
		return next == ConfirmationReportedOnHold
	case ConfirmationReportedOnHold:
		return next == ConfirmationLearnerConfirmed || next == ConfirmationAutoCompleted || next == ConfirmationCancelled
	case ConfirmationCancelled:
		return false
	}
	return false
}

// PayoutStatus - статус выплаты преподавателю.
type PayoutStatus string

const (
	PayoutPending        PayoutStatus = "pending"
	PayoutOnHold         PayoutStatus = "on_hold"
	PayoutReadyForPayout PayoutStatus = "ready_for_payout"
	PayoutPaid           PayoutStatus = "paid"
	PayoutCancelled      PayoutStatus = "cancelled"
)

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	if next == PayoutCancelled {
		return s != PayoutPaid && s != PayoutCancelled
	}
	switch s {
	case PayoutPending:
		return next == PayoutOnHold || next == PayoutReadyForPayout
	case PayoutOnHold:
		return next == PayoutReadyForPayout
	case PayoutReadyForPayout:
		return next == PayoutPaid || next == PayoutOnHold
	case PayoutPaid, PayoutCancelled:
		return false
	}
	return false
}

// PayoutTrigger - причина создания выплаты.
type PayoutTrigger string

const (
	PayoutTriggerLearnerConfirmed PayoutTrigger = "learner_confirmed"
	PayoutTriggerAutoCompleted    PayoutTrigger = "auto_completed"
	PayoutTriggerAdminResolved    PayoutTrigger = "admin_resolved"
)

// ChangeRequestStatus - статус запроса на перенос занятия.
type ChangeRequestStatus string

const (
	ChangeRequestPending   ChangeRequestStatus = "pending"
	ChangeRequestApproved  ChangeRequestStatus = "approved"
	ChangeRequestRejected  ChangeRequestStatus = "rejected"
	ChangeRequestCancelled ChangeRequestStatus = "cancelled"
)

// ClassRequestStatus - статус заявки ученика на занятие.
type ClassRequestStatus string

const (
	ClassRequestOpen    ClassRequestStatus = "open"
	ClassRequestClosed  ClassRequestStatus = "closed"
	ClassRequestExpired ClassRequestStatus = "expired"
)

// RefundRequestStatus - статус запроса на возврат.
type RefundRequestStatus string

const (
	RefundRequestPending  RefundRequestStatus = "pending"
	RefundRequestApproved RefundRequestStatus = "approved"
	RefundRequestRejected RefundRequestStatus = "rejected"
)

// WithdrawalStatus - статус вывода средств.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// ReportStatus - статус жалобы по занятию.
type ReportStatus string

const (
	ReportOpen     ReportStatus = "open"
	ReportResolved ReportStatus = "resolved"
)

// HoldResolution - решение администратора по жалобе.
type HoldResolution string

const (
	ResolutionReleaseToTutor HoldResolution = "release_to_tutor"
	ResolutionRefundLearner  HoldResolution = "refund_learner"
)

func NewHoldResolution(v string) (HoldResolution, error) {
	switch HoldResolution(v) {
	case ResolutionReleaseToTutor, ResolutionRefundLearner:
		return HoldResolution(v), nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректное решение по жалобе")
}

// Actor - кто инициирует переход.
type Actor string

const (
	ActorUser   Actor = "user"
	ActorAdmin  Actor = "admin"
	ActorSystem Actor = "system"
)
