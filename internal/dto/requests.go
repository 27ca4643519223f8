package dto

import (
	"time"

	"github.com/google/uuid"
)

// SlotRequest - слот доступности на конкретную дату (YYYY-MM-DD, UTC).
type SlotRequest struct {
	TimeSlotID uuid.UUID `json:"time_slot_id" binding:"required"`
	Date       string    `json:"date" binding:"required"`
}

// CreateAvailabilityRequest создаёт один слот или пачку слотов за раз.
type CreateAvailabilityRequest struct {
	Slots []SlotRequest `json:"slots" binding:"required,min=1,max=100,dive"`
}

// UpdateStatusRequest - смена статуса слота или занятия.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateBookingRequest - бронирование пакета занятий у преподавателя.
type CreateBookingRequest struct {
	TutorSubjectID uuid.UUID `json:"tutor_subject_id" binding:"required"`
	TotalSessions  int       `json:"total_sessions" binding:"required,gt=0,max=100"`
}

// CancelRequest - причина отмены, необязательна.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// CreateScheduleRequest - назначение занятия бронирования на слот.
type CreateScheduleRequest struct {
	AvailabilityID uuid.UUID `json:"availability_id" binding:"required"`
}

// CreateReportRequest - жалоба на занятие.
type CreateReportRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveReportRequest - решение администратора: release_to_tutor или refund_learner.
type ResolveReportRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// RefundRequest - запрос ученика на возврат части оплаты.
type RefundRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required"`
}

// AdminNoteRequest - комментарий администратора к решению.
type AdminNoteRequest struct {
	Note string `json:"note"`
}

// DepositRequest - пополнение кошелька из платёжного шлюза, сумма в копейках.
type DepositRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

// CreateWithdrawalRequest - вывод на карту, сумма в копейках.
type CreateWithdrawalRequest struct {
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	CardLast4 string `json:"card_last4" binding:"required,len=4"`
	BankName  string `json:"bank_name"`
}

// RejectRequest - отказ с обязательной причиной.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateChangeRequest - перенос занятия в другой слот.
type CreateChangeRequest struct {
	NewAvailabilityID uuid.UUID `json:"new_availability_id" binding:"required"`
	Reason            string    `json:"reason"`
}

// CreateClassRequest - заявка ученика на занятие по предмету.
type CreateClassRequest struct {
	SubjectID       uuid.UUID `json:"subject_id" binding:"required"`
	ExpectedStartAt time.Time `json:"expected_start_at" binding:"required"`
	Note            string    `json:"note"`
}
