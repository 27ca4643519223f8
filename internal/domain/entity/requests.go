package entity

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// ScheduleChangeRequest - запрос на перенос занятия в другой слот того же преподавателя.
type ScheduleChangeRequest struct {
	ID                    uuid.UUID                       `db:"id" json:"id"`
	ScheduleID            uuid.UUID                       `db:"schedule_id" json:"schedule_id"`
	BookingID             uuid.UUID                       `db:"booking_id" json:"booking_id"`
	RequestedBy           uuid.UUID                       `db:"requested_by" json:"requested_by"`
	CurrentAvailabilityID uuid.UUID                       `db:"current_availability_id" json:"current_availability_id"`
	NewAvailabilityID     uuid.UUID                       `db:"new_availability_id" json:"new_availability_id"`
	CurrentStartAt        time.Time                       `db:"current_start_at" json:"current_start_at"`
	NewStartAt            time.Time                       `db:"new_start_at" json:"new_start_at"`
	Reason                *string                         `db:"reason" json:"reason,omitempty"`
	Status                valueobject.ChangeRequestStatus `db:"status" json:"status"`
	DecidedBy             *uuid.UUID                      `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt             *time.Time                      `db:"decided_at" json:"decided_at,omitempty"`
	CancelReason          *string                         `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version               int64                           `db:"version" json:"-"`
	CreatedAt             time.Time                       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time                       `db:"updated_at" json:"updated_at"`
}

func NewScheduleChangeRequest(s *Schedule, requestedBy uuid.UUID, target *Availability, reason string, now time.Time) (*ScheduleChangeRequest, error) {
	if s.Status != valueobject.ScheduleUpcoming {
		return nil, apperror.New(apperror.ErrCodeConflict, "перенести можно только предстоящее занятие")
	}
	if target.TutorID != s.TutorID {
		return nil, apperror.ErrTutorMismatch
	}
	if target.ID == s.AvailabilityID {
		return nil, apperror.New(apperror.ErrCodeValidation, "новый слот совпадает с текущим")
	}
	if target.Status != valueobject.AvailabilityAvailable {
		return nil, apperror.ErrAvailabilityNotAvailable
	}
	if !target.StartAt.After(now) {
		return nil, apperror.ErrSlotInPast
	}

	r := &ScheduleChangeRequest{
		ID:                    uuid.New(),
		ScheduleID:            s.ID,
		BookingID:             s.BookingID,
		RequestedBy:           requestedBy,
		CurrentAvailabilityID: s.AvailabilityID,
		NewAvailabilityID:     target.ID,
		CurrentStartAt:        s.StartAt,
		NewStartAt:            target.StartAt,
		Status:                valueobject.ChangeRequestPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		r.Reason = &reason
	}
	return r, nil
}

func (r *ScheduleChangeRequest) decide(status valueobject.ChangeRequestStatus, by *uuid.UUID, now time.Time) error {
	if r.Status != valueobject.ChangeRequestPending {
		return apperror.ErrInvalidTransition
	}
	r.Status = status
	r.DecidedBy = by
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *ScheduleChangeRequest) Approve(by uuid.UUID, now time.Time) error {
	return r.decide(valueobject.ChangeRequestApproved, &by, now)
}

func (r *ScheduleChangeRequest) Reject(by uuid.UUID, now time.Time) error {
	return r.decide(valueobject.ChangeRequestRejected, &by, now)
}

func (r *ScheduleChangeRequest) Cancel(reason string, now time.Time) error {
	if err := r.decide(valueobject.ChangeRequestCancelled, nil, now); err != nil {
		return err
	}
	r.CancelReason = &reason
	return nil
}

// ClassRequest - открытая заявка ученика на занятие по предмету.
type ClassRequest struct {
	ID              uuid.UUID                      `db:"id" json:"id"`
	LearnerID       uuid.UUID                      `db:"learner_id" json:"learner_id"`
	SubjectID       uuid.UUID                      `db:"subject_id" json:"subject_id"`
	ExpectedStartAt time.Time                      `db:"expected_start_at" json:"expected_start_at"`
	Note            *string                        `db:"note" json:"note,omitempty"`
	Status          valueobject.ClassRequestStatus `db:"status" json:"status"`
	ClosedAt        *time.Time                     `db:"closed_at" json:"closed_at,omitempty"`
	Version         int64                          `db:"version" json:"-"`
	CreatedAt       time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                      `db:"updated_at" json:"updated_at"`
}

func NewClassRequest(learnerID, subjectID uuid.UUID, expectedStart time.Time, note string, now time.Time) (*ClassRequest, error) {
	if subjectID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан предмет")
	}
	if !expectedStart.After(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "ожидаемое время начала должно быть в будущем")
	}
	r := &ClassRequest{
		ID:              uuid.New(),
		LearnerID:       learnerID,
		SubjectID:       subjectID,
		ExpectedStartAt: expectedStart,
		Status:          valueobject.ClassRequestOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if note = strings.TrimSpace(note); note != "" {
		r.Note = &note
	}
	return r, nil
}

func (r *ClassRequest) finish(status valueobject.ClassRequestStatus, now time.Time) error {
	if r.Status != valueobject.ClassRequestOpen {
		return apperror.ErrInvalidTransition
	}
	r.Status = status
	r.ClosedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *ClassRequest) Close(now time.Time) error {
	return r.finish(valueobject.ClassRequestClosed, now)
}

func (r *ClassRequest) Expire(now time.Time) error {
	if now.Before(r.ExpectedStartAt) {
		return apperror.ErrTooEarly
	}
	return r.finish(valueobject.ClassRequestExpired, now)
}

// BookingRefundRequest - запрос ученика на возврат по оплаченному бронированию.
type BookingRefundRequest struct {
	ID            uuid.UUID                       `db:"id" json:"id"`
	BookingID     uuid.UUID                       `db:"booking_id" json:"booking_id"`
	LearnerID     uuid.UUID                       `db:"learner_id" json:"learner_id"`
	Amount        int64                           `db:"amount" json:"amount"`
	Reason        string                          `db:"reason" json:"reason"`
	Status        valueobject.RefundRequestStatus `db:"status" json:"status"`
	DecidedBy     *uuid.UUID                      `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt     *time.Time                      `db:"decided_at" json:"decided_at,omitempty"`
	Note          *string                         `db:"note" json:"note,omitempty"`
	TransactionID *uuid.UUID                      `db:"transaction_id" json:"transaction_id,omitempty"`
	Version       int64                           `db:"version" json:"-"`
	CreatedAt     time.Time                       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time                       `db:"updated_at" json:"updated_at"`
}

func NewBookingRefundRequest(b *Booking, learnerID uuid.UUID, amount int64, reason string, now time.Time) (*BookingRefundRequest, error) {
	if b.LearnerID != learnerID {
		return nil, apperror.ErrForbidden
	}
	if b.PaymentStatus != valueobject.PaymentPaid {
		return nil, apperror.ErrBookingNotPaid
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	if amount > b.TotalAmount-b.RefundedAmount {
		return nil, apperror.ErrRefundExceedsPaid
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите причину возврата")
	}
	return &BookingRefundRequest{
		ID:        uuid.New(),
		BookingID: b.ID,
		LearnerID: learnerID,
		Amount:    amount,
		Reason:    reason,
		Status:    valueobject.RefundRequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *BookingRefundRequest) decide(status valueobject.RefundRequestStatus, adminID uuid.UUID, note string, now time.Time) error {
	if r.Status != valueobject.RefundRequestPending {
		return apperror.ErrInvalidTransition
	}
	r.Status = status
	r.DecidedBy = &adminID
	r.DecidedAt = &now
	if note != "" {
		r.Note = &note
	}
	r.UpdatedAt = now
	return nil
}

func (r *BookingRefundRequest) Approve(adminID uuid.UUID, txID uuid.UUID, note string, now time.Time) error {
	if err := r.decide(valueobject.RefundRequestApproved, adminID, note, now); err != nil {
		return err
	}
	r.TransactionID = &txID
	return nil
}

func (r *BookingRefundRequest) Reject(adminID uuid.UUID, note string, now time.Time) error {
	return r.decide(valueobject.RefundRequestRejected, adminID, note, now)
}

// Withdrawal - вывод средств с кошелька на банковскую карту.
type Withdrawal struct {
	ID              uuid.UUID                    `db:"id" json:"id"`
	WalletID        uuid.UUID                    `db:"wallet_id" json:"wallet_id"`
	OwnerID         uuid.UUID                    `db:"owner_id" json:"owner_id"`
	Amount          int64                        `db:"amount" json:"amount"`
	Status          valueobject.WithdrawalStatus `db:"status" json:"status"`
	CardLast4       string                       `db:"card_last4" json:"card_last4"`
	BankName        *string                      `db:"bank_name" json:"bank_name,omitempty"`
	RejectionReason *string                      `db:"rejection_reason" json:"rejection_reason,omitempty"`
	TransactionID   *uuid.UUID                   `db:"transaction_id" json:"transaction_id,omitempty"`
	ProcessedAt     *time.Time                   `db:"processed_at" json:"processed_at,omitempty"`
	Version         int64                        `db:"version" json:"-"`
	CreatedAt       time.Time                    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                    `db:"updated_at" json:"updated_at"`
}

func NewWithdrawal(w *Wallet, amount, minAmount int64, cardLast4, bankName string, now time.Time) (*Withdrawal, error) {
	if amount < minAmount {
		return nil, apperror.ErrMinWithdrawalAmount
	}
	if len(cardLast4) != 4 || strings.Trim(cardLast4, "0123456789") != "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите последние 4 цифры карты")
	}
	wd := &Withdrawal{
		ID:        uuid.New(),
		WalletID:  w.ID,
		OwnerID:   w.OwnerID,
		Amount:    amount,
		Status:    valueobject.WithdrawalPending,
		CardLast4: cardLast4,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if bankName = strings.TrimSpace(bankName); bankName != "" {
		wd.BankName = &bankName
	}
	return wd, nil
}

func (w *Withdrawal) Complete(now time.Time) error {
	if w.Status != valueobject.WithdrawalPending {
		return apperror.ErrInvalidTransition
	}
	w.Status = valueobject.WithdrawalCompleted
	w.ProcessedAt = &now
	w.UpdatedAt = now
	return nil
}

func (w *Withdrawal) Reject(reason string, now time.Time) error {
	if w.Status != valueobject.WithdrawalPending {
		return apperror.ErrInvalidTransition
	}
	w.Status = valueobject.WithdrawalRejected
	w.RejectionReason = &reason
	w.ProcessedAt = &now
	w.UpdatedAt = now
	return nil
}

// Report - жалоба участника на занятие. Открытая жалоба блокирует выплату.
type Report struct {
	ID         uuid.UUID                   `db:"id" json:"id"`
	BookingID  uuid.UUID                   `db:"booking_id" json:"booking_id"`
	ScheduleID uuid.UUID                   `db:"schedule_id" json:"schedule_id"`
	ReporterID uuid.UUID                   `db:"reporter_id" json:"reporter_id"`
	Reason     string                      `db:"reason" json:"reason"`
	Status     valueobject.ReportStatus    `db:"status" json:"status"`
	Resolution *valueobject.HoldResolution `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy *uuid.UUID                  `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time                  `db:"resolved_at" json:"resolved_at,omitempty"`
	Version    int64                       `db:"version" json:"-"`
	CreatedAt  time.Time                   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time                   `db:"updated_at" json:"updated_at"`
}

func NewReport(s *Schedule, reporterID uuid.UUID, reason string, now time.Time) (*Report, error) {
	if !s.IsParticipant(reporterID) {
		return nil, apperror.ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите причину жалобы")
	}
	return &Report{
		ID:         uuid.New(),
		BookingID:  s.BookingID,
		ScheduleID: s.ID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     valueobject.ReportOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (r *Report) Resolve(resolution valueobject.HoldResolution, adminID uuid.UUID, now time.Time) error {
	if r.Status != valueobject.ReportOpen {
		return apperror.ErrInvalidTransition
	}
	r.Status = valueobject.ReportResolved
	r.Resolution = &resolution
	r.ResolvedBy = &adminID
	r.ResolvedAt = &now
	r.UpdatedAt = now
	return nil
}

// Notification - сохранённое уведомление пользователю.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
