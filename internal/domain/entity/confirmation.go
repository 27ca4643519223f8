package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// CompletionConfirmation - подтверждение учеником, что занятие состоялось.
type CompletionConfirmation struct {
	ID              uuid.UUID                      `db:"id" json:"id"`
	ScheduleID      uuid.UUID                      `db:"schedule_id" json:"schedule_id"`
	BookingID       uuid.UUID                      `db:"booking_id" json:"booking_id"`
	TutorID         uuid.UUID                      `db:"tutor_id" json:"tutor_id"`
	LearnerID       uuid.UUID                      `db:"learner_id" json:"learner_id"`
	Status          valueobject.ConfirmationStatus `db:"status" json:"status"`
	Deadline        time.Time                      `db:"deadline" json:"deadline"`
	ConfirmedAt     *time.Time                     `db:"confirmed_at" json:"confirmed_at,omitempty"`
	AutoCompletedAt *time.Time                     `db:"auto_completed_at" json:"auto_completed_at,omitempty"`
	HeldAt          *time.Time                     `db:"held_at" json:"held_at,omitempty"`
	CancelledAt     *time.Time                     `db:"cancelled_at" json:"cancelled_at,omitempty"`
	ReportID        *uuid.UUID                     `db:"report_id" json:"report_id,omitempty"`
	Version         int64                          `db:"version" json:"-"`
	CreatedAt       time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                      `db:"updated_at" json:"updated_at"`
}

// NewCompletionConfirmation создаётся при переходе занятия в Pending.
// Дедлайн фиксируется один раз: конец занятия плюс grace.
func NewCompletionConfirmation(s *Schedule, grace time.Duration, now time.Time) *CompletionConfirmation {
	return &CompletionConfirmation{
		ID:         uuid.New(),
		ScheduleID: s.ID,
		BookingID:  s.BookingID,
		TutorID:    s.TutorID,
		LearnerID:  s.LearnerID,
		Status:     valueobject.ConfirmationPendingConfirm,
		Deadline:   s.EndAt.Add(grace),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (c *CompletionConfirmation) transition(next valueobject.ConfirmationStatus, now time.Time) error {
	if !c.Status.CanTransitionTo(next) {
		return apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict,
			"недопустимый переход подтверждения "+string(c.Status)+" → "+string(next))
	}
	c.Status = next
	c.UpdatedAt = now
	return nil
}

func (c *CompletionConfirmation) ConfirmByLearner(now time.Time) error {
	if c.Status != valueobject.ConfirmationPendingConfirm {
		return apperror.ErrInvalidTransition
	}
	if err := c.transition(valueobject.ConfirmationLearnerConfirmed, now); err != nil {
		return err
	}
	c.ConfirmedAt = &now
	return nil
}

func (c *CompletionConfirmation) AutoComplete(now time.Time) error {
	if c.Status != valueobject.ConfirmationPendingConfirm {
		return apperror.ErrInvalidTransition
	}
	if !now.After(c.Deadline) {
		return apperror.ErrTooEarly
	}
	if err := c.transition(valueobject.ConfirmationAutoCompleted, now); err != nil {
		return err
	}
	c.AutoCompletedAt = &now
	return nil
}

// Hold приостанавливает подтверждение до решения по жалобе.
func (c *CompletionConfirmation) Hold(reportID *uuid.UUID, now time.Time) error {
	if c.Status == valueobject.ConfirmationReportedOnHold {
		if reportID != nil {
			c.ReportID = reportID
		}
		return nil
	}
	if err := c.transition(valueobject.ConfirmationReportedOnHold, now); err != nil {
		return err
	}
	c.HeldAt = &now
	if reportID != nil {
		c.ReportID = reportID
	}
	return nil
}

// ReleaseHold возвращает подтверждение в терминальное состояние по решению администратора.
func (c *CompletionConfirmation) ReleaseHold(now time.Time) error {
	if c.Status != valueobject.ConfirmationReportedOnHold {
		return apperror.ErrInvalidTransition
	}
	if c.ConfirmedAt != nil {
		return c.transition(valueobject.ConfirmationLearnerConfirmed, now)
	}
	if err := c.transition(valueobject.ConfirmationAutoCompleted, now); err != nil {
		return err
	}
	c.AutoCompletedAt = &now
	return nil
}

func (c *CompletionConfirmation) Cancel(now time.Time) error {
	if c.Status == valueobject.ConfirmationCancelled {
		return nil
	}
	if err := c.transition(valueobject.ConfirmationCancelled, now); err != nil {
		return err
	}
	c.CancelledAt = &now
	return nil
}

// ConfirmationTime - момент, от которого отсчитывается задержка выплаты.
func (c *CompletionConfirmation) ConfirmationTime(fallback time.Time) time.Time {
	switch {
	case c.ConfirmedAt != nil:
		return *c.ConfirmedAt
	case c.AutoCompletedAt != nil:
		return *c.AutoCompletedAt
	}
	return fallback
}

// Trigger - причина выплаты для терминального состояния.
func (c *CompletionConfirmation) Trigger() valueobject.PayoutTrigger {
	if c.Status == valueobject.ConfirmationLearnerConfirmed {
		return valueobject.PayoutTriggerLearnerConfirmed
	}
	return valueobject.PayoutTriggerAutoCompleted
}
