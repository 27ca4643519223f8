package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// Schedule - конкретное занятие бронирования в слоте доступности.
type Schedule struct {
	ID             uuid.UUID                  `db:"id" json:"id"`
	BookingID      uuid.UUID                  `db:"booking_id" json:"booking_id"`
	AvailabilityID uuid.UUID                  `db:"availability_id" json:"availability_id"`
	TutorID        uuid.UUID                  `db:"tutor_id" json:"tutor_id"`
	LearnerID      uuid.UUID                  `db:"learner_id" json:"learner_id"`
	StartAt        time.Time                  `db:"start_at" json:"start_at"`
	EndAt          time.Time                  `db:"end_at" json:"end_at"`
	Status         valueobject.ScheduleStatus `db:"status" json:"status"`
	Refunded       bool                       `db:"refunded" json:"refunded"`
	MeetingLink    *string                    `db:"meeting_link" json:"meeting_link,omitempty"`
	MeetingEventID *string                    `db:"meeting_event_id" json:"-"`
	CancelledAt    *time.Time                 `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Version        int64                      `db:"version" json:"-"`
	CreatedAt      time.Time                  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time                  `db:"updated_at" json:"updated_at"`
}

func NewSchedule(booking *Booking, slot *Availability, now time.Time) *Schedule {
	return &Schedule{
		ID:             uuid.New(),
		BookingID:      booking.ID,
		AvailabilityID: slot.ID,
		TutorID:        booking.TutorID,
		LearnerID:      booking.LearnerID,
		StartAt:        slot.StartAt,
		EndAt:          slot.EndAt,
		Status:         valueobject.ScheduleUpcoming,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *Schedule) transition(next valueobject.ScheduleStatus, now time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		return apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict,
			"недопустимый переход занятия "+string(s.Status)+" → "+string(next))
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}

// Start переводит занятие в InProgress, не раньше времени начала.
func (s *Schedule) Start(now time.Time) error {
	if now.Before(s.StartAt) {
		return apperror.ErrTooEarly
	}
	return s.transition(valueobject.ScheduleInProgress, now)
}

// Finish переводит занятие в Pending, не раньше времени окончания.
func (s *Schedule) Finish(now time.Time) error {
	if now.Before(s.EndAt) {
		return apperror.ErrTooEarly
	}
	return s.transition(valueobject.SchedulePending, now)
}

// HoldForReview - занятие ждёт решения по жалобе.
func (s *Schedule) HoldForReview(now time.Time) error {
	if s.Status == valueobject.ScheduleProcessing {
		return nil
	}
	return s.transition(valueobject.ScheduleProcessing, now)
}

func (s *Schedule) Complete(now time.Time) error {
	if s.Status == valueobject.ScheduleCompleted {
		return nil
	}
	return s.transition(valueobject.ScheduleCompleted, now)
}

func (s *Schedule) Cancel(now time.Time) error {
	if err := s.transition(valueobject.ScheduleCancelled, now); err != nil {
		return err
	}
	s.CancelledAt = &now
	return nil
}

// StartsWithin сообщает, начинается ли занятие в ближайшие window от now.
func (s *Schedule) StartsWithin(now time.Time, window time.Duration) bool {
	return s.StartAt.Sub(now) < window
}

func (s *Schedule) SetMeeting(link, eventID string, now time.Time) {
	s.MeetingLink = &link
	s.MeetingEventID = &eventID
	s.UpdatedAt = now
}

func (s *Schedule) IsParticipant(userID uuid.UUID) bool {
	return s.LearnerID == userID || s.TutorID == userID
}
