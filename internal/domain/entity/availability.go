package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// Availability - слот, в который преподаватель готов провести занятие.
type Availability struct {
	ID         uuid.UUID                      `db:"id" json:"id"`
	TutorID    uuid.UUID                      `db:"tutor_id" json:"tutor_id"`
	TimeSlotID uuid.UUID                      `db:"time_slot_id" json:"time_slot_id"`
	Date       time.Time                      `db:"date" json:"date"`
	StartAt    time.Time                      `db:"start_at" json:"start_at"`
	EndAt      time.Time                      `db:"end_at" json:"end_at"`
	Status     valueobject.AvailabilityStatus `db:"status" json:"status"`
	Version    int64                          `db:"version" json:"-"`
	CreatedAt  time.Time                      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time                      `db:"updated_at" json:"updated_at"`
}

// NewAvailability строит слот на дату по сетке времени. Дата обрезается до суток.
func NewAvailability(tutorID uuid.UUID, slot *TimeSlot, date time.Time, now time.Time) (*Availability, error) {
	if tutorID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан преподаватель")
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start, end := slot.Bounds(day)
	if !start.After(now) {
		return nil, apperror.ErrSlotInPast
	}

	return &Availability{
		ID:         uuid.New(),
		TutorID:    tutorID,
		TimeSlotID: slot.ID,
		Date:       day,
		StartAt:    start,
		EndAt:      end,
		Status:     valueobject.AvailabilityAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (a *Availability) TransitionTo(next valueobject.AvailabilityStatus, now time.Time) error {
	if !a.Status.CanTransitionTo(next) {
		return apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict,
			"недопустимый переход слота "+string(a.Status)+" → "+string(next))
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}

// Release возвращает забронированный слот в доступные после отмены занятия.
func (a *Availability) Release(now time.Time) error {
	if a.Status != valueobject.AvailabilityBooked {
		return apperror.ErrInvalidTransition
	}
	a.Status = valueobject.AvailabilityAvailable
	a.UpdatedAt = now
	return nil
}

// Override - ручная установка статуса администратором, без проверки графа переходов.
func (a *Availability) Override(status valueobject.AvailabilityStatus, now time.Time) error {
	if !status.IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "некорректный статус слота")
	}
	a.Status = status
	a.UpdatedAt = now
	return nil
}

func (a *Availability) CanDelete() bool {
	return a.Status == valueobject.AvailabilityAvailable || a.Status == valueobject.AvailabilityCancelled
}

// Overlaps проверяет пересечение интервалов [start, end).
func (a *Availability) Overlaps(start, end time.Time) bool {
	return a.StartAt.Before(end) && start.Before(a.EndAt)
}
