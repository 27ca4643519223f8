package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
)

type AvailabilityRepository interface {
	Create(ctx context.Context, a *entity.Availability) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Availability, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Availability, error)
	// Update пишет строку при совпадении версии и увеличивает её, иначе ErrStaleWrite.
	Update(ctx context.Context, a *entity.Availability) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ExistsActive ищет неотменённый слот преподавателя на ту же сетку и дату.
	ExistsActive(ctx context.Context, tutorID, timeSlotID uuid.UUID, date time.Time) (bool, error)
	ListByTutor(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]*entity.Availability, error)
}

// ReferenceRepository - справочники только для чтения.
type ReferenceRepository interface {
	GetTimeSlot(ctx context.Context, id uuid.UUID) (*entity.TimeSlot, error)
	ListTimeSlots(ctx context.Context) ([]*entity.TimeSlot, error)
	GetTutorSubject(ctx context.Context, id uuid.UUID) (*entity.TutorSubject, error)
	// GetActiveSystemFee возвращает последнюю активную комиссию, вступившую в силу к моменту at.
	GetActiveSystemFee(ctx context.Context, at time.Time) (*entity.SystemFee, error)
}
