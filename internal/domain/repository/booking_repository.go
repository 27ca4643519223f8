package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
)

type BookingRepository interface {
	Create(ctx context.Context, b *entity.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	Update(ctx context.Context, b *entity.Booking) error
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	// ListStale - Pending бронирования, созданные раньше createdBefore, без занятий дальше Upcoming.
	ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
	// ListFoldCandidates - Confirmed бронирования с занятиями, среди которых нет Upcoming.
	ListFoldCandidates(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, s *entity.Schedule) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Schedule, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Schedule, error)
	Update(ctx context.Context, s *entity.Schedule) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*entity.Schedule, error)
	Statuses(ctx context.Context, bookingID uuid.UUID) ([]valueobject.ScheduleStatus, error)
	CountActiveByBooking(ctx context.Context, bookingID uuid.UUID) (int, error)
	ExistsActiveForAvailability(ctx context.Context, availabilityID uuid.UUID) (bool, error)
	// HasTutorOverlap ищет неотменённое занятие преподавателя, пересекающее [start, end).
	HasTutorOverlap(ctx context.Context, tutorID uuid.UUID, start, end time.Time) (bool, error)
	// ListDue - Upcoming с наступившим началом и InProgress с наступившим концом.
	ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}
