package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
)

type ChangeRequestRepository interface {
	Create(ctx context.Context, r *entity.ScheduleChangeRequest) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ScheduleChangeRequest, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.ScheduleChangeRequest, error)
	Update(ctx context.Context, r *entity.ScheduleChangeRequest) error
	ListPendingBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.ScheduleChangeRequest, error)
	// ListExpirable - Pending запросы, созданные раньше createdBefore,
	// либо у которых текущий или новый слот начинается раньше startsBefore.
	ListExpirable(ctx context.Context, createdBefore, startsBefore time.Time, limit int) ([]uuid.UUID, error)
}

type ClassRequestRepository interface {
	Create(ctx context.Context, r *entity.ClassRequest) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ClassRequest, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.ClassRequest, error)
	Update(ctx context.Context, r *entity.ClassRequest) error
	ListByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]*entity.ClassRequest, error)
	// ListExpired - Open заявки с ожидаемым началом не позже now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type RefundRequestRepository interface {
	Create(ctx context.Context, r *entity.BookingRefundRequest) error
	Get(ctx context.Context, id uuid.UUID) (*entity.BookingRefundRequest, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.BookingRefundRequest, error)
	Update(ctx context.Context, r *entity.BookingRefundRequest) error
	HasPendingForBooking(ctx context.Context, bookingID uuid.UUID) (bool, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingRefundRequest, error)
}

type WithdrawalRepository interface {
	Create(ctx context.Context, w *entity.Withdrawal) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Withdrawal, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Withdrawal, error)
	Update(ctx context.Context, w *entity.Withdrawal) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.Withdrawal, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r *entity.Report) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	Update(ctx context.Context, r *entity.Report) error
	// HasUnresolved - есть ли открытая жалоба по бронированию и занятию.
	HasUnresolved(ctx context.Context, bookingID, scheduleID uuid.UUID) (bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}
