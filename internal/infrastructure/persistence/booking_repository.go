package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

const bookingColumns = `id, learner_id, tutor_id, tutor_subject_id, system_fee_id, total_sessions, unit_price,
	total_amount, system_fee_amount, tutor_receive_amount, refunded_amount, payment_status, status,
	cancelled_at, cancel_reason, version, created_at, updated_at`

type BookingRepository struct {
	q sqlx.ExtContext
}

func (r *BookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (:id, :learner_id, :tutor_id, :tutor_subject_id, :system_fee_id, :total_sessions, :unit_price,
			:total_amount, :system_fee_amount, :tutor_receive_amount, :refunded_amount, :payment_status, :status,
			:cancelled_at, :cancel_reason, :version, :created_at, :updated_at)
	`, b)
	return wrap(err, "booking", "create")
}

func (r *BookingRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.Booking, error) {
	b, err := getOne[entity.Booking](ctx, r.q, apperror.ErrBookingNotFound,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`+lockClause(forUpdate), id)
	return b, wrap(err, "booking", "get")
}

func (r *BookingRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.get(ctx, id, false)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.get(ctx, id, true)
}

func (r *BookingRepository) Update(ctx context.Context, b *entity.Booking) error {
	err := execVersioned(ctx, r.q, `
		UPDATE bookings
		SET refunded_amount = :refunded_amount, payment_status = :payment_status, status = :status,
			cancelled_at = :cancelled_at, cancel_reason = :cancel_reason, updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version
	`, b)
	if err != nil {
		return wrap(err, "booking", "update")
	}
	b.Version++
	return nil
}

func (r *BookingRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	rows, err := selectAll[entity.Booking](ctx, r.q, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE learner_id = $1 OR tutor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return rows, wrap(err, "booking", "list by participant")
}

func (r *BookingRepository) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := selectIDs(ctx, r.q, `
		SELECT b.id FROM bookings b
		WHERE b.status = 'pending' AND b.created_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM schedules s
			WHERE s.booking_id = b.id AND s.status NOT IN ('upcoming', 'cancelled')
		  )
		ORDER BY b.created_at
		LIMIT $2
	`, createdBefore, limit)
	return ids, wrap(err, "booking", "list stale")
}

func (r *BookingRepository) ListFoldCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	ids, err := selectIDs(ctx, r.q, `
		SELECT b.id FROM bookings b
		WHERE b.status = 'confirmed'
		  AND EXISTS (SELECT 1 FROM schedules s WHERE s.booking_id = b.id)
		  AND NOT EXISTS (
			SELECT 1 FROM schedules s
			WHERE s.booking_id = b.id AND s.status NOT IN ('completed', 'cancelled')
		  )
		ORDER BY b.updated_at
		LIMIT $1
	`, limit)
	return ids, wrap(err, "booking", "list fold candidates")
}

const scheduleColumns = `id, booking_id, availability_id, tutor_id, learner_id, start_at, end_at, status, refunded,
	meeting_link, meeting_event_id, cancelled_at, version, created_at, updated_at`

var scheduleConstraints = map[string]error{
	"schedules_active_availability_uniq": apperror.ErrScheduleExists,
}

type ScheduleRepository struct {
	q sqlx.ExtContext
}

func (r *ScheduleRepository) Create(ctx context.Context, s *entity.Schedule) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES (:id, :booking_id, :availability_id, :tutor_id, :learner_id, :start_at, :end_at, :status, :refunded,
			:meeting_link, :meeting_event_id, :cancelled_at, :version, :created_at, :updated_at)
	`, s)
	return wrap(uniqueViolation(err, scheduleConstraints), "schedule", "create")
}

func (r *ScheduleRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.Schedule, error) {
	s, err := getOne[entity.Schedule](ctx, r.q, apperror.ErrScheduleNotFound,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`+lockClause(forUpdate), id)
	return s, wrap(err, "schedule", "get")
}

func (r *ScheduleRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Schedule, error) {
	return r.get(ctx, id, false)
}

func (r *ScheduleRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Schedule, error) {
	return r.get(ctx, id, true)
}

func (r *ScheduleRepository) Update(ctx context.Context, s *entity.Schedule) error {
	err := execVersioned(ctx, r.q, `
		UPDATE schedules
		SET availability_id = :availability_id, start_at = :start_at, end_at = :end_at, status = :status,
			refunded = :refunded, meeting_link = :meeting_link, meeting_event_id = :meeting_event_id,
			cancelled_at = :cancelled_at, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, s)
	if err != nil {
		return wrap(uniqueViolation(err, scheduleConstraints), "schedule", "update")
	}
	s.Version++
	return nil
}

func (r *ScheduleRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*entity.Schedule, error) {
	rows, err := selectAll[entity.Schedule](ctx, r.q,
		`SELECT `+scheduleColumns+` FROM schedules WHERE booking_id = $1 ORDER BY start_at`, bookingID)
	return rows, wrap(err, "schedule", "list by booking")
}

func (r *ScheduleRepository) Statuses(ctx context.Context, bookingID uuid.UUID) ([]valueobject.ScheduleStatus, error) {
	statuses := make([]valueobject.ScheduleStatus, 0)
	err := sqlx.SelectContext(ctx, r.q, &statuses,
		`SELECT status FROM schedules WHERE booking_id = $1 ORDER BY start_at`, bookingID)
	return statuses, wrap(err, "schedule", "statuses")
}

func (r *ScheduleRepository) CountActiveByBooking(ctx context.Context, bookingID uuid.UUID) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n,
		`SELECT COUNT(*) FROM schedules WHERE booking_id = $1 AND status <> 'cancelled'`, bookingID)
	return n, wrap(err, "schedule", "count active")
}

func (r *ScheduleRepository) ExistsActiveForAvailability(ctx context.Context, availabilityID uuid.UUID) (bool, error) {
	found, err := exists(ctx, r.q,
		`SELECT EXISTS (SELECT 1 FROM schedules WHERE availability_id = $1 AND status <> 'cancelled')`, availabilityID)
	return found, wrap(err, "schedule", "exists for availability")
}

func (r *ScheduleRepository) HasTutorOverlap(ctx context.Context, tutorID uuid.UUID, start, end time.Time) (bool, error) {
	found, err := exists(ctx, r.q, `
		SELECT EXISTS (
			SELECT 1 FROM schedules
			WHERE tutor_id = $1 AND status <> 'cancelled' AND start_at < $3 AND $2 < end_at
		)
	`, tutorID, start, end)
	return found, wrap(err, "schedule", "tutor overlap")
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := selectIDs(ctx, r.q, `
		SELECT id FROM schedules
		WHERE (status = 'upcoming' AND start_at <= $1)
		   OR (status = 'in_progress' AND end_at <= $1)
		ORDER BY start_at
		LIMIT $2
	`, now, limit)
	return ids, wrap(err, "schedule", "list due")
}
