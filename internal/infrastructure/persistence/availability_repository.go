package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

const availabilityColumns = `id, tutor_id, time_slot_id, date, start_at, end_at, status, version, created_at, updated_at`

var availabilityConstraints = map[string]error{
	"availabilities_active_slot_uniq": apperror.ErrDuplicateAvailability,
}

type AvailabilityRepository struct {
	q sqlx.ExtContext
}

func (r *AvailabilityRepository) Create(ctx context.Context, a *entity.Availability) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO availabilities (`+availabilityColumns+`)
		VALUES (:id, :tutor_id, :time_slot_id, :date, :start_at, :end_at, :status, :version, :created_at, :updated_at)
	`, a)
	return wrap(uniqueViolation(err, availabilityConstraints), "availability", "create")
}

func (r *AvailabilityRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.Availability, error) {
	a, err := getOne[entity.Availability](ctx, r.q, apperror.ErrAvailabilityNotFound,
		`SELECT `+availabilityColumns+` FROM availabilities WHERE id = $1`+lockClause(forUpdate), id)
	return a, wrap(err, "availability", "get")
}

func (r *AvailabilityRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Availability, error) {
	return r.get(ctx, id, false)
}

func (r *AvailabilityRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Availability, error) {
	return r.get(ctx, id, true)
}

func (r *AvailabilityRepository) Update(ctx context.Context, a *entity.Availability) error {
	err := execVersioned(ctx, r.q, `
		UPDATE availabilities
		SET status = :status, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, a)
	if err != nil {
		return wrap(uniqueViolation(err, availabilityConstraints), "availability", "update")
	}
	a.Version++
	return nil
}

func (r *AvailabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ErrAvailabilityInUse
		}
		return wrap(err, "availability", "delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, "availability", "delete")
	}
	if n == 0 {
		return apperror.ErrAvailabilityNotFound
	}
	return nil
}

func (r *AvailabilityRepository) ExistsActive(ctx context.Context, tutorID, timeSlotID uuid.UUID, date time.Time) (bool, error) {
	found, err := exists(ctx, r.q, `
		SELECT EXISTS (
			SELECT 1 FROM availabilities
			WHERE tutor_id = $1 AND time_slot_id = $2 AND date = $3::date AND status <> 'cancelled'
		)
	`, tutorID, timeSlotID, date)
	return found, wrap(err, "availability", "exists active")
}

func (r *AvailabilityRepository) ListByTutor(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]*entity.Availability, error) {
	rows, err := selectAll[entity.Availability](ctx, r.q, `
		SELECT `+availabilityColumns+` FROM availabilities
		WHERE tutor_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at
	`, tutorID, from, to)
	return rows, wrap(err, "availability", "list by tutor")
}

type ReferenceRepository struct {
	q sqlx.ExtContext
}

func (r *ReferenceRepository) GetTimeSlot(ctx context.Context, id uuid.UUID) (*entity.TimeSlot, error) {
	ts, err := getOne[entity.TimeSlot](ctx, r.q, apperror.ErrTimeSlotNotFound,
		`SELECT id, start_minute, end_minute FROM time_slots WHERE id = $1`, id)
	return ts, wrap(err, "reference", "get time slot")
}

func (r *ReferenceRepository) ListTimeSlots(ctx context.Context) ([]*entity.TimeSlot, error) {
	rows, err := selectAll[entity.TimeSlot](ctx, r.q,
		`SELECT id, start_minute, end_minute FROM time_slots ORDER BY start_minute`)
	return rows, wrap(err, "reference", "list time slots")
}

func (r *ReferenceRepository) GetTutorSubject(ctx context.Context, id uuid.UUID) (*entity.TutorSubject, error) {
	ts, err := getOne[entity.TutorSubject](ctx, r.q, apperror.ErrTutorSubjectNotFound,
		`SELECT id, tutor_id, subject_id, rate, is_active FROM tutor_subjects WHERE id = $1`, id)
	return ts, wrap(err, "reference", "get tutor subject")
}

func (r *ReferenceRepository) GetActiveSystemFee(ctx context.Context, at time.Time) (*entity.SystemFee, error) {
	fee, err := getOne[entity.SystemFee](ctx, r.q, apperror.ErrNoActiveFee, `
		SELECT id, percentage_bp, fixed_amount, is_active, effective_from
		FROM system_fees
		WHERE is_active AND effective_from <= $1
		ORDER BY effective_from DESC
		LIMIT 1
	`, at)
	return fee, wrap(err, "reference", "get active system fee")
}
