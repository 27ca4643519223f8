package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

const confirmationColumns = `id, schedule_id, booking_id, tutor_id, learner_id, status, deadline, confirmed_at,
	auto_completed_at, held_at, cancelled_at, report_id, version, created_at, updated_at`

type ConfirmationRepository struct {
	q sqlx.ExtContext
}

func (r *ConfirmationRepository) Create(ctx context.Context, c *entity.CompletionConfirmation) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO completion_confirmations (`+confirmationColumns+`)
		VALUES (:id, :schedule_id, :booking_id, :tutor_id, :learner_id, :status, :deadline, :confirmed_at,
			:auto_completed_at, :held_at, :cancelled_at, :report_id, :version, :created_at, :updated_at)
	`, c)
	return wrap(uniqueViolation(err, map[string]error{
		"completion_confirmations_schedule_id_key": apperror.ErrConfirmationExists,
	}), "confirmation", "create")
}

func (r *ConfirmationRepository) get(ctx context.Context, where string, arg any, forUpdate bool) (*entity.CompletionConfirmation, error) {
	c, err := getOne[entity.CompletionConfirmation](ctx, r.q, apperror.ErrConfirmationNotFound,
		`SELECT `+confirmationColumns+` FROM completion_confirmations WHERE `+where+` = $1`+lockClause(forUpdate), arg)
	return c, wrap(err, "confirmation", "get")
}

func (r *ConfirmationRepository) Get(ctx context.Context, id uuid.UUID) (*entity.CompletionConfirmation, error) {
	return r.get(ctx, "id", id, false)
}

func (r *ConfirmationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.CompletionConfirmation, error) {
	return r.get(ctx, "id", id, true)
}

func (r *ConfirmationRepository) GetByScheduleForUpdate(ctx context.Context, scheduleID uuid.UUID) (*entity.CompletionConfirmation, error) {
	return r.get(ctx, "schedule_id", scheduleID, true)
}

func (r *ConfirmationRepository) Update(ctx context.Context, c *entity.CompletionConfirmation) error {
	err := execVersioned(ctx, r.q, `
		UPDATE completion_confirmations
		SET status = :status, confirmed_at = :confirmed_at, auto_completed_at = :auto_completed_at,
			held_at = :held_at, cancelled_at = :cancelled_at, report_id = :report_id,
			updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, c)
	if err != nil {
		return wrap(err, "confirmation", "update")
	}
	c.Version++
	return nil
}

func (r *ConfirmationRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := selectIDs(ctx, r.q, `
		SELECT id FROM completion_confirmations
		WHERE status = 'pending_confirm' AND deadline < $1
		ORDER BY deadline
		LIMIT $2
	`, now, limit)
	return ids, wrap(err, "confirmation", "list overdue")
}

const payoutColumns = `id, schedule_id, booking_id, tutor_id, tutor_wallet_id, amount, system_fee_amount, status,
	payout_trigger, scheduled_payout_date, released_at, transaction_id, cancel_reason, version, created_at, updated_at`

type PayoutRepository struct {
	q sqlx.ExtContext
}

func (r *PayoutRepository) Create(ctx context.Context, p *entity.Payout) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO payouts (`+payoutColumns+`)
		VALUES (:id, :schedule_id, :booking_id, :tutor_id, :tutor_wallet_id, :amount, :system_fee_amount, :status,
			:payout_trigger, :scheduled_payout_date, :released_at, :transaction_id, :cancel_reason, :version,
			:created_at, :updated_at)
	`, p)
	return wrap(uniqueViolation(err, map[string]error{
		"payouts_schedule_id_key": apperror.ErrPayoutExists,
	}), "payout", "create")
}

func (r *PayoutRepository) get(ctx context.Context, where string, arg any, forUpdate bool) (*entity.Payout, error) {
	p, err := getOne[entity.Payout](ctx, r.q, apperror.ErrPayoutNotFound,
		`SELECT `+payoutColumns+` FROM payouts WHERE `+where+` = $1`+lockClause(forUpdate), arg)
	return p, wrap(err, "payout", "get")
}

func (r *PayoutRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	return r.get(ctx, "id", id, false)
}

func (r *PayoutRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	return r.get(ctx, "id", id, true)
}

func (r *PayoutRepository) GetByScheduleForUpdate(ctx context.Context, scheduleID uuid.UUID) (*entity.Payout, error) {
	return r.get(ctx, "schedule_id", scheduleID, true)
}

func (r *PayoutRepository) Update(ctx context.Context, p *entity.Payout) error {
	err := execVersioned(ctx, r.q, `
		UPDATE payouts
		SET status = :status, released_at = :released_at, transaction_id = :transaction_id,
			cancel_reason = :cancel_reason, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, p)
	if err != nil {
		return wrap(err, "payout", "update")
	}
	p.Version++
	return nil
}

func (r *PayoutRepository) ListByBookingForUpdate(ctx context.Context, bookingID uuid.UUID) ([]*entity.Payout, error) {
	rows, err := selectAll[entity.Payout](ctx, r.q,
		`SELECT `+payoutColumns+` FROM payouts WHERE booking_id = $1 ORDER BY created_at FOR UPDATE`, bookingID)
	return rows, wrap(err, "payout", "list by booking")
}

func (r *PayoutRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := selectIDs(ctx, r.q, `
		SELECT p.id FROM payouts p
		WHERE p.scheduled_payout_date <= $1
		  AND (
			p.status IN ('pending', 'ready_for_payout')
			OR (p.status = 'on_hold'
				AND NOT EXISTS (SELECT 1 FROM reports r WHERE r.schedule_id = p.schedule_id AND r.status = 'open')
				AND NOT EXISTS (
					SELECT 1 FROM completion_confirmations c
					WHERE c.schedule_id = p.schedule_id AND c.status = 'reported_on_hold'
				))
		  )
		ORDER BY p.scheduled_payout_date
		LIMIT $2
	`, now, limit)
	return ids, wrap(err, "payout", "list due")
}
