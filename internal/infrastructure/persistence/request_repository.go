package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

const changeRequestColumns = `id, schedule_id, booking_id, requested_by, current_availability_id, new_availability_id,
	current_start_at, new_start_at, reason, status, decided_by, decided_at, cancel_reason, version, created_at, updated_at`

type ChangeRequestRepository struct {
	q sqlx.ExtContext
}

func (r *ChangeRequestRepository) Create(ctx context.Context, cr *entity.ScheduleChangeRequest) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO schedule_change_requests (`+changeRequestColumns+`)
		VALUES (:id, :schedule_id, :booking_id, :requested_by, :current_availability_id, :new_availability_id,
			:current_start_at, :new_start_at, :reason, :status, :decided_by, :decided_at, :cancel_reason, :version,
			:created_at, :updated_at)
	`, cr)
	return wrap(uniqueViolation(err, map[string]error{
		"schedule_change_requests_pending_uniq": apperror.ErrPendingRequestExists,
	}), "change request", "create")
}

func (r *ChangeRequestRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.ScheduleChangeRequest, error) {
	cr, err := getOne[entity.ScheduleChangeRequest](ctx, r.q, apperror.ErrChangeRequestNotFound,
		`SELECT `+changeRequestColumns+` FROM schedule_change_requests WHERE id = $1`+lockClause(forUpdate), id)
	return cr, wrap(err, "change request", "get")
}

func (r *ChangeRequestRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ScheduleChangeRequest, error) {
	return r.get(ctx, id, false)
}

func (r *ChangeRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.ScheduleChangeRequest, error) {
	return r.get(ctx, id, true)
}

func (r *ChangeRequestRepository) Update(ctx context.Context, cr *entity.ScheduleChangeRequest) error {
	err := execVersioned(ctx, r.q, `
		UPDATE schedule_change_requests
		SET status = :status, decided_by = :decided_by, decided_at = :decided_at, cancel_reason = :cancel_reason,
			updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, cr)
	if err != nil {
		return wrap(err, "change request", "update")
	}
	cr.Version++
	return nil
}

func (r *ChangeRequestRepository) ListPendingBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.ScheduleChangeRequest, error) {
	rows, err := selectAll[entity.ScheduleChangeRequest](ctx, r.q, `
		SELECT `+changeRequestColumns+` FROM schedule_change_requests
		WHERE schedule_id = $1 AND status = 'pending'
		ORDER BY created_at
		FOR UPDATE
	`, scheduleID)
	return rows, wrap(err, "change request", "list pending by schedule")
}

func (r *ChangeRequestRepository) ListExpirable(ctx context.Context, createdBefore, startsBefore time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := selectIDs(ctx, r.q, `
		SELECT id FROM schedule_change_requests
		WHERE status = 'pending'
		  AND (created_at <= $1 OR current_start_at <= $2 OR new_start_at <= $2)
		ORDER BY created_at
		LIMIT $3
	`, createdBefore, startsBefore, limit)
	return ids, wrap(err, "change request", "list expirable")
}

const classRequestColumns = `id, learner_id, subject_id, expected_start_at, note, status, closed_at, version, created_at, updated_at`

type ClassRequestRepository struct {
	q sqlx.ExtContext
}

func (r *ClassRequestRepository) Create(ctx context.Context, cr *entity.ClassRequest) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO class_requests (`+classRequestColumns+`)
		VALUES (:id, :learner_id, :subject_id, :expected_start_at, :note, :status, :closed_at, :version,
			:created_at, :updated_at)
	`, cr)
	return wrap(err, "class request", "create")
}

func (r *ClassRequestRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.ClassRequest, error) {
	cr, err := getOne[entity.ClassRequest](ctx, r.q, apperror.ErrClassRequestNotFound,
		`SELECT `+classRequestColumns+` FROM class_requests WHERE id = $1`+lockClause(forUpdate), id)
	return cr, wrap(err, "class request", "get")
}

func (r *ClassRequestRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ClassRequest, error) {
	return r.get(ctx, id, false)
}

func (r *ClassRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.ClassRequest, error) {
	return r.get(ctx, id, true)
}

func (r *ClassRequestRepository) Update(ctx context.Context, cr *entity.ClassRequest) error {
	err := execVersioned(ctx, r.q, `
		UPDATE class_requests
		SET status = :status, closed_at = :closed_at, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, cr)
	if err != nil {
		return wrap(err, "class request", "update")
	}
	cr.Version++
	return nil
}

func (r *ClassRequestRepository) ListByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]*entity.ClassRequest, error) {
	rows, err := selectAll[entity.ClassRequest](ctx, r.q, `
		SELECT `+classRequestColumns+` FROM class_requests
		WHERE learner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, learnerID, limit, offset)
	return rows, wrap(err, "class request", "list by learner")
}

func (r *ClassRequestRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := selectIDs(ctx, r.q, `
		SELECT id FROM class_requests
		WHERE status = 'open' AND expected_start_at <= $1
		ORDER BY expected_start_at
		LIMIT $2
	`, now, limit)
	return ids, wrap(err, "class request", "list expired")
}

const refundRequestColumns = `id, booking_id, learner_id, amount, reason, status, decided_by, decided_at, note,
	transaction_id, version, created_at, updated_at`

type RefundRequestRepository struct {
	q sqlx.ExtContext
}

func (r *RefundRequestRepository) Create(ctx context.Context, rr *entity.BookingRefundRequest) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO booking_refund_requests (`+refundRequestColumns+`)
		VALUES (:id, :booking_id, :learner_id, :amount, :reason, :status, :decided_by, :decided_at, :note,
			:transaction_id, :version, :created_at, :updated_at)
	`, rr)
	return wrap(uniqueViolation(err, map[string]error{
		"booking_refund_requests_pending_uniq": apperror.ErrPendingRequestExists,
	}), "refund request", "create")
}

func (r *RefundRequestRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.BookingRefundRequest, error) {
	rr, err := getOne[entity.BookingRefundRequest](ctx, r.q, apperror.ErrRefundRequestNotFound,
		`SELECT `+refundRequestColumns+` FROM booking_refund_requests WHERE id = $1`+lockClause(forUpdate), id)
	return rr, wrap(err, "refund request", "get")
}

func (r *RefundRequestRepository) Get(ctx context.Context, id uuid.UUID) (*entity.BookingRefundRequest, error) {
	return r.get(ctx, id, false)
}

func (r *RefundRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.BookingRefundRequest, error) {
	return r.get(ctx, id, true)
}

func (r *RefundRequestRepository) Update(ctx context.Context, rr *entity.BookingRefundRequest) error {
	err := execVersioned(ctx, r.q, `
		UPDATE booking_refund_requests
		SET status = :status, decided_by = :decided_by, decided_at = :decided_at, note = :note,
			transaction_id = :transaction_id, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, rr)
	if err != nil {
		return wrap(err, "refund request", "update")
	}
	rr.Version++
	return nil
}

func (r *RefundRequestRepository) HasPendingForBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	found, err := exists(ctx, r.q,
		`SELECT EXISTS (SELECT 1 FROM booking_refund_requests WHERE booking_id = $1 AND status = 'pending')`, bookingID)
	return found, wrap(err, "refund request", "has pending")
}

func (r *RefundRequestRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingRefundRequest, error) {
	rows, err := selectAll[entity.BookingRefundRequest](ctx, r.q,
		`SELECT `+refundRequestColumns+` FROM booking_refund_requests WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	return rows, wrap(err, "refund request", "list by booking")
}

const withdrawalColumns = `id, wallet_id, owner_id, amount, status, card_last4, bank_name, rejection_reason,
	transaction_id, processed_at, version, created_at, updated_at`

type WithdrawalRepository struct {
	q sqlx.ExtContext
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *entity.Withdrawal) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO withdrawals (`+withdrawalColumns+`)
		VALUES (:id, :wallet_id, :owner_id, :amount, :status, :card_last4, :bank_name, :rejection_reason,
			:transaction_id, :processed_at, :version, :created_at, :updated_at)
	`, w)
	return wrap(err, "withdrawal", "create")
}

func (r *WithdrawalRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.Withdrawal, error) {
	w, err := getOne[entity.Withdrawal](ctx, r.q, apperror.ErrWithdrawalNotFound,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`+lockClause(forUpdate), id)
	return w, wrap(err, "withdrawal", "get")
}

func (r *WithdrawalRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Withdrawal, error) {
	return r.get(ctx, id, false)
}

func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Withdrawal, error) {
	return r.get(ctx, id, true)
}

func (r *WithdrawalRepository) Update(ctx context.Context, w *entity.Withdrawal) error {
	err := execVersioned(ctx, r.q, `
		UPDATE withdrawals
		SET status = :status, rejection_reason = :rejection_reason, transaction_id = :transaction_id,
			processed_at = :processed_at, updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, w)
	if err != nil {
		return wrap(err, "withdrawal", "update")
	}
	w.Version++
	return nil
}

func (r *WithdrawalRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*entity.Withdrawal, error) {
	rows, err := selectAll[entity.Withdrawal](ctx, r.q, `
		SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	return rows, wrap(err, "withdrawal", "list by owner")
}

const reportColumns = `id, booking_id, schedule_id, reporter_id, reason, status, resolution, resolved_by, resolved_at,
	version, created_at, updated_at`

type ReportRepository struct {
	q sqlx.ExtContext
}

func (r *ReportRepository) Create(ctx context.Context, rep *entity.Report) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (:id, :booking_id, :schedule_id, :reporter_id, :reason, :status, :resolution, :resolved_by,
			:resolved_at, :version, :created_at, :updated_at)
	`, rep)
	return wrap(err, "report", "create")
}

func (r *ReportRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*entity.Report, error) {
	rep, err := getOne[entity.Report](ctx, r.q, apperror.ErrReportNotFound,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`+lockClause(forUpdate), id)
	return rep, wrap(err, "report", "get")
}

func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return r.get(ctx, id, false)
}

func (r *ReportRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return r.get(ctx, id, true)
}

func (r *ReportRepository) Update(ctx context.Context, rep *entity.Report) error {
	err := execVersioned(ctx, r.q, `
		UPDATE reports
		SET status = :status, resolution = :resolution, resolved_by = :resolved_by, resolved_at = :resolved_at,
			updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version
	`, rep)
	if err != nil {
		return wrap(err, "report", "update")
	}
	rep.Version++
	return nil
}

func (r *ReportRepository) HasUnresolved(ctx context.Context, bookingID, scheduleID uuid.UUID) (bool, error) {
	found, err := exists(ctx, r.q, `
		SELECT EXISTS (
			SELECT 1 FROM reports WHERE booking_id = $1 AND schedule_id = $2 AND status = 'open'
		)
	`, bookingID, scheduleID)
	return found, wrap(err, "report", "has unresolved")
}

type NotificationRepository struct {
	q sqlx.ExtContext
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, payload, is_read, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
	`, n.ID, n.UserID, n.Type, string(n.Payload), n.IsRead, n.CreatedAt)
	return wrap(err, "notification", "create")
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Notification, error) {
	rows, err := selectAll[entity.Notification](ctx, r.q, `
		SELECT id, user_id, type, payload, is_read, created_at FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return rows, wrap(err, "notification", "list by user")
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return wrap(err, "notification", "mark read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, "notification", "mark read")
	}
	if n == 0 {
		return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
	}
	return nil
}
