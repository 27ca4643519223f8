package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// Store - репозитории поверх соединения или открытой транзакции.
type Store struct {
	q sqlx.ExtContext
}

func NewStore(q sqlx.ExtContext) *Store {
	return &Store{q: q}
}

func (s *Store) Availabilities() repository.AvailabilityRepository {
	return &AvailabilityRepository{q: s.q}
}
func (s *Store) Bookings() repository.BookingRepository   { return &BookingRepository{q: s.q} }
func (s *Store) Schedules() repository.ScheduleRepository { return &ScheduleRepository{q: s.q} }
func (s *Store) Confirmations() repository.ConfirmationRepository {
	return &ConfirmationRepository{q: s.q}
}
func (s *Store) Payouts() repository.PayoutRepository { return &PayoutRepository{q: s.q} }
func (s *Store) Wallets() repository.WalletRepository { return &WalletRepository{q: s.q} }
func (s *Store) ChangeRequests() repository.ChangeRequestRepository {
	return &ChangeRequestRepository{q: s.q}
}
func (s *Store) ClassRequests() repository.ClassRequestRepository {
	return &ClassRequestRepository{q: s.q}
}
func (s *Store) RefundRequests() repository.RefundRequestRepository {
	return &RefundRequestRepository{q: s.q}
}
func (s *Store) Withdrawals() repository.WithdrawalRepository { return &WithdrawalRepository{q: s.q} }
func (s *Store) Reports() repository.ReportRepository         { return &ReportRepository{q: s.q} }
func (s *Store) Reference() repository.ReferenceRepository    { return &ReferenceRepository{q: s.q} }
func (s *Store) Notifications() repository.NotificationRepository {
	return &NotificationRepository{q: s.q}
}

// TxManager открывает транзакции на пуле соединений.
type TxManager struct {
	*Store
	db *sqlx.DB
}

var _ repository.TxManager = (*TxManager)(nil)

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{Store: NewStore(db), db: db}
}

// WithinTx выполняет fn в транзакции с откатом при ошибке или панике.
func (m *TxManager) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, NewStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (m *TxManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

// getOne читает одну строку, sql.ErrNoRows превращается в notFound.
func getOne[T any](ctx context.Context, q sqlx.QueryerContext, notFound error, query string, args ...any) (*T, error) {
	var row T
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &row, nil
}

func selectAll[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]*T, error) {
	rows := make([]*T, 0)
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func selectIDs(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	if err := sqlx.SelectContext(ctx, q, &ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

func exists(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (bool, error) {
	var found bool
	if err := sqlx.GetContext(ctx, q, &found, query, args...); err != nil {
		return false, err
	}
	return found, nil
}

// execVersioned выполняет UPDATE с проверкой версии. Ноль затронутых строк - конкурентная запись.
func execVersioned(ctx context.Context, q sqlx.ExtContext, query string, arg any) error {
	res, err := sqlx.NamedExecContext(ctx, q, query, arg)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ErrStaleWrite
	}
	return nil
}

// uniqueViolation сопоставляет нарушение уникального индекса с доменной ошибкой.
func uniqueViolation(err error, byConstraint map[string]error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	if mapped, ok := byConstraint[pqErr.Constraint]; ok {
		return mapped
	}
	return apperror.Wrap(err, apperror.ErrCodeConflict, "запись уже существует")
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// wrap добавляет контекст репозитория, доменные ошибки возвращаются как есть.
func wrap(err error, repo, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s repository: %s %w", repo, op, err)
}
