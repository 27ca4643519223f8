package persistence

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryShape собирает регулярку из фрагментов SQL, идущих в этом порядке.
func queryShape(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return "(?s)" + strings.Join(quoted, ".*")
}

func TestWorkerQueries(t *testing.T) {
	later := now.Add(time.Hour)

	tests := []struct {
		name  string
		shape string
		args  []driver.Value
		call  func(ctx context.Context, s *Store) ([]uuid.UUID, error)
	}{
		{
			name: "stale bookings",
			shape: queryShape("FROM bookings b", "b.status = 'pending' AND b.created_at < $1",
				"s.status NOT IN ('upcoming', 'cancelled')", "ORDER BY b.created_at", "LIMIT $2"),
			args: []driver.Value{now, 5},
			call: func(ctx context.Context, s *Store) ([]uuid.UUID, error) {
				return s.Bookings().ListStale(ctx, now, 5)
			},
		},
		{
			name: "bookings to fold",
			shape: queryShape("FROM bookings b", "b.status = 'confirmed'", "EXISTS",
				"s.status NOT IN ('completed', 'cancelled')", "ORDER BY b.updated_at", "LIMIT $1"),
			args: []driver.Value{5},
			call: func(ctx context.Context, s *Store) ([]uuid.UUID, error) {
				return s.Bookings().ListFoldCandidates(ctx, 5)
			},
		},
		{
			name: "due schedules",
			shape: queryShape("FROM schedules", "status = 'upcoming' AND start_at <= $1",
				"status = 'in_progress' AND end_at <= $1", "ORDER BY start_at", "LIMIT $2"),
			args: []driver.Value{now, 5},
			call: func(ctx context.Context, s *Store) ([]uuid.UUID, error) {
				return s.Schedules().ListDue(ctx, now, 5)
			},
		},
		{
			name:  "overdue confirmations",
			shape: queryShape("FROM completion_confirmations", "status = 'pending_confirm' AND deadline < $1", "ORDER BY deadline", "LIMIT $2"),
			args:  []driver.Value{now, 5},
			call: func(ctx context.Context, s *Store) ([]uuid.UUID, error) {
				return s.Confirmations().ListOverdue(ctx, now, 5)
			},
		},
		{
			name: "due payouts",
			shape: queryShape("FROM payouts p", "p.scheduled_payout_date <= $1",
				"p.status IN ('pending', 'ready_for_payout')",
				"p.status = 'on_hold'", "FROM reports r", "r.status = 'open'",
				"FROM completion_confirmations c", "c.status = 'reported_on_hold'",
				"ORDER BY p.scheduled_payout_date", "LIMIT $2"),
			args: []driver.Value{now, 5},
			call: func(ctx context.Context, s *Store) ([]uuid.UUID, error) {
				return s.Payouts().ListDue(ctx, now, 5)
			},
		},
		{
			name: "expirable change requests",
			shape: queryShape("FROM schedule_change_requests", "status = 'pending'",
				"created_at <= $1 OR current_start_at <= $2 OR new_start_at <= $2", "ORDER BY created_at", "LIMIT $3"),
			args: []driver.Value{now, later, 5},
			call: func(ctx context.Context, s *Store) ([]uuid.UUID, error) {
				return s.ChangeRequests().ListExpirable(ctx, now, later, 5)
			},
		},
		{
			name:  "expired class requests",
			shape: queryShape("FROM class_requests", "status = 'open' AND expected_start_at <= $1", "ORDER BY expected_start_at", "LIMIT $2"),
			args:  []driver.Value{now, 5},
			call: func(ctx context.Context, s *Store) ([]uuid.UUID, error) {
				return s.ClassRequests().ListExpired(ctx, now, 5)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			first, second := uuid.New(), uuid.New()

			mock.ExpectQuery(tt.shape).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(first.String()).AddRow(second.String()))

			got, err := tt.call(context.Background(), NewStore(db))
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{first, second}, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWorkerQueries_EmptyResultIsNotNil(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(queryShape("FROM payouts p")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := NewStore(db).Payouts().ListDue(context.Background(), now, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerQueries_WrapsDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(queryShape("FROM class_requests")).WillReturnError(assert.AnError)

	_, err := NewStore(db).ClassRequests().ListExpired(context.Background(), now, 5)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
