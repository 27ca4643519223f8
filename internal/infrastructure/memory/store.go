// Package memory - хранилище движка в памяти процесса. Транзакции выполняются
// последовательно под одним мьютексом, откат восстанавливает снимок таблиц.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

type tables struct {
	availabilities map[uuid.UUID]entity.Availability
	bookings       map[uuid.UUID]entity.Booking
	schedules      map[uuid.UUID]entity.Schedule
	confirmations  map[uuid.UUID]entity.CompletionConfirmation
	payouts        map[uuid.UUID]entity.Payout
	wallets        map[uuid.UUID]entity.Wallet
	transactions   map[uuid.UUID]entity.WalletTransaction
	changeRequests map[uuid.UUID]entity.ScheduleChangeRequest
	classRequests  map[uuid.UUID]entity.ClassRequest
	refundRequests map[uuid.UUID]entity.BookingRefundRequest
	withdrawals    map[uuid.UUID]entity.Withdrawal
	reports        map[uuid.UUID]entity.Report
	notifications  map[uuid.UUID]entity.Notification
	timeSlots      map[uuid.UUID]entity.TimeSlot
	tutorSubjects  map[uuid.UUID]entity.TutorSubject
	systemFees     map[uuid.UUID]entity.SystemFee
}

func newTables() *tables {
	return &tables{
		availabilities: map[uuid.UUID]entity.Availability{},
		bookings:       map[uuid.UUID]entity.Booking{},
		schedules:      map[uuid.UUID]entity.Schedule{},
		confirmations:  map[uuid.UUID]entity.CompletionConfirmation{},
		payouts:        map[uuid.UUID]entity.Payout{},
		wallets:        map[uuid.UUID]entity.Wallet{},
		transactions:   map[uuid.UUID]entity.WalletTransaction{},
		changeRequests: map[uuid.UUID]entity.ScheduleChangeRequest{},
		classRequests:  map[uuid.UUID]entity.ClassRequest{},
		refundRequests: map[uuid.UUID]entity.BookingRefundRequest{},
		withdrawals:    map[uuid.UUID]entity.Withdrawal{},
		reports:        map[uuid.UUID]entity.Report{},
		notifications:  map[uuid.UUID]entity.Notification{},
		timeSlots:      map[uuid.UUID]entity.TimeSlot{},
		tutorSubjects:  map[uuid.UUID]entity.TutorSubject{},
		systemFees:     map[uuid.UUID]entity.SystemFee{},
	}
}

func (t *tables) clone() *tables {
	return &tables{
		availabilities: maps.Clone(t.availabilities),
		bookings:       maps.Clone(t.bookings),
		schedules:      maps.Clone(t.schedules),
		confirmations:  maps.Clone(t.confirmations),
		payouts:        maps.Clone(t.payouts),
		wallets:        maps.Clone(t.wallets),
		transactions:   maps.Clone(t.transactions),
		changeRequests: maps.Clone(t.changeRequests),
		classRequests:  maps.Clone(t.classRequests),
		refundRequests: maps.Clone(t.refundRequests),
		withdrawals:    maps.Clone(t.withdrawals),
		reports:        maps.Clone(t.reports),
		notifications:  maps.Clone(t.notifications),
		timeSlots:      maps.Clone(t.timeSlots),
		tutorSubjects:  maps.Clone(t.tutorSubjects),
		systemFees:     maps.Clone(t.systemFees),
	}
}

// Store реализует repository.TxManager.
type Store struct {
	mu   sync.Mutex
	data *tables
	root *view
}

func NewStore() *Store {
	s := &Store{data: newTables()}
	s.root = &view{store: s}
	return s
}

var _ repository.TxManager = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(ctx, &view{store: s, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Availabilities() repository.AvailabilityRepository { return s.root.Availabilities() }
func (s *Store) Bookings() repository.BookingRepository             { return s.root.Bookings() }
func (s *Store) Schedules() repository.ScheduleRepository           { return s.root.Schedules() }
func (s *Store) Confirmations() repository.ConfirmationRepository   { return s.root.Confirmations() }
func (s *Store) Payouts() repository.PayoutRepository               { return s.root.Payouts() }
func (s *Store) Wallets() repository.WalletRepository               { return s.root.Wallets() }
func (s *Store) ChangeRequests() repository.ChangeRequestRepository { return s.root.ChangeRequests() }
func (s *Store) ClassRequests() repository.ClassRequestRepository   { return s.root.ClassRequests() }
func (s *Store) RefundRequests() repository.RefundRequestRepository { return s.root.RefundRequests() }
func (s *Store) Withdrawals() repository.WithdrawalRepository       { return s.root.Withdrawals() }
func (s *Store) Reports() repository.ReportRepository               { return s.root.Reports() }
func (s *Store) Reference() repository.ReferenceRepository          { return s.root.Reference() }
func (s *Store) Notifications() repository.NotificationRepository   { return s.root.Notifications() }

// AddTimeSlot, AddTutorSubject и AddSystemFee наполняют справочники.
func (s *Store) AddTimeSlot(ts entity.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.timeSlots[ts.ID] = ts
}

func (s *Store) AddTutorSubject(ts entity.TutorSubject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.tutorSubjects[ts.ID] = ts
}

func (s *Store) AddSystemFee(f entity.SystemFee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.systemFees[f.ID] = f
}

// SeedDefaults заполняет почасовую сетку 08:00–22:00 и комиссию 10%.
func (s *Store) SeedDefaults(now time.Time) {
	for h := 8; h < 22; h++ {
		s.AddTimeSlot(entity.TimeSlot{ID: uuid.New(), StartMinute: h * 60, EndMinute: (h + 1) * 60})
	}
	s.AddSystemFee(entity.SystemFee{
		ID:            uuid.New(),
		PercentageBP:  1000,
		IsActive:      true,
		EffectiveFrom: now,
	})
}

// view - доступ к таблицам. Вне транзакции каждый вызов берёт мьютекс сам.
type view struct {
	store *Store
	inTx  bool
}

func (v *view) do(fn func(t *tables) error) error {
	if !v.inTx {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.data)
}

func (v *view) Availabilities() repository.AvailabilityRepository { return availabilityRepo{v} }
func (v *view) Bookings() repository.BookingRepository             { return bookingRepo{v} }
func (v *view) Schedules() repository.ScheduleRepository           { return scheduleRepo{v} }
func (v *view) Confirmations() repository.ConfirmationRepository   { return confirmationRepo{v} }
func (v *view) Payouts() repository.PayoutRepository               { return payoutRepo{v} }
func (v *view) Wallets() repository.WalletRepository               { return walletRepo{v} }
func (v *view) ChangeRequests() repository.ChangeRequestRepository { return changeRequestRepo{v} }
func (v *view) ClassRequests() repository.ClassRequestRepository   { return classRequestRepo{v} }
func (v *view) RefundRequests() repository.RefundRequestRepository { return refundRequestRepo{v} }
func (v *view) Withdrawals() repository.WithdrawalRepository       { return withdrawalRepo{v} }
func (v *view) Reports() repository.ReportRepository               { return reportRepo{v} }
func (v *view) Reference() repository.ReferenceRepository          { return referenceRepo{v} }
func (v *view) Notifications() repository.NotificationRepository   { return notificationRepo{v} }

func getRow[T any](m map[uuid.UUID]T, id uuid.UUID, notFound error) (*T, error) {
	row, ok := m[id]
	if !ok {
		return nil, notFound
	}
	return &row, nil
}

func insertRow[T any](m map[uuid.UUID]T, id uuid.UUID, row *T) error {
	if _, ok := m[id]; ok {
		return apperror.New(apperror.ErrCodeConflict, "запись с таким id уже существует")
	}
	m[id] = *row
	return nil
}

// updateRow сохраняет строку при совпадении версии и увеличивает версию у вызывающего.
func updateRow[T any](m map[uuid.UUID]T, id uuid.UUID, row *T, version func(*T) *int64, notFound error) error {
	current, ok := m[id]
	if !ok {
		return notFound
	}
	if *version(&current) != *version(row) {
		return apperror.ErrStaleWrite
	}
	*version(row)++
	m[id] = *row
	return nil
}

func selectRows[T any](m map[uuid.UUID]T, match func(*T) bool, less func(a, b *T) bool) []*T {
	out := make([]*T, 0)
	for _, row := range m {
		row := row
		if match(&row) {
			out = append(out, &row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func page[T any](rows []*T, limit, offset int) []*T {
	if offset >= len(rows) {
		return []*T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func ids[T any](rows []*T, id func(*T) uuid.UUID, limit int) []uuid.UUID {
	rows = page(rows, limit, 0)
	out := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		out = append(out, id(r))
	}
	return out
}
