package repository

import "context"

// Store открывает доступ ко всем репозиториям движка. Реализация внутри
// транзакции работает на одном соединении, GetForUpdate блокирует строку до коммита.
type Store interface {
	Availabilities() AvailabilityRepository
	Bookings() BookingRepository
	Schedules() ScheduleRepository
	Confirmations() ConfirmationRepository
	Payouts() PayoutRepository
	Wallets() WalletRepository
	ChangeRequests() ChangeRequestRepository
	ClassRequests() ClassRequestRepository
	RefundRequests() RefundRequestRepository
	Withdrawals() WithdrawalRepository
	Reports() ReportRepository
	Reference() ReferenceRepository
	Notifications() NotificationRepository
}

// TxFunc выполняется внутри транзакции. Возврат ошибки откатывает все изменения.
type TxFunc func(ctx context.Context, s Store) error

// TxManager - хранилище с поддержкой транзакций.
type TxManager interface {
	Store
	WithinTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
}
