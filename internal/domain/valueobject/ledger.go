package valueobject

// WalletKind - назначение кошелька.
type WalletKind string

const (
	WalletPersonal WalletKind = "personal"
	// WalletEscrow держит оплаченные, но ещё не выплаченные средства бронирований.
	WalletEscrow WalletKind = "escrow"
	// WalletRevenue накапливает комиссию платформы.
	WalletRevenue WalletKind = "revenue"
)

type TransactionType string

const (
	TransactionDebit  TransactionType = "debit"
	TransactionCredit TransactionType = "credit"
)

type TransactionReason string

const (
	ReasonDeposit            TransactionReason = "deposit"
	ReasonBookingPayment     TransactionReason = "booking_payment"
	ReasonBookingPayout      TransactionReason = "booking_payout"
	ReasonSystemFee          TransactionReason = "system_fee"
	ReasonBookingRefund      TransactionReason = "booking_refund"
	ReasonWithdrawal         TransactionReason = "withdrawal"
	ReasonWithdrawalReversal TransactionReason = "withdrawal_reversal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)
