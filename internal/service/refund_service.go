package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// RefundService - запросы учеников на возврат по оплаченным бронированиям.
type RefundService struct {
	txm      repository.TxManager
	clock    clock.Clock
	ledger   *LedgerService
	notifier Notifier
}

func NewRefundService(txm repository.TxManager, clk clock.Clock, ledger *LedgerService, notifier Notifier) *RefundService {
	return &RefundService{txm: txm, clock: clk, ledger: ledger, notifier: notifierOrNoop(notifier)}
}

func (s *RefundService) RequestRefund(ctx context.Context, bookingID, learnerID uuid.UUID, amount int64, reason string) (*entity.BookingRefundRequest, error) {
	var rr *entity.BookingRefundRequest
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		b, err := st.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		pending, err := st.RefundRequests().HasPendingForBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if pending {
			return apperror.ErrPendingRequestExists
		}
		rr, err = entity.NewBookingRefundRequest(b, learnerID, amount, reason, s.clock.Now())
		if err != nil {
			return err
		}
		released, err := releasedAmount(ctx, st, b.ID)
		if err != nil {
			return err
		}
		if amount > refundable(b, released) {
			return apperror.ErrRefundExceedsPaid
		}
		return st.RefundRequests().Create(ctx, rr)
	})
	if err != nil {
		return nil, fmt.Errorf("refund service: request: %w", err)
	}
	return rr, nil
}

// ApproveRefund переводит сумму из escrow ученику и отменяет невыплаченные выплаты по бронированию.
func (s *RefundService) ApproveRefund(ctx context.Context, requestID, adminID uuid.UUID, note string) (*entity.BookingRefundRequest, error) {
	var rr *entity.BookingRefundRequest
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		var err error
		rr, err = st.RefundRequests().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if rr.Status != valueobject.RefundRequestPending {
			return apperror.ErrInvalidTransition
		}
		b, err := st.Bookings().GetForUpdate(ctx, rr.BookingID)
		if err != nil {
			return err
		}
		payouts, err := st.Payouts().ListByBookingForUpdate(ctx, b.ID)
		if err != nil {
			return err
		}
		var released int64
		for _, p := range payouts {
			if p.Status == valueobject.PayoutPaid {
				released += p.Amount + p.SystemFeeAmount
			}
		}
		if rr.Amount > refundable(b, released) {
			return apperror.ErrRefundExceedsPaid
		}

		escrow, err := s.ledger.Escrow(ctx, st)
		if err != nil {
			return err
		}
		learner, err := s.ledger.EnsureWallet(ctx, st, b.LearnerID, valueobject.WalletPersonal)
		if err != nil {
			return err
		}
		if err := s.ledger.LockWallets(ctx, st, escrow.ID, learner.ID); err != nil {
			return err
		}
		ref := b.ID
		desc := "возврат по запросу " + rr.ID.String()
		if _, err := s.ledger.Debit(ctx, st, escrow.ID, rr.Amount, valueobject.ReasonBookingRefund, &ref, desc); err != nil {
			return err
		}
		tx, err := s.ledger.Credit(ctx, st, learner.ID, rr.Amount, valueobject.ReasonBookingRefund, &ref, desc)
		if err != nil {
			return err
		}
		if err := b.ApplyRefund(rr.Amount, now); err != nil {
			return err
		}
		if err := st.Bookings().Update(ctx, b); err != nil {
			return err
		}

		for _, p := range payouts {
			if p.IsSettled() {
				continue
			}
			if err := p.Cancel("возврат средств ученику", now); err != nil {
				return err
			}
			if err := st.Payouts().Update(ctx, p); err != nil {
				return err
			}
		}

		if err := rr.Approve(adminID, tx.ID, note, now); err != nil {
			return err
		}
		return st.RefundRequests().Update(ctx, rr)
	})
	if err != nil {
		return nil, fmt.Errorf("refund service: approve: %w", err)
	}
	s.notifier.Notify(ctx, rr.LearnerID, EventRefundApproved, map[string]any{
		"request_id": rr.ID,
		"booking_id": rr.BookingID,
		"amount":     valueobject.Money(rr.Amount).String(),
	})
	return rr, nil
}

func (s *RefundService) RejectRefund(ctx context.Context, requestID, adminID uuid.UUID, note string) (*entity.BookingRefundRequest, error) {
	var rr *entity.BookingRefundRequest
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		rr, err = st.RefundRequests().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := rr.Reject(adminID, note, s.clock.Now()); err != nil {
			return err
		}
		return st.RefundRequests().Update(ctx, rr)
	})
	if err != nil {
		return nil, fmt.Errorf("refund service: reject: %w", err)
	}
	s.notifier.Notify(ctx, rr.LearnerID, EventRefundRejected, map[string]any{"request_id": rr.ID, "booking_id": rr.BookingID})
	return rr, nil
}

func (s *RefundService) ListByBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) ([]*entity.BookingRefundRequest, error) {
	b, err := s.txm.Bookings().Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !b.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return s.txm.RefundRequests().ListByBooking(ctx, bookingID)
}
