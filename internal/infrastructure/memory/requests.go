package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

type changeRequestRepo struct{ v *view }

func changeRequestVersion(r *entity.ScheduleChangeRequest) *int64 { return &r.Version }

func (r changeRequestRepo) Create(_ context.Context, cr *entity.ScheduleChangeRequest) error {
	return r.v.do(func(t *tables) error {
		for _, other := range t.changeRequests {
			if other.ScheduleID == cr.ScheduleID && other.Status == valueobject.ChangeRequestPending {
				return apperror.ErrPendingRequestExists
			}
		}
		return insertRow(t.changeRequests, cr.ID, cr)
	})
}

func (r changeRequestRepo) Get(_ context.Context, id uuid.UUID) (out *entity.ScheduleChangeRequest, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.changeRequests, id, apperror.ErrChangeRequestNotFound)
		return err
	})
	return out, err
}

func (r changeRequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.ScheduleChangeRequest, error) {
	return r.Get(ctx, id)
}

func (r changeRequestRepo) Update(_ context.Context, cr *entity.ScheduleChangeRequest) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.changeRequests, cr.ID, cr, changeRequestVersion, apperror.ErrChangeRequestNotFound)
	})
}

func (r changeRequestRepo) ListPendingBySchedule(_ context.Context, scheduleID uuid.UUID) (out []*entity.ScheduleChangeRequest, err error) {
	err = r.v.do(func(t *tables) error {
		out = selectRows(t.changeRequests,
			func(cr *entity.ScheduleChangeRequest) bool {
				return cr.ScheduleID == scheduleID && cr.Status == valueobject.ChangeRequestPending
			},
			func(a, b *entity.ScheduleChangeRequest) bool { return a.CreatedAt.Before(b.CreatedAt) })
		return nil
	})
	return out, err
}

func (r changeRequestRepo) ListExpirable(_ context.Context, createdBefore, startsBefore time.Time, limit int) (out []uuid.UUID, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.changeRequests,
			func(cr *entity.ScheduleChangeRequest) bool {
				if cr.Status != valueobject.ChangeRequestPending {
					return false
				}
				return !cr.CreatedAt.After(createdBefore) ||
					!cr.CurrentStartAt.After(startsBefore) ||
					!cr.NewStartAt.After(startsBefore)
			},
			func(a, b *entity.ScheduleChangeRequest) bool { return a.CreatedAt.Before(b.CreatedAt) })
		out = ids(rows, func(cr *entity.ScheduleChangeRequest) uuid.UUID { return cr.ID }, limit)
		return nil
	})
	return out, err
}

type classRequestRepo struct{ v *view }

func classRequestVersion(r *entity.ClassRequest) *int64 { return &r.Version }

func (r classRequestRepo) Create(_ context.Context, cr *entity.ClassRequest) error {
	return r.v.do(func(t *tables) error {
		return insertRow(t.classRequests, cr.ID, cr)
	})
}

func (r classRequestRepo) Get(_ context.Context, id uuid.UUID) (out *entity.ClassRequest, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.classRequests, id, apperror.ErrClassRequestNotFound)
		return err
	})
	return out, err
}

func (r classRequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.ClassRequest, error) {
	return r.Get(ctx, id)
}

func (r classRequestRepo) Update(_ context.Context, cr *entity.ClassRequest) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.classRequests, cr.ID, cr, classRequestVersion, apperror.ErrClassRequestNotFound)
	})
}

func (r classRequestRepo) ListByLearner(_ context.Context, learnerID uuid.UUID, limit, offset int) (out []*entity.ClassRequest, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.classRequests,
			func(cr *entity.ClassRequest) bool { return cr.LearnerID == learnerID },
			func(a, b *entity.ClassRequest) bool { return a.CreatedAt.After(b.CreatedAt) })
		out = page(rows, limit, offset)
		return nil
	})
	return out, err
}

func (r classRequestRepo) ListExpired(_ context.Context, now time.Time, limit int) (out []uuid.UUID, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.classRequests,
			func(cr *entity.ClassRequest) bool {
				return cr.Status == valueobject.ClassRequestOpen && !cr.ExpectedStartAt.After(now)
			},
			func(a, b *entity.ClassRequest) bool { return a.ExpectedStartAt.Before(b.ExpectedStartAt) })
		out = ids(rows, func(cr *entity.ClassRequest) uuid.UUID { return cr.ID }, limit)
		return nil
	})
	return out, err
}

type refundRequestRepo struct{ v *view }

func refundRequestVersion(r *entity.BookingRefundRequest) *int64 { return &r.Version }

func (r refundRequestRepo) Create(_ context.Context, rr *entity.BookingRefundRequest) error {
	return r.v.do(func(t *tables) error {
		return insertRow(t.refundRequests, rr.ID, rr)
	})
}

func (r refundRequestRepo) Get(_ context.Context, id uuid.UUID) (out *entity.BookingRefundRequest, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.refundRequests, id, apperror.ErrRefundRequestNotFound)
		return err
	})
	return out, err
}

func (r refundRequestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.BookingRefundRequest, error) {
	return r.Get(ctx, id)
}

func (r refundRequestRepo) Update(_ context.Context, rr *entity.BookingRefundRequest) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.refundRequests, rr.ID, rr, refundRequestVersion, apperror.ErrRefundRequestNotFound)
	})
}

func (r refundRequestRepo) HasPendingForBooking(_ context.Context, bookingID uuid.UUID) (exists bool, err error) {
	err = r.v.do(func(t *tables) error {
		for _, rr := range t.refundRequests {
			if rr.BookingID == bookingID && rr.Status == valueobject.RefundRequestPending {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r refundRequestRepo) ListByBooking(_ context.Context, bookingID uuid.UUID) (out []*entity.BookingRefundRequest, err error) {
	err = r.v.do(func(t *tables) error {
		out = selectRows(t.refundRequests,
			func(rr *entity.BookingRefundRequest) bool { return rr.BookingID == bookingID },
			func(a, b *entity.BookingRefundRequest) bool { return a.CreatedAt.Before(b.CreatedAt) })
		return nil
	})
	return out, err
}

type withdrawalRepo struct{ v *view }

func withdrawalVersion(w *entity.Withdrawal) *int64 { return &w.Version }

func (r withdrawalRepo) Create(_ context.Context, w *entity.Withdrawal) error {
	return r.v.do(func(t *tables) error {
		return insertRow(t.withdrawals, w.ID, w)
	})
}

func (r withdrawalRepo) Get(_ context.Context, id uuid.UUID) (out *entity.Withdrawal, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.withdrawals, id, apperror.ErrWithdrawalNotFound)
		return err
	})
	return out, err
}

func (r withdrawalRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Withdrawal, error) {
	return r.Get(ctx, id)
}

func (r withdrawalRepo) Update(_ context.Context, w *entity.Withdrawal) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.withdrawals, w.ID, w, withdrawalVersion, apperror.ErrWithdrawalNotFound)
	})
}

func (r withdrawalRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, limit, offset int) (out []*entity.Withdrawal, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.withdrawals,
			func(w *entity.Withdrawal) bool { return w.OwnerID == ownerID },
			func(a, b *entity.Withdrawal) bool { return a.CreatedAt.After(b.CreatedAt) })
		out = page(rows, limit, offset)
		return nil
	})
	return out, err
}

type reportRepo struct{ v *view }

func reportVersion(r *entity.Report) *int64 { return &r.Version }

func (r reportRepo) Create(_ context.Context, rep *entity.Report) error {
	return r.v.do(func(t *tables) error {
		return insertRow(t.reports, rep.ID, rep)
	})
}

func (r reportRepo) Get(_ context.Context, id uuid.UUID) (out *entity.Report, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.reports, id, apperror.ErrReportNotFound)
		return err
	})
	return out, err
}

func (r reportRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return r.Get(ctx, id)
}

func (r reportRepo) Update(_ context.Context, rep *entity.Report) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.reports, rep.ID, rep, reportVersion, apperror.ErrReportNotFound)
	})
}

func (r reportRepo) HasUnresolved(_ context.Context, bookingID, scheduleID uuid.UUID) (exists bool, err error) {
	err = r.v.do(func(t *tables) error {
		for _, rep := range t.reports {
			if rep.BookingID == bookingID && rep.ScheduleID == scheduleID && rep.Status == valueobject.ReportOpen {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

type notificationRepo struct{ v *view }

func (r notificationRepo) Create(_ context.Context, n *entity.Notification) error {
	return r.v.do(func(t *tables) error {
		return insertRow(t.notifications, n.ID, n)
	})
}

func (r notificationRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) (out []*entity.Notification, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.notifications,
			func(n *entity.Notification) bool { return n.UserID == userID },
			func(a, b *entity.Notification) bool { return a.CreatedAt.After(b.CreatedAt) })
		out = page(rows, limit, offset)
		return nil
	})
	return out, err
}

func (r notificationRepo) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	return r.v.do(func(t *tables) error {
		n, ok := t.notifications[id]
		if !ok || n.UserID != userID {
			return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
		}
		n.IsRead = true
		t.notifications[id] = n
		return nil
	})
}
