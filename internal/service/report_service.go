package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

// ReportService принимает жалобы на занятия и применяет решения администратора.
type ReportService struct {
	txm        repository.TxManager
	clock      clock.Clock
	completion *CompletionService
	schedules  *ScheduleService
	notifier   Notifier
}

func NewReportService(txm repository.TxManager, clk clock.Clock, completion *CompletionService,
	schedules *ScheduleService, notifier Notifier) *ReportService {
	return &ReportService{
		txm:        txm,
		clock:      clk,
		completion: completion,
		schedules:  schedules,
		notifier:   notifierOrNoop(notifier),
	}
}

// FileReport открывает жалобу и ставит на удержание подтверждение, занятие и выплату.
func (r *ReportService) FileReport(ctx context.Context, scheduleID, reporterID uuid.UUID, reason string) (*entity.Report, error) {
	var rep *entity.Report
	var out outbox
	err := r.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := r.clock.Now()
		sched, err := st.Schedules().GetForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		switch sched.Status {
		case valueobject.ScheduleInProgress, valueobject.SchedulePending,
			valueobject.ScheduleProcessing, valueobject.ScheduleCompleted:
		default:
			return apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict,
				"жалобу можно подать только на начавшееся занятие")
		}

		payout, err := st.Payouts().GetByScheduleForUpdate(ctx, sched.ID)
		if err != nil && !errors.Is(err, apperror.ErrPayoutNotFound) {
			return err
		}
		if err == nil && payout.Status == valueobject.PayoutPaid {
			return apperror.ErrAlreadyPaid
		}

		rep, err = entity.NewReport(sched, reporterID, reason, now)
		if err != nil {
			return err
		}
		if err := st.Reports().Create(ctx, rep); err != nil {
			return err
		}

		conf, err := st.Confirmations().GetByScheduleForUpdate(ctx, sched.ID)
		switch {
		case err == nil:
			if conf.Status != valueobject.ConfirmationCancelled {
				if err := conf.Hold(&rep.ID, now); err != nil {
					return err
				}
				if err := st.Confirmations().Update(ctx, conf); err != nil {
					return err
				}
			}
		case !errors.Is(err, apperror.ErrConfirmationNotFound):
			return err
		}

		if sched.Status == valueobject.SchedulePending {
			if err := sched.HoldForReview(now); err != nil {
				return err
			}
			if err := st.Schedules().Update(ctx, sched); err != nil {
				return err
			}
		}

		if payout != nil && !payout.IsSettled() {
			if err := payout.Hold(now); err != nil {
				return err
			}
			if err := st.Payouts().Update(ctx, payout); err != nil {
				return err
			}
		}

		other := sched.TutorID
		if reporterID == sched.TutorID {
			other = sched.LearnerID
		}
		out.add(other, EventReportFiled, map[string]any{"report_id": rep.ID, "schedule_id": sched.ID})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("report service: file: %w", err)
	}
	out.flush(ctx, r.notifier)
	return rep, nil
}

// ResolveReport закрывает жалобу. Пока по занятию остаются другие открытые жалобы,
// удержание сохраняется.
func (r *ReportService) ResolveReport(ctx context.Context, reportID, adminID uuid.UUID, resolution valueobject.HoldResolution) (*entity.Report, error) {
	var rep *entity.Report
	var meetings []string
	var out outbox
	err := r.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := r.clock.Now()
		var err error
		rep, err = st.Reports().GetForUpdate(ctx, reportID)
		if err != nil {
			return err
		}
		if err := rep.Resolve(resolution, adminID, now); err != nil {
			return err
		}
		if err := st.Reports().Update(ctx, rep); err != nil {
			return err
		}

		stillOpen, err := st.Reports().HasUnresolved(ctx, rep.BookingID, rep.ScheduleID)
		if err != nil {
			return err
		}
		if stillOpen && resolution == valueobject.ResolutionReleaseToTutor {
			return nil
		}

		sched, err := st.Schedules().GetForUpdate(ctx, rep.ScheduleID)
		if err != nil {
			return err
		}
		eventID, err := r.completion.resolveHoldInTx(ctx, st, sched, resolution, now, &out)
		if err != nil {
			return err
		}
		if eventID != "" {
			meetings = append(meetings, eventID)
		}

		notice := map[string]any{"report_id": rep.ID, "schedule_id": sched.ID, "resolution": resolution}
		out.add(sched.LearnerID, EventReportResolved, notice)
		out.add(sched.TutorID, EventReportResolved, notice)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("report service: resolve: %w", err)
	}
	r.schedules.deleteMeetings(ctx, meetings)
	out.flush(ctx, r.notifier)
	return rep, nil
}

func (r *ReportService) GetReport(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	return r.txm.Reports().Get(ctx, id)
}
