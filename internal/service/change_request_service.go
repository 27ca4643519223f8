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

// ChangeRequestService - перенос занятия в другой слот того же преподавателя по согласию сторон.
type ChangeRequestService struct {
	txm       repository.TxManager
	clock     clock.Clock
	policy    Policy
	schedules *ScheduleService
	notifier  Notifier
}

func NewChangeRequestService(txm repository.TxManager, clk clock.Clock, policy Policy, schedules *ScheduleService, notifier Notifier) *ChangeRequestService {
	return &ChangeRequestService{txm: txm, clock: clk, policy: policy, schedules: schedules, notifier: notifierOrNoop(notifier)}
}

func (s *ChangeRequestService) Create(ctx context.Context, scheduleID, requesterID, newAvailabilityID uuid.UUID, reason string) (*entity.ScheduleChangeRequest, error) {
	var cr *entity.ScheduleChangeRequest
	var other uuid.UUID
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		sched, err := st.Schedules().GetForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if !sched.IsParticipant(requesterID) {
			return apperror.ErrForbidden
		}
		if sched.StartsWithin(now, s.policy.NoCancelWindow) {
			return apperror.ErrTooLateToCancel
		}
		pending, err := st.ChangeRequests().ListPendingBySchedule(ctx, sched.ID)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return apperror.ErrPendingRequestExists
		}
		target, err := st.Availabilities().GetForUpdate(ctx, newAvailabilityID)
		if err != nil {
			return err
		}
		if target.StartAt.Sub(now) < s.policy.NoCancelWindow {
			return apperror.ErrTooLateToCancel
		}
		cr, err = entity.NewScheduleChangeRequest(sched, requesterID, target, reason, now)
		if err != nil {
			return err
		}
		other = sched.TutorID
		if requesterID == sched.TutorID {
			other = sched.LearnerID
		}
		return st.ChangeRequests().Create(ctx, cr)
	})
	if err != nil {
		return nil, fmt.Errorf("change request service: create: %w", err)
	}
	s.notifier.Notify(ctx, other, EventChangeRequestCreated, changeRequestNotice(cr))
	return cr, nil
}

// Approve переносит занятие: старый слот освобождается, новый занимается.
// Одобрить может только вторая сторона.
func (s *ChangeRequestService) Approve(ctx context.Context, id, actorID uuid.UUID) (*entity.ScheduleChangeRequest, error) {
	var cr *entity.ScheduleChangeRequest
	var sched *entity.Schedule
	var oldMeeting string
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		var err error
		cr, err = st.ChangeRequests().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cr.Status != valueobject.ChangeRequestPending {
			return apperror.ErrInvalidTransition
		}
		sched, err = st.Schedules().GetForUpdate(ctx, cr.ScheduleID)
		if err != nil {
			return err
		}
		if !sched.IsParticipant(actorID) || actorID == cr.RequestedBy {
			return apperror.ErrForbidden
		}
		if sched.Status != valueobject.ScheduleUpcoming || sched.AvailabilityID != cr.CurrentAvailabilityID {
			return apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict, "занятие уже изменилось")
		}
		if sched.StartsWithin(now, s.policy.NoCancelWindow) || cr.NewStartAt.Sub(now) < s.policy.NoCancelWindow {
			return apperror.ErrTooLateToCancel
		}

		target, err := st.Availabilities().GetForUpdate(ctx, cr.NewAvailabilityID)
		if err != nil {
			return err
		}
		if target.Status != valueobject.AvailabilityAvailable {
			return apperror.ErrAvailabilityNotAvailable
		}
		taken, err := st.Schedules().ExistsActiveForAvailability(ctx, target.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperror.ErrScheduleExists
		}
		current, err := st.Availabilities().GetForUpdate(ctx, sched.AvailabilityID)
		if err != nil {
			return err
		}

		if err := current.Release(now); err != nil {
			return err
		}
		if err := target.TransitionTo(valueobject.AvailabilityBooked, now); err != nil {
			return err
		}
		if err := st.Availabilities().Update(ctx, current); err != nil {
			return err
		}
		if err := st.Availabilities().Update(ctx, target); err != nil {
			return err
		}

		if sched.MeetingEventID != nil {
			oldMeeting = *sched.MeetingEventID
		}
		sched.AvailabilityID = target.ID
		sched.StartAt = target.StartAt
		sched.EndAt = target.EndAt
		sched.MeetingLink = nil
		sched.MeetingEventID = nil
		sched.UpdatedAt = now
		if err := st.Schedules().Update(ctx, sched); err != nil {
			return err
		}

		if err := cr.Approve(actorID, now); err != nil {
			return err
		}
		return st.ChangeRequests().Update(ctx, cr)
	})
	if err != nil {
		return nil, fmt.Errorf("change request service: approve: %w", err)
	}

	s.schedules.deleteMeetings(ctx, []string{oldMeeting})
	s.schedules.provisionMeeting(ctx, sched)
	s.notifier.Notify(ctx, cr.RequestedBy, EventChangeRequestApproved, changeRequestNotice(cr))
	other := sched.TutorID
	if cr.RequestedBy == sched.TutorID {
		other = sched.LearnerID
	}
	s.notifier.Notify(ctx, other, EventScheduleRescheduled, scheduleNotice(sched))
	return cr, nil
}

func (s *ChangeRequestService) Reject(ctx context.Context, id, actorID uuid.UUID) (*entity.ScheduleChangeRequest, error) {
	var cr *entity.ScheduleChangeRequest
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		cr, err = st.ChangeRequests().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		sched, err := st.Schedules().Get(ctx, cr.ScheduleID)
		if err != nil {
			return err
		}
		if !sched.IsParticipant(actorID) || actorID == cr.RequestedBy {
			return apperror.ErrForbidden
		}
		if err := cr.Reject(actorID, s.clock.Now()); err != nil {
			return err
		}
		return st.ChangeRequests().Update(ctx, cr)
	})
	if err != nil {
		return nil, fmt.Errorf("change request service: reject: %w", err)
	}
	s.notifier.Notify(ctx, cr.RequestedBy, EventChangeRequestRejected, changeRequestNotice(cr))
	return cr, nil
}

// AutoCancel закрывает просроченный запрос: истёк ChangeRequestTTL или одно из занятий
// начинается ближе NoCancelWindow.
func (s *ChangeRequestService) AutoCancel(ctx context.Context, id uuid.UUID) error {
	var cr *entity.ScheduleChangeRequest
	expired := false
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		now := s.clock.Now()
		var err error
		cr, err = st.ChangeRequests().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cr.Status != valueobject.ChangeRequestPending {
			return nil
		}
		cutoff := now.Add(s.policy.NoCancelWindow)
		if cr.CreatedAt.After(now.Add(-s.policy.ChangeRequestTTL)) &&
			cr.CurrentStartAt.After(cutoff) && cr.NewStartAt.After(cutoff) {
			return nil
		}
		if err := cr.Cancel("истёк срок ответа на запрос", now); err != nil {
			return err
		}
		expired = true
		return st.ChangeRequests().Update(ctx, cr)
	})
	if err != nil {
		return fmt.Errorf("change request service: auto cancel %s: %w", id, err)
	}
	if expired {
		s.notifier.Notify(ctx, cr.RequestedBy, EventChangeRequestExpired, changeRequestNotice(cr))
	}
	return nil
}

func (s *ChangeRequestService) ListExpirable(ctx context.Context, limit int) ([]uuid.UUID, error) {
	now := s.clock.Now()
	return s.txm.ChangeRequests().ListExpirable(ctx, now.Add(-s.policy.ChangeRequestTTL), now.Add(s.policy.NoCancelWindow), limit)
}

func (s *ChangeRequestService) Get(ctx context.Context, id, userID uuid.UUID) (*entity.ScheduleChangeRequest, error) {
	cr, err := s.txm.ChangeRequests().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sched, err := s.txm.Schedules().Get(ctx, cr.ScheduleID)
	if err != nil {
		return nil, err
	}
	if !sched.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return cr, nil
}

func changeRequestNotice(cr *entity.ScheduleChangeRequest) map[string]any {
	return map[string]any{
		"request_id":   cr.ID,
		"schedule_id":  cr.ScheduleID,
		"status":       cr.Status,
		"new_start_at": cr.NewStartAt,
	}
}
