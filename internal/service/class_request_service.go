package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/repository"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/clock"
)

type ClassRequestService struct {
	txm      repository.TxManager
	clock    clock.Clock
	notifier Notifier
}

func NewClassRequestService(txm repository.TxManager, clk clock.Clock, notifier Notifier) *ClassRequestService {
	return &ClassRequestService{txm: txm, clock: clk, notifier: notifierOrNoop(notifier)}
}

func (s *ClassRequestService) Create(ctx context.Context, learnerID, subjectID uuid.UUID, expectedStart time.Time, note string) (*entity.ClassRequest, error) {
	cr, err := entity.NewClassRequest(learnerID, subjectID, expectedStart, note, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.txm.ClassRequests().Create(ctx, cr); err != nil {
		return nil, fmt.Errorf("class request service: create: %w", err)
	}
	return cr, nil
}

// Close - ученик сам закрывает заявку.
func (s *ClassRequestService) Close(ctx context.Context, id, learnerID uuid.UUID) (*entity.ClassRequest, error) {
	var cr *entity.ClassRequest
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		cr, err = st.ClassRequests().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cr.LearnerID != learnerID {
			return apperror.ErrForbidden
		}
		if err := cr.Close(s.clock.Now()); err != nil {
			return err
		}
		return st.ClassRequests().Update(ctx, cr)
	})
	if err != nil {
		return nil, fmt.Errorf("class request service: close: %w", err)
	}
	return cr, nil
}

// Expire закрывает заявку, ожидаемое время которой прошло.
func (s *ClassRequestService) Expire(ctx context.Context, id uuid.UUID) error {
	var cr *entity.ClassRequest
	expired := false
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		cr, err = st.ClassRequests().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if cr.Status != valueobject.ClassRequestOpen || now.Before(cr.ExpectedStartAt) {
			return nil
		}
		if err := cr.Expire(now); err != nil {
			return err
		}
		expired = true
		return st.ClassRequests().Update(ctx, cr)
	})
	if err != nil {
		return fmt.Errorf("class request service: expire %s: %w", id, err)
	}
	if expired {
		s.notifier.Notify(ctx, cr.LearnerID, EventClassRequestExpired, map[string]any{"request_id": cr.ID})
	}
	return nil
}

func (s *ClassRequestService) ListByLearner(ctx context.Context, learnerID uuid.UUID, limit, offset int) ([]*entity.ClassRequest, error) {
	return s.txm.ClassRequests().ListByLearner(ctx, learnerID, clampLimit(limit), offset)
}

func (s *ClassRequestService) ListExpired(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return s.txm.ClassRequests().ListExpired(ctx, s.clock.Now(), limit)
}
