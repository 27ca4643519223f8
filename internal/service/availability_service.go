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

// SlotInput - слот сетки на конкретную дату.
type SlotInput struct {
	TimeSlotID uuid.UUID
	Date       time.Time
}

// AvailabilityService управляет слотами доступности преподавателей.
type AvailabilityService struct {
	txm   repository.TxManager
	clock clock.Clock
}

func NewAvailabilityService(txm repository.TxManager, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{txm: txm, clock: clk}
}

func (s *AvailabilityService) Create(ctx context.Context, tutorID uuid.UUID, in SlotInput) (*entity.Availability, error) {
	var created *entity.Availability
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		created, err = s.createOne(ctx, st, tutorID, in)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("availability service: create: %w", err)
	}
	return created, nil
}

// CreateBulk создаёт все слоты или ни одного.
func (s *AvailabilityService) CreateBulk(ctx context.Context, tutorID uuid.UUID, in []SlotInput) ([]*entity.Availability, error) {
	if len(in) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "список слотов пуст")
	}
	created := make([]*entity.Availability, 0, len(in))
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		for _, item := range in {
			a, err := s.createOne(ctx, st, tutorID, item)
			if err != nil {
				return err
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("availability service: create bulk: %w", err)
	}
	return created, nil
}

func (s *AvailabilityService) createOne(ctx context.Context, st repository.Store, tutorID uuid.UUID, in SlotInput) (*entity.Availability, error) {
	slot, err := st.Reference().GetTimeSlot(ctx, in.TimeSlotID)
	if err != nil {
		return nil, err
	}
	a, err := entity.NewAvailability(tutorID, slot, in.Date, s.clock.Now())
	if err != nil {
		return nil, err
	}

	dup, err := st.Availabilities().ExistsActive(ctx, tutorID, slot.ID, a.Date)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperror.ErrDuplicateAvailability
	}
	busy, err := st.Schedules().HasTutorOverlap(ctx, tutorID, a.StartAt, a.EndAt)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, apperror.ErrTutorBusy
	}

	if err := st.Availabilities().Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AvailabilityService) Get(ctx context.Context, id uuid.UUID) (*entity.Availability, error) {
	return s.txm.Availabilities().Get(ctx, id)
}

func (s *AvailabilityService) ListByTutor(ctx context.Context, tutorID uuid.UUID, from, to time.Time) ([]*entity.Availability, error) {
	if !to.After(from) {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный период")
	}
	return s.txm.Availabilities().ListByTutor(ctx, tutorID, from, to)
}

// UpdateStatus - смена статуса владельцем слота. Booked и InProgress выставляет только движок расписания.
func (s *AvailabilityService) UpdateStatus(ctx context.Context, id, tutorID uuid.UUID, status valueobject.AvailabilityStatus) (*entity.Availability, error) {
	if status == valueobject.AvailabilityBooked || status == valueobject.AvailabilityInProgress {
		return nil, apperror.Wrap(apperror.ErrInvalidTransition, apperror.ErrCodeConflict,
			"статус слота "+string(status)+" выставляется расписанием")
	}
	var a *entity.Availability
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		a, err = st.Availabilities().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.TutorID != tutorID {
			return apperror.ErrForbidden
		}
		active, err := st.Schedules().ExistsActiveForAvailability(ctx, a.ID)
		if err != nil {
			return err
		}
		if active {
			return apperror.ErrAvailabilityInUse
		}
		if err := a.TransitionTo(status, s.clock.Now()); err != nil {
			return err
		}
		return st.Availabilities().Update(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("availability service: update status: %w", err)
	}
	return a, nil
}

// Override - ручная установка статуса администратором.
func (s *AvailabilityService) Override(ctx context.Context, id uuid.UUID, status valueobject.AvailabilityStatus) (*entity.Availability, error) {
	var a *entity.Availability
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		var err error
		a, err = st.Availabilities().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := a.Override(status, s.clock.Now()); err != nil {
			return err
		}
		return st.Availabilities().Update(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("availability service: override: %w", err)
	}
	return a, nil
}

func (s *AvailabilityService) Delete(ctx context.Context, id, tutorID uuid.UUID) error {
	err := s.txm.WithinTx(ctx, func(ctx context.Context, st repository.Store) error {
		a, err := st.Availabilities().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.TutorID != tutorID {
			return apperror.ErrForbidden
		}
		if !a.CanDelete() {
			return apperror.ErrAvailabilityNotAvailable
		}
		return st.Availabilities().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("availability service: delete: %w", err)
	}
	return nil
}
