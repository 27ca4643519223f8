package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/entity"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

type availabilityRepo struct{ v *view }

func availabilityVersion(a *entity.Availability) *int64 { return &a.Version }

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func activeDuplicate(t *tables, a *entity.Availability) bool {
	for _, other := range t.availabilities {
		if other.ID != a.ID && other.TutorID == a.TutorID && other.TimeSlotID == a.TimeSlotID &&
			sameDay(other.Date, a.Date) && other.Status != valueobject.AvailabilityCancelled {
			return true
		}
	}
	return false
}

func (r availabilityRepo) Create(_ context.Context, a *entity.Availability) error {
	return r.v.do(func(t *tables) error {
		if a.Status != valueobject.AvailabilityCancelled && activeDuplicate(t, a) {
			return apperror.ErrDuplicateAvailability
		}
		return insertRow(t.availabilities, a.ID, a)
	})
}

func (r availabilityRepo) Get(_ context.Context, id uuid.UUID) (out *entity.Availability, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.availabilities, id, apperror.ErrAvailabilityNotFound)
		return err
	})
	return out, err
}

func (r availabilityRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Availability, error) {
	return r.Get(ctx, id)
}

func (r availabilityRepo) Update(_ context.Context, a *entity.Availability) error {
	return r.v.do(func(t *tables) error {
		if a.Status != valueobject.AvailabilityCancelled && activeDuplicate(t, a) {
			return apperror.ErrDuplicateAvailability
		}
		return updateRow(t.availabilities, a.ID, a, availabilityVersion, apperror.ErrAvailabilityNotFound)
	})
}

func (r availabilityRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.v.do(func(t *tables) error {
		if _, ok := t.availabilities[id]; !ok {
			return apperror.ErrAvailabilityNotFound
		}
		for _, s := range t.schedules {
			if s.AvailabilityID == id {
				return apperror.ErrAvailabilityInUse
			}
		}
		for _, cr := range t.changeRequests {
			if cr.CurrentAvailabilityID == id || cr.NewAvailabilityID == id {
				return apperror.ErrAvailabilityInUse
			}
		}
		delete(t.availabilities, id)
		return nil
	})
}

func (r availabilityRepo) ExistsActive(_ context.Context, tutorID, timeSlotID uuid.UUID, date time.Time) (exists bool, err error) {
	err = r.v.do(func(t *tables) error {
		probe := entity.Availability{TutorID: tutorID, TimeSlotID: timeSlotID, Date: date}
		exists = activeDuplicate(t, &probe)
		return nil
	})
	return exists, err
}

func (r availabilityRepo) ListByTutor(_ context.Context, tutorID uuid.UUID, from, to time.Time) (out []*entity.Availability, err error) {
	err = r.v.do(func(t *tables) error {
		out = selectRows(t.availabilities,
			func(a *entity.Availability) bool {
				return a.TutorID == tutorID && !a.StartAt.Before(from) && a.StartAt.Before(to)
			},
			func(a, b *entity.Availability) bool { return a.StartAt.Before(b.StartAt) })
		return nil
	})
	return out, err
}

type referenceRepo struct{ v *view }

func (r referenceRepo) GetTimeSlot(_ context.Context, id uuid.UUID) (out *entity.TimeSlot, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.timeSlots, id, apperror.ErrTimeSlotNotFound)
		return err
	})
	return out, err
}

func (r referenceRepo) ListTimeSlots(_ context.Context) (out []*entity.TimeSlot, err error) {
	err = r.v.do(func(t *tables) error {
		out = selectRows(t.timeSlots,
			func(*entity.TimeSlot) bool { return true },
			func(a, b *entity.TimeSlot) bool { return a.StartMinute < b.StartMinute })
		return nil
	})
	return out, err
}

func (r referenceRepo) GetTutorSubject(_ context.Context, id uuid.UUID) (out *entity.TutorSubject, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.tutorSubjects, id, apperror.ErrTutorSubjectNotFound)
		return err
	})
	return out, err
}

func (r referenceRepo) GetActiveSystemFee(_ context.Context, at time.Time) (out *entity.SystemFee, err error) {
	err = r.v.do(func(t *tables) error {
		fees := selectRows(t.systemFees,
			func(f *entity.SystemFee) bool { return f.IsActive && !f.EffectiveFrom.After(at) },
			func(a, b *entity.SystemFee) bool { return a.EffectiveFrom.After(b.EffectiveFrom) })
		if len(fees) == 0 {
			return apperror.ErrNoActiveFee
		}
		out = fees[0]
		return nil
	})
	return out, err
}

type bookingRepo struct{ v *view }

func bookingVersion(b *entity.Booking) *int64 { return &b.Version }

func (r bookingRepo) Create(_ context.Context, b *entity.Booking) error {
	return r.v.do(func(t *tables) error {
		return insertRow(t.bookings, b.ID, b)
	})
}

func (r bookingRepo) Get(_ context.Context, id uuid.UUID) (out *entity.Booking, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.bookings, id, apperror.ErrBookingNotFound)
		return err
	})
	return out, err
}

func (r bookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.Get(ctx, id)
}

func (r bookingRepo) Update(_ context.Context, b *entity.Booking) error {
	return r.v.do(func(t *tables) error {
		return updateRow(t.bookings, b.ID, b, bookingVersion, apperror.ErrBookingNotFound)
	})
}

func (r bookingRepo) ListByParticipant(_ context.Context, userID uuid.UUID, limit, offset int) (out []*entity.Booking, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.bookings,
			func(b *entity.Booking) bool { return b.IsParticipant(userID) },
			func(a, b *entity.Booking) bool { return a.CreatedAt.After(b.CreatedAt) })
		out = page(rows, limit, offset)
		return nil
	})
	return out, err
}

func schedulesOf(t *tables, bookingID uuid.UUID) []*entity.Schedule {
	return selectRows(t.schedules,
		func(s *entity.Schedule) bool { return s.BookingID == bookingID },
		func(a, b *entity.Schedule) bool { return a.StartAt.Before(b.StartAt) })
}

func (r bookingRepo) ListStale(_ context.Context, createdBefore time.Time, limit int) (out []uuid.UUID, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.bookings,
			func(b *entity.Booking) bool {
				if b.Status != valueobject.BookingPending || !b.CreatedAt.Before(createdBefore) {
					return false
				}
				for _, s := range schedulesOf(t, b.ID) {
					if s.Status != valueobject.ScheduleUpcoming && s.Status != valueobject.ScheduleCancelled {
						return false
					}
				}
				return true
			},
			func(a, b *entity.Booking) bool { return a.CreatedAt.Before(b.CreatedAt) })
		out = ids(rows, func(b *entity.Booking) uuid.UUID { return b.ID }, limit)
		return nil
	})
	return out, err
}

func (r bookingRepo) ListFoldCandidates(_ context.Context, limit int) (out []uuid.UUID, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.bookings,
			func(b *entity.Booking) bool {
				if b.Status != valueobject.BookingConfirmed {
					return false
				}
				schedules := schedulesOf(t, b.ID)
				if len(schedules) == 0 {
					return false
				}
				for _, s := range schedules {
					if !s.Status.IsTerminal() {
						return false
					}
				}
				return true
			},
			func(a, b *entity.Booking) bool { return a.UpdatedAt.Before(b.UpdatedAt) })
		out = ids(rows, func(b *entity.Booking) uuid.UUID { return b.ID }, limit)
		return nil
	})
	return out, err
}

type scheduleRepo struct{ v *view }

func scheduleVersion(s *entity.Schedule) *int64 { return &s.Version }

func activeScheduleFor(t *tables, s *entity.Schedule) bool {
	for _, other := range t.schedules {
		if other.ID != s.ID && other.AvailabilityID == s.AvailabilityID && other.Status != valueobject.ScheduleCancelled {
			return true
		}
	}
	return false
}

func (r scheduleRepo) Create(_ context.Context, s *entity.Schedule) error {
	return r.v.do(func(t *tables) error {
		if activeScheduleFor(t, s) {
			return apperror.ErrScheduleExists
		}
		return insertRow(t.schedules, s.ID, s)
	})
}

func (r scheduleRepo) Get(_ context.Context, id uuid.UUID) (out *entity.Schedule, err error) {
	err = r.v.do(func(t *tables) error {
		out, err = getRow(t.schedules, id, apperror.ErrScheduleNotFound)
		return err
	})
	return out, err
}

func (r scheduleRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Schedule, error) {
	return r.Get(ctx, id)
}

func (r scheduleRepo) Update(_ context.Context, s *entity.Schedule) error {
	return r.v.do(func(t *tables) error {
		if s.Status != valueobject.ScheduleCancelled && activeScheduleFor(t, s) {
			return apperror.ErrScheduleExists
		}
		return updateRow(t.schedules, s.ID, s, scheduleVersion, apperror.ErrScheduleNotFound)
	})
}

func (r scheduleRepo) ListByBooking(_ context.Context, bookingID uuid.UUID) (out []*entity.Schedule, err error) {
	err = r.v.do(func(t *tables) error {
		out = schedulesOf(t, bookingID)
		return nil
	})
	return out, err
}

func (r scheduleRepo) Statuses(_ context.Context, bookingID uuid.UUID) (out []valueobject.ScheduleStatus, err error) {
	err = r.v.do(func(t *tables) error {
		for _, s := range schedulesOf(t, bookingID) {
			out = append(out, s.Status)
		}
		return nil
	})
	return out, err
}

func (r scheduleRepo) CountActiveByBooking(_ context.Context, bookingID uuid.UUID) (n int, err error) {
	err = r.v.do(func(t *tables) error {
		for _, s := range schedulesOf(t, bookingID) {
			if s.Status != valueobject.ScheduleCancelled {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r scheduleRepo) ExistsActiveForAvailability(_ context.Context, availabilityID uuid.UUID) (exists bool, err error) {
	err = r.v.do(func(t *tables) error {
		exists = activeScheduleFor(t, &entity.Schedule{AvailabilityID: availabilityID})
		return nil
	})
	return exists, err
}

func (r scheduleRepo) HasTutorOverlap(_ context.Context, tutorID uuid.UUID, start, end time.Time) (exists bool, err error) {
	err = r.v.do(func(t *tables) error {
		for _, s := range t.schedules {
			if s.TutorID == tutorID && s.Status != valueobject.ScheduleCancelled &&
				s.StartAt.Before(end) && start.Before(s.EndAt) {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r scheduleRepo) ListDue(_ context.Context, now time.Time, limit int) (out []uuid.UUID, err error) {
	err = r.v.do(func(t *tables) error {
		rows := selectRows(t.schedules,
			func(s *entity.Schedule) bool {
				switch s.Status {
				case valueobject.ScheduleUpcoming:
					return !s.StartAt.After(now)
				case valueobject.ScheduleInProgress:
					return !s.EndAt.After(now)
				}
				return false
			},
			func(a, b *entity.Schedule) bool { return a.StartAt.Before(b.StartAt) })
		out = ids(rows, func(s *entity.Schedule) uuid.UUID { return s.ID }, limit)
		return nil
	})
	return out, err
}
