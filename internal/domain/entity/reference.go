package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
)

// TimeSlot - элемент сетки времени, минуты от начала суток (UTC).
type TimeSlot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
}

// Bounds возвращает начало и конец слота на указанный день.
func (t *TimeSlot) Bounds(day time.Time) (time.Time, time.Time) {
	start := day.Add(time.Duration(t.StartMinute) * time.Minute)
	end := day.Add(time.Duration(t.EndMinute) * time.Minute)
	if t.EndMinute <= t.StartMinute {
		end = end.Add(24 * time.Hour)
	}
	return start, end
}

// TutorSubject - предмет преподавателя со ставкой за одно занятие.
type TutorSubject struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TutorID   uuid.UUID `db:"tutor_id" json:"tutor_id"`
	SubjectID uuid.UUID `db:"subject_id" json:"subject_id"`
	Rate      int64     `db:"rate" json:"rate"`
	IsActive  bool      `db:"is_active" json:"is_active"`
}

// SystemFee - конфигурация комиссии платформы.
type SystemFee struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PercentageBP  int64     `db:"percentage_bp" json:"percentage_bp"`
	FixedAmount   int64     `db:"fixed_amount" json:"fixed_amount"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	EffectiveFrom time.Time `db:"effective_from" json:"effective_from"`
}

func (f *SystemFee) Rule() valueobject.FeeRule {
	return valueobject.FeeRule{PercentageBP: f.PercentageBP, FixedAmount: f.FixedAmount}
}
