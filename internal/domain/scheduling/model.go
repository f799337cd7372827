package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyInterval is one recurring availability window of a doctor, maps to
// the weekly_interval table.
type WeeklyInterval struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  int64     `db:"doctor_id" json:"doctor_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	Start     TimeOfDay `db:"start_time" json:"start"`
	End       TimeOfDay `db:"end_time" json:"end"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (w WeeklyInterval) Interval() Interval {
	return Interval{Start: w.Start, End: w.End}
}

// Booking is an appointment that occupies part of a doctor's day. The core
// only reads bookings.
type Booking struct {
	ID       uuid.UUID `db:"id" json:"id"`
	DoctorID int64     `db:"doctor_id" json:"doctor_id"`
	Date     time.Time `db:"appointment_date" json:"date"`
	Start    TimeOfDay `db:"start_time" json:"start"`
	End      TimeOfDay `db:"end_time" json:"end"`
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// Optional marks whether a patch field was supplied.
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

// Or returns the supplied value or fallback.
func (o Optional[T]) Or(fallback T) T {
	if o.Set {
		return o.Value
	}
	return fallback
}

// Patch is a partial update to a weekly interval.
type Patch struct {
	DayOfWeek Optional[int]
	Start     Optional[string]
	End       Optional[string]
}

func (p Patch) Empty() bool {
	return !p.DayOfWeek.Set && !p.Start.Set && !p.End.Set
}

// DayView is one entry of a doctor's weekly view.
type DayView struct {
	DayOfWeek int              `json:"day_of_week"`
	DayName   string           `json:"day_name"`
	Intervals []WeeklyInterval `json:"intervals"`
}
