package scheduling

import (
	"sort"
)

// DefaultSlotMinutes is used when a caller does not ask for a duration.
const DefaultSlotMinutes = 30

// MaxSlotMinutes is the longest slot that can fit in a day.
const MaxSlotMinutes = secondsPerDay / 60

func checkDuration(op string, minutes int) error {
	if minutes <= 0 || minutes > MaxSlotMinutes {
		return newError(KindInvalidDuration, op, "duration must be between 1 and %d minutes, got %d", MaxSlotMinutes, minutes)
	}
	return nil
}

// SlotGenerator cuts free intervals into bookable start times.
type SlotGenerator struct {
	DefaultMinutes int
}

func NewSlotGenerator(defaultMinutes int) *SlotGenerator {
	if defaultMinutes <= 0 {
		defaultMinutes = DefaultSlotMinutes
	}
	return &SlotGenerator{DefaultMinutes: defaultMinutes}
}

// Generate steps through each interval by the slot duration, keeping every
// start whose slot still fits before the interval's end. The returned starts
// are sorted ascending.
func (g *SlotGenerator) Generate(intervals []Interval, durationMinutes int) ([]TimeOfDay, error) {
	if err := checkDuration("generate slots", durationMinutes); err != nil {
		return nil, err
	}
	step := TimeOfDay(durationMinutes * 60)

	ordered := make([]Interval, len(intervals))
	copy(ordered, intervals)
	sortIntervals(ordered)

	slots := []TimeOfDay{}
	for _, iv := range ordered {
		for t := iv.Start; t+step <= iv.End; t += step {
			slots = append(slots, t)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots, nil
}
