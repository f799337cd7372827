package scheduling

import "fmt"

// DayNames maps ISO weekday numbers (1=Monday) to display names. Index 0 is unused.
type DayNames [8]string

var defaultDayNames = DayNames{"", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// Name returns the display name for day, or "" when day is out of range.
func (n DayNames) Name(day int) string {
	if day < MinDay || day > MaxDay {
		return ""
	}
	return n[day]
}

const (
	MinDay = 1
	MaxDay = 7
)

// Policy bounds where availability may be published within a day.
type Policy struct {
	Earliest TimeOfDay
	Latest   TimeOfDay
	Days     DayNames
}

// DefaultPolicy opens the clinic from 06:00 to 22:00.
func DefaultPolicy() Policy {
	return Policy{
		Earliest: Clock(6, 0, 0),
		Latest:   Clock(22, 0, 0),
		Days:     defaultDayNames,
	}
}

// NewPolicy builds a policy from HH:MM bounds, keeping the default day names.
func NewPolicy(earliest, latest string) (Policy, error) {
	p := DefaultPolicy()
	var err error
	if p.Earliest, err = ParseTimeOfDay(earliest); err != nil {
		return Policy{}, fmt.Errorf("business hours start: %w", err)
	}
	if p.Latest, err = ParseTimeOfDay(latest); err != nil {
		return Policy{}, fmt.Errorf("business hours end: %w", err)
	}
	if p.Earliest >= p.Latest {
		return Policy{}, fmt.Errorf("business hours start %s must be before end %s", p.Earliest, p.Latest)
	}
	return p, nil
}

// Permits reports whether iv lies inside business hours. Both bounds are inclusive.
func (p Policy) Permits(iv Interval) bool {
	return iv.Start >= p.Earliest && iv.End <= p.Latest
}
