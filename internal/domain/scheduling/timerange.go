package scheduling

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// TimeOfDay is a wall-clock time within a single day, in seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

var timeOfDayPattern = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2}))?$`)

// ParseTimeOfDay parses a 24-hour HH:MM or HH:MM:SS string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return Clock(hour, minute, second), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants; it panics on bad input.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Clock builds a TimeOfDay from its components.
func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// FromDuration converts a duration since midnight, as returned by the database
// drivers for TIME columns.
func FromDuration(d time.Duration) TimeOfDay {
	return TimeOfDay(int(d/time.Second) % secondsPerDay)
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration { return time.Duration(t) * time.Second }

// Add returns t shifted by d. The result is not wrapped past midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Second)
}

// String renders HH:MM, or HH:MM:SS when the seconds are non-zero.
func (t TimeOfDay) String() string {
	if t.Second() != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Interval is a half-open time-of-day range [Start, End).
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (iv Interval) Length() time.Duration { return (iv.End - iv.Start).Duration() }

// Overlaps reports whether a and b share any instant. Intervals that only
// touch at an endpoint do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// ContainsInstant reports whether t falls inside iv, end excluded.
func ContainsInstant(iv Interval, t TimeOfDay) bool {
	return iv.Start <= t && t < iv.End
}

// Subtract removes every busy range from the free intervals and returns what
// remains, sorted by start.
func Subtract(free, busy []Interval) []Interval {
	out := make([]Interval, 0, len(free))
	for _, f := range free {
		pieces := []Interval{f}
		for _, b := range busy {
			var next []Interval
			for _, p := range pieces {
				if !Overlaps(p, b) {
					next = append(next, p)
					continue
				}
				if p.Start < b.Start {
					next = append(next, Interval{Start: p.Start, End: b.Start})
				}
				if b.End < p.End {
					next = append(next, Interval{Start: b.End, End: p.End})
				}
			}
			pieces = next
		}
		out = append(out, pieces...)
	}
	sortIntervals(out)
	return out
}

func sortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Start != ivs[j].Start {
			return ivs[i].Start < ivs[j].Start
		}
		return ivs[i].End < ivs[j].End
	})
}
