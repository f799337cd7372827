package scheduling

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Validator checks candidate intervals against the time format and the
// business-hours policy. It never touches storage.
type Validator struct {
	policy Policy
}

func NewValidator(p Policy) *Validator {
	return &Validator{policy: p}
}

func (v *Validator) Policy() Policy { return v.policy }

// Validate returns the parsed interval or the first rule it breaks, checked
// in order: day, time format, ordering, business hours.
func (v *Validator) Validate(day int, start, end string) (Interval, error) {
	const op = "validate"
	if day < MinDay || day > MaxDay {
		return Interval{}, newError(KindInvalidDay, op, "day_of_week must be between %d and %d, got %d", MinDay, MaxDay, day)
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Interval{}, &Error{Kind: KindInvalidTimeFormat, Op: op, Msg: "start must be HH:MM or HH:MM:SS", Err: err}
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Interval{}, &Error{Kind: KindInvalidTimeFormat, Op: op, Msg: "end must be HH:MM or HH:MM:SS", Err: err}
	}
	iv := Interval{Start: s, End: e}
	if iv.Start >= iv.End {
		return Interval{}, newError(KindInvertedOrZeroLengthInterval, op, "start %s must be before end %s", iv.Start, iv.End)
	}
	if !v.policy.Permits(iv) {
		return Interval{}, newError(KindOutsideBusinessHours, op, "interval %s-%s is outside business hours %s-%s",
			iv.Start, iv.End, v.policy.Earliest, v.policy.Latest)
	}
	return iv, nil
}

// ParseDay converts raw caller input into a day of week. JSON numbers and
// numeric strings are accepted; anything else, including out-of-range
// numbers, is InvalidDay.
func ParseDay(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	day, err := strconv.Atoi(s)
	if err != nil {
		return 0, &Error{Kind: KindInvalidDay, Op: "parse day", Msg: "day_of_week must be an integer", Err: err}
	}
	if day < MinDay || day > MaxDay {
		return 0, newError(KindInvalidDay, "parse day", "day_of_week must be between %d and %d, got %d", MinDay, MaxDay, day)
	}
	return day, nil
}

// ParseDayJSON is ParseDay for a raw JSON value.
func ParseDayJSON(raw json.RawMessage) (int, error) {
	return ParseDay(string(raw))
}
