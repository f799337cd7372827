package scheduling

import (
	"errors"
	"fmt"
)

// Kind classifies scheduling failures. The set is closed; transports map
// kinds to their own status codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidDay
	KindInvalidTimeFormat
	KindInvertedOrZeroLengthInterval
	KindOutsideBusinessHours
	KindConflict
	KindNotFound
	KindInvalidDuration
	KindStoreFailure
	KindInvalidDateRange
)

var kindNames = map[Kind]string{
	KindUnknown:                      "unknown",
	KindInvalidDay:                   "invalid_day",
	KindInvalidTimeFormat:            "invalid_time_format",
	KindInvertedOrZeroLengthInterval: "inverted_or_zero_length_interval",
	KindOutsideBusinessHours:         "outside_business_hours",
	KindConflict:                     "conflict",
	KindNotFound:                     "not_found",
	KindInvalidDuration:              "invalid_duration",
	KindStoreFailure:                 "store_failure",
	KindInvalidDateRange:             "invalid_date_range",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsInvalidInput reports whether the kind describes caller input that can
// never succeed as-is.
func (k Kind) IsInvalidInput() bool {
	switch k {
	case KindInvalidDay, KindInvalidTimeFormat, KindInvertedOrZeroLengthInterval,
		KindOutsideBusinessHours, KindInvalidDuration, KindInvalidDateRange:
		return true
	}
	return false
}

// Error is the error type returned by the scheduling core.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can compare against
// the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

var (
	ErrInvalidDay                   = &Error{Kind: KindInvalidDay}
	ErrInvalidTimeFormat            = &Error{Kind: KindInvalidTimeFormat}
	ErrInvertedOrZeroLengthInterval = &Error{Kind: KindInvertedOrZeroLengthInterval}
	ErrOutsideBusinessHours         = &Error{Kind: KindOutsideBusinessHours}
	ErrConflict                     = &Error{Kind: KindConflict}
	ErrNotFound                     = &Error{Kind: KindNotFound}
	ErrInvalidDuration              = &Error{Kind: KindInvalidDuration}
	ErrStoreFailure                 = &Error{Kind: KindStoreFailure}
	ErrInvalidDateRange             = &Error{Kind: KindInvalidDateRange}
)

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// storeFailure wraps a persistence error. Errors already classified by the
// store (for example a constraint violation reported as a conflict) keep
// their kind.
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &Error{Kind: KindStoreFailure, Op: op, Msg: "store unavailable", Err: err}
}
