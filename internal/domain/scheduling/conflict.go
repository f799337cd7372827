package scheduling

import "github.com/google/uuid"

// HasConflict reports whether candidate overlaps any of the doctor's existing
// intervals on the same day. The interval identified by excludeID is skipped
// so an update is never compared with its own previous value.
func HasConflict(doctorID int64, day int, candidate Interval, existing []WeeklyInterval, excludeID *uuid.UUID) bool {
	return len(Conflicts(doctorID, day, candidate, existing, excludeID)) > 0
}

// Conflicts returns every existing interval that collides with candidate.
func Conflicts(doctorID int64, day int, candidate Interval, existing []WeeklyInterval, excludeID *uuid.UUID) []WeeklyInterval {
	var hits []WeeklyInterval
	for _, w := range existing {
		if w.DoctorID != doctorID || w.DayOfWeek != day {
			continue
		}
		if excludeID != nil && w.ID == *excludeID {
			continue
		}
		if Overlaps(candidate, w.Interval()) {
			hits = append(hits, w)
		}
	}
	return hits
}
