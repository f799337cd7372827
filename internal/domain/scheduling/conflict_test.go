package scheduling

import (
	"testing"

	"github.com/google/uuid"
)

func weekly(doctorID int64, day int, start, end string) WeeklyInterval {
	x := iv(start, end)
	return WeeklyInterval{ID: uuid.New(), DoctorID: doctorID, DayOfWeek: day, Start: x.Start, End: x.End}
}

func TestHasConflict(t *testing.T) {
	existing := []WeeklyInterval{
		weekly(5, 2, "09:00", "10:00"),
		weekly(5, 3, "09:00", "12:00"),
		weekly(6, 2, "09:00", "12:00"),
	}
	tests := []struct {
		name      string
		doctorID  int64
		day       int
		candidate Interval
		want      bool
	}{
		{"overlap same day", 5, 2, iv("09:30", "10:30"), true},
		{"adjacent after", 5, 2, iv("10:00", "11:00"), false},
		{"adjacent before", 5, 2, iv("08:00", "09:00"), false},
		{"other day", 5, 4, iv("09:00", "10:00"), false},
		{"other doctor", 7, 2, iv("09:00", "10:00"), false},
		{"covers existing", 5, 3, iv("08:00", "13:00"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasConflict(tt.doctorID, tt.day, tt.candidate, existing, nil); got != tt.want {
				t.Errorf("HasConflict = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasConflict_ExcludesSelf(t *testing.T) {
	self := weekly(5, 2, "09:00", "10:00")
	other := weekly(5, 2, "10:00", "11:00")
	existing := []WeeklyInterval{self, other}

	// Shrinking the interval must not collide with its own old value.
	if HasConflict(5, 2, iv("09:00", "09:30"), existing, &self.ID) {
		t.Error("expected no conflict when the interval itself is excluded")
	}
	if !HasConflict(5, 2, iv("09:00", "09:30"), existing, nil) {
		t.Error("expected conflict with the interval's old value when nothing is excluded")
	}
	if !HasConflict(5, 2, iv("09:00", "10:30"), existing, &self.ID) {
		t.Error("expected conflict with the neighbour")
	}
}

func TestConflicts_ReturnsAllHits(t *testing.T) {
	a := weekly(1, 1, "08:00", "09:00")
	b := weekly(1, 1, "09:00", "10:00")
	c := weekly(1, 1, "11:00", "12:00")
	hits := Conflicts(1, 1, iv("08:30", "09:30"), []WeeklyInterval{a, b, c}, nil)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != a.ID || hits[1].ID != b.ID {
		t.Error("expected hits in input order")
	}
}
