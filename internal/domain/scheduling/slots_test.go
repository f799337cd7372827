package scheduling

import (
	"errors"
	"testing"
)

func slotStrings(slots []TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func TestSlotGenerator_Generate(t *testing.T) {
	g := NewSlotGenerator(0)
	tests := []struct {
		name      string
		intervals []Interval
		duration  int
		want      []string
	}{
		{"one hour halves", []Interval{iv("09:00", "10:00")}, 30, []string{"09:00", "09:30"}},
		{"shorter than a slot", []Interval{iv("09:00", "09:20")}, 30, []string{}},
		{"remainder dropped", []Interval{iv("09:00", "10:10")}, 20, []string{"09:00", "09:20", "09:40"}},
		{
			"disjoint windows sorted",
			[]Interval{iv("14:00", "15:00"), iv("09:00", "10:00")},
			30,
			[]string{"09:00", "09:30", "14:00", "14:30"},
		},
		{"empty", nil, 15, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := g.Generate(tt.intervals, tt.duration)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if slots == nil {
				t.Fatal("expected a non-nil slice")
			}
			got := slotStrings(slots)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("slot %d: expected %s, got %s", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestSlotGenerator_InvalidDuration(t *testing.T) {
	g := NewSlotGenerator(30)
	for _, d := range []int{0, -15, MaxSlotMinutes + 1, 200000000} {
		if _, err := g.Generate([]Interval{iv("09:00", "10:00")}, d); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("duration %d: expected invalid duration, got %v", d, err)
		}
	}
}

func TestSlotGenerator_WholeDaySlot(t *testing.T) {
	g := NewSlotGenerator(30)
	got, err := g.Generate([]Interval{{Start: 0, End: secondsPerDay}}, MaxSlotMinutes)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("expected a single slot at 00:00, got %v", got)
	}

	got, err = g.Generate([]Interval{iv("09:00", "10:00")}, MaxSlotMinutes)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no slots, got %v", got)
	}
}

func TestSlotGenerator_DoesNotMutateInput(t *testing.T) {
	in := []Interval{iv("14:00", "15:00"), iv("09:00", "10:00")}
	if _, err := NewSlotGenerator(30).Generate(in, 30); err != nil {
		t.Fatal(err)
	}
	if in[0] != iv("14:00", "15:00") {
		t.Error("input slice was reordered")
	}
}

func TestNewSlotGenerator_Default(t *testing.T) {
	if g := NewSlotGenerator(-1); g.DefaultMinutes != DefaultSlotMinutes {
		t.Errorf("expected default %d, got %d", DefaultSlotMinutes, g.DefaultMinutes)
	}
	if g := NewSlotGenerator(45); g.DefaultMinutes != 45 {
		t.Errorf("expected 45, got %d", g.DefaultMinutes)
	}
}
