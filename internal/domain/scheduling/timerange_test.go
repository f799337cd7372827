package scheduling

import (
	"encoding/json"
	"testing"
	"time"
)

func iv(start, end string) Interval {
	return Interval{Start: MustParseTimeOfDay(start), End: MustParseTimeOfDay(end)}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", Clock(9, 0, 0), false},
		{"23:59", Clock(23, 59, 0), false},
		{"00:00", 0, false},
		{"08:15:30", Clock(8, 15, 30), false},
		{"9:00", 0, true},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12:00:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
		{"09:00 ", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	if got := Clock(9, 5, 0).String(); got != "09:05" {
		t.Errorf("expected 09:05, got %s", got)
	}
	if got := Clock(17, 0, 7).String(); got != "17:00:07" {
		t.Errorf("expected 17:00:07, got %s", got)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	b, err := json.Marshal(Clock(14, 30, 0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"14:30"` {
		t.Errorf("expected \"14:30\", got %s", b)
	}

	var got TimeOfDay
	if err := json.Unmarshal([]byte(`"07:45"`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != Clock(7, 45, 0) {
		t.Errorf("expected 07:45, got %s", got)
	}
	if err := json.Unmarshal([]byte(`"7:45"`), &got); err == nil {
		t.Error("expected error for single-digit hour")
	}
}

func TestFromDuration(t *testing.T) {
	d := 10*time.Hour + 15*time.Minute + 500*time.Millisecond
	if got := FromDuration(d); got != Clock(10, 15, 0) {
		t.Errorf("expected 10:15, got %s", got)
	}
	if got := Clock(6, 30, 0).Duration(); got != 6*time.Hour+30*time.Minute {
		t.Errorf("unexpected duration %s", got)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"adjacent", iv("09:00", "10:00"), iv("10:00", "11:00"), false},
		{"partial", iv("09:00", "10:30"), iv("10:00", "11:00"), true},
		{"contained", iv("09:00", "12:00"), iv("10:00", "11:00"), true},
		{"disjoint", iv("08:00", "09:00"), iv("13:00", "14:00"), false},
		{"same start", iv("09:00", "09:30"), iv("09:00", "10:00"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverlaps_Self(t *testing.T) {
	for _, x := range []Interval{iv("06:00", "06:01"), iv("09:00", "17:00"), iv("21:59", "22:00")} {
		if !Overlaps(x, x) {
			t.Errorf("expected %v to overlap itself", x)
		}
	}
}

func TestContainsInstant(t *testing.T) {
	x := iv("09:00", "10:00")
	if !ContainsInstant(x, MustParseTimeOfDay("09:00")) {
		t.Error("start should be contained")
	}
	if !ContainsInstant(x, MustParseTimeOfDay("09:59:59")) {
		t.Error("09:59:59 should be contained")
	}
	if ContainsInstant(x, MustParseTimeOfDay("10:00")) {
		t.Error("end should be excluded")
	}
}

func TestSubtract(t *testing.T) {
	free := []Interval{iv("13:00", "17:00"), iv("09:00", "12:00")}
	busy := []Interval{iv("09:30", "10:00"), iv("11:30", "13:30"), iv("16:00", "18:00")}

	got := Subtract(free, busy)
	want := []Interval{iv("09:00", "09:30"), iv("10:00", "11:30"), iv("13:30", "16:00")}
	if len(got) != len(want) {
		t.Fatalf("expected %d intervals, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interval %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSubtract_FullyBooked(t *testing.T) {
	got := Subtract([]Interval{iv("09:00", "10:00")}, []Interval{iv("08:00", "11:00")})
	if len(got) != 0 {
		t.Errorf("expected nothing left, got %v", got)
	}
}
