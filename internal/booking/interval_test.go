package booking

import (
	"errors"
	"testing"
	"time"
)

func TestIntervalOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", Interval{100, 160}, Interval{100, 160}, true},
		{"contained", Interval{100, 160}, Interval{120, 140}, true},
		{"partial left", Interval{100, 160}, Interval{80, 120}, true},
		{"partial right", Interval{100, 160}, Interval{140, 200}, true},
		{"touching end to start", Interval{100, 160}, Interval{160, 220}, false},
		{"touching start to end", Interval{100, 160}, Interval{40, 100}, false},
		{"disjoint before", Interval{100, 160}, Interval{10, 50}, false},
		{"disjoint after", Interval{100, 160}, Interval{200, 260}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("a.Overlaps(b) = %v, want %v", got, tc.want)
			}
			// overlap is symmetric
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("b.Overlaps(a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIntervalCheckBounds(t *testing.T) {
	min, max := time.Hour, 8*time.Hour
	cases := []struct {
		name    string
		iv      Interval
		wantErr bool
	}{
		{"exactly min", Interval{0, 60}, false},
		{"exactly max", Interval{0, 480}, false},
		{"too short", Interval{0, 59}, true},
		{"too long", Interval{0, 481}, true},
		{"inverted", Interval{60, 0}, true},
		{"empty", Interval{60, 60}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.iv.CheckBounds(min, max)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInterval) {
					t.Fatalf("CheckBounds = %v, want ErrInvalidInterval", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckBounds = %v, want nil", err)
			}
		})
	}
}

func TestNewIntervalTruncatesToMinute(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 45, 0, time.UTC)
	end := time.Date(2026, 3, 1, 11, 0, 59, 0, time.UTC)
	iv := NewInterval(start, end)
	if got := iv.StartTime(); !got.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("StartTime = %v", got)
	}
	if got := iv.EndTime(); !got.Equal(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("EndTime = %v", got)
	}
	if iv.Minutes() != 60 {
		t.Fatalf("Minutes = %d, want 60", iv.Minutes())
	}
}
